package display

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-safedrive/pkg/alert"
)

// Text layout in pixels
const (
	marginX     = 10
	firstLineY  = 30
	lineSpacing = 30
	fontScale   = 0.7
	thickness   = 2
	borderWidth = 3
)

// KeyQuit closes the HUD window.
const KeyQuit = 'q'

func rgba(c alert.BGR) color.RGBA {
	return color.RGBA{R: c[2], G: c[1], B: c[0], A: 0}
}

// Draw renders hud onto img in place.
func Draw(img *gocv.Mat, hud HUD) {
	for i, line := range hud.Lines {
		pt := image.Pt(marginX, firstLineY+i*lineSpacing)
		gocv.PutText(img, line.Text, pt, gocv.FontHersheySimplex, fontScale, rgba(line.Color), thickness)
	}
	if hud.Border {
		gocv.Rectangle(img, image.Rect(0, 0, img.Cols(), img.Rows()), rgba(hud.BorderColor), borderWidth)
	}
}

// Window is the on-screen HUD.
type Window struct {
	win *gocv.Window
}

// NewWindow opens a named window.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show displays img and polls the keyboard for 1ms. It returns false once
// the user pressed q.
func (w *Window) Show(img gocv.Mat) bool {
	w.win.IMShow(img)
	return w.win.WaitKey(1)&0xff != KeyQuit
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
