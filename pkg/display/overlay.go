// Package display renders the driver HUD on top of camera frames.
package display

import (
	"fmt"
	"strings"

	"github.com/teslashibe/go-safedrive/pkg/alert"
	"github.com/teslashibe/go-safedrive/pkg/fusion"
)

// Line is one row of HUD text.
type Line struct {
	Text  string
	Color alert.BGR
}

// HUD is everything drawn for one frame.
type HUD struct {
	Lines       []Line
	Border      bool // frame outline, shown at Danger
	BorderColor alert.BGR
}

// Overlay lays out the HUD for a snapshot. Lines only appear while their
// condition holds, so the layout shifts up when a signal clears.
func Overlay(snap fusion.Snapshot, policy alert.Policy) HUD {
	levelColor := policy.Color(snap.Level)

	hud := HUD{
		Lines: []Line{{Text: "Level: " + snap.Level.String(), Color: levelColor}},
	}

	if snap.Neutral {
		hud.Lines = append(hud.Lines, Line{Text: "No face detected", Color: alert.Red})
	} else {
		if snap.EyesClosed {
			hud.Lines = append(hud.Lines, Line{
				Text:  fmt.Sprintf("Eyes closed: %.1fs left", snap.EyeTimeRemaining.Seconds()),
				Color: levelColor,
			})
		}
		if snap.Yawning {
			hud.Lines = append(hud.Lines, Line{
				Text:  fmt.Sprintf("YAWNING (%d)", snap.ConsecutiveYawns),
				Color: alert.Yellow,
			})
		}
		if head := headText(snap); head != "" {
			hud.Lines = append(hud.Lines, Line{Text: head, Color: alert.Yellow})
		}
		hud.Lines = append(hud.Lines, Line{
			Text:  fmt.Sprintf("Total yawns: %d", snap.TotalYawns),
			Color: alert.Blue,
		})
	}

	if snap.PhoneDetected {
		hud.Lines = append(hud.Lines, Line{
			Text:  fmt.Sprintf("WARNING: phone detected (%.1fs)", snap.PhoneFor.Seconds()),
			Color: alert.Red,
		})
	}

	if snap.Level == alert.Danger {
		hud.Border = true
		hud.BorderColor = levelColor
	}
	return hud
}

func headText(snap fusion.Snapshot) string {
	var parts []string
	if snap.Head.Turned {
		parts = append(parts, "Turned: "+string(snap.Head.Horizontal))
	}
	if snap.Head.Tilted {
		parts = append(parts, "Tilted: "+string(snap.Head.Vertical))
	}
	return strings.Join(parts, " + ")
}
