package audioio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"
)

// ToneConfig describes a generated alarm tone.
type ToneConfig struct {
	Frequency  float64       // Hz
	Duration   time.Duration // total length
	SampleRate int           // Hz
	Attack     time.Duration // linear fade-in
	Release    time.Duration // linear fade-out
}

// DefaultTone is a one second 440 Hz beep with 100ms fades.
func DefaultTone() ToneConfig {
	return ToneConfig{
		Frequency:  440,
		Duration:   time.Second,
		SampleRate: 44100,
		Attack:     100 * time.Millisecond,
		Release:    100 * time.Millisecond,
	}
}

// ToneSamples renders the tone as mono int16 samples.
func ToneSamples(cfg ToneConfig) []int16 {
	n := int(float64(cfg.SampleRate) * cfg.Duration.Seconds())
	if n <= 0 {
		return nil
	}
	attack := int(float64(cfg.SampleRate) * cfg.Attack.Seconds())
	release := int(float64(cfg.SampleRate) * cfg.Release.Seconds())

	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(cfg.SampleRate)
		env := 1.0
		if attack > 0 && i < attack {
			env = float64(i) / float64(attack)
		}
		if release > 0 && i >= n-release {
			env = math.Min(env, float64(n-1-i)/float64(release))
		}
		samples[i] = int16(math.Sin(2*math.Pi*cfg.Frequency*t) * env * math.MaxInt16)
	}
	return samples
}

// WriteWAV encodes mono 16-bit PCM samples as a RIFF/WAVE stream.
func WriteWAV(w io.Writer, samples []int16, sampleRate int) error {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	dataSize := uint32(len(samples) * 2)
	byteRate := uint32(sampleRate * channels * bitsPerSample / 8)

	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		36 + dataSize,
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16), // fmt chunk size
		uint16(1),  // PCM
		uint16(channels),
		uint32(sampleRate),
		byteRate,
		uint16(channels * bitsPerSample / 8),
		uint16(bitsPerSample),
		[4]byte{'d', 'a', 't', 'a'},
		dataSize,
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	return nil
}

// WriteTone renders cfg and writes it to path, creating parent directories.
func WriteTone(path string, cfg ToneConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := WriteWAV(bw, ToneSamples(cfg), cfg.SampleRate); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush asset: %w", err)
	}
	return f.Close()
}
