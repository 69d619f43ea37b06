// Package alert fuses driver signals into a discrete alert level.
//
// The fusion is a fixed point table rather than a learned model: every
// level can be explained by listing the conditions that scored.
package alert

import (
	"fmt"
	"strings"
)

// Level is the alert severity. Levels are totally ordered: Normal < Warning < Danger.
type Level int

const (
	Normal Level = iota
	Warning
	Danger
)

// Levels lists every level from least to most severe.
var Levels = []Level{Normal, Warning, Danger}

// String returns the upper-case level name used in logs and config.
func (l Level) String() string {
	switch l {
	case Normal:
		return "NORMAL"
	case Warning:
		return "WARNING"
	case Danger:
		return "DANGER"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel parses a level name, case-insensitively.
func ParseLevel(s string) (Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NORMAL":
		return Normal, nil
	case "WARNING":
		return Warning, nil
	case "DANGER":
		return Danger, nil
	}
	return Normal, fmt.Errorf("unknown alert level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
