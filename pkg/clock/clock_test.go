package clock

import (
	"testing"
	"time"
)

func TestManual_Advance(t *testing.T) {
	start := time.Unix(1000, 0)
	c := NewManual(start)

	if got := c.Now(); !got.Equal(start) {
		t.Fatalf("Now: got %v, want %v", got, start)
	}

	c.Advance(1500 * time.Millisecond)
	if got := c.Now().Sub(start); got != 1500*time.Millisecond {
		t.Errorf("after Advance: got %v, want 1.5s", got)
	}

	// Never goes backwards
	c.Advance(-time.Second)
	c.Set(start)
	if got := c.Now().Sub(start); got != 1500*time.Millisecond {
		t.Errorf("clock moved backwards: got %v", got)
	}
}

func TestSystem_Monotonic(t *testing.T) {
	var c Clock = System{}
	a := c.Now()
	b := c.Now()
	if b.Before(a) {
		t.Errorf("System clock went backwards: %v then %v", a, b)
	}
}
