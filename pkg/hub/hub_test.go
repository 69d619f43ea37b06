package hub

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := New("test", quietLogger())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h, cancel
}

func receive(t *testing.T, s *Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-s.C:
		if !ok {
			t.Fatal("subscription closed")
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_FanOut(t *testing.T) {
	h, _ := startHub(t)

	a, b := h.Subscribe(), h.Subscribe()
	if a == nil || b == nil {
		t.Fatal("Subscribe returned nil on a running hub")
	}
	waitFor(t, func() bool { return h.ClientCount() == 2 })

	if err := h.BroadcastJSON(map[string]int{"score": 3}); err != nil {
		t.Fatal(err)
	}
	for _, s := range []*Subscription{a, b} {
		msg := receive(t, s)
		if msg.Type != JSONMessage || string(msg.Data) != `{"score":3}` {
			t.Errorf("got %v %q", msg.Type, msg.Data)
		}
	}

	h.BroadcastBinary([]byte{0xff, 0xd8})
	if msg := receive(t, a); msg.Type != BinaryMessage || len(msg.Data) != 2 {
		t.Errorf("binary message: got %+v", msg)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h, _ := startHub(t)

	s := h.Subscribe()
	h.Unsubscribe(s)
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	if _, ok := <-s.C; ok {
		t.Error("channel should be closed after Unsubscribe")
	}
	// Second unsubscribe is harmless
	h.Unsubscribe(s)
	h.Unsubscribe(nil)
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := startHub(t)

	slow := h.Subscribe()
	for i := 0; i < subscriberBuffer+10; i++ {
		h.Broadcast(NewJSONMessage([]byte(`{}`)))
	}
	waitFor(t, func() bool { return h.ClientCount() == 0 })

	n := 0
	for range slow.C {
		n++
	}
	if n != subscriberBuffer {
		t.Errorf("buffered before drop: got %d, want %d", n, subscriberBuffer)
	}
}

func TestHub_Shutdown(t *testing.T) {
	h, cancel := startHub(t)
	s := h.Subscribe()
	waitFor(t, h.IsRunning)

	cancel()
	waitFor(t, func() bool { return !h.IsRunning() })

	if _, ok := <-s.C; ok {
		t.Error("subscriptions should close on shutdown")
	}
	if h.Subscribe() != nil {
		t.Error("Subscribe after shutdown should return nil")
	}
}
