package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTriggerUnblocksWait(t *testing.T) {
	m := New(time.Second)

	waited := make(chan struct{})
	go func() {
		m.Wait()
		close(waited)
	}()

	// give Wait a moment to install its signal handler
	time.Sleep(50 * time.Millisecond)
	m.Trigger()

	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after Trigger")
	}

	select {
	case <-m.Done():
	default:
		t.Error("Done channel not closed after Trigger")
	}
}

func TestTriggerIsIdempotent(t *testing.T) {
	m := New(time.Second)
	m.Trigger()
	m.Trigger()

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel not closed")
	}
}

func TestHooksRunInReverseOrder(t *testing.T) {
	m := New(time.Second)

	var order []string
	m.Register(func(ctx context.Context) error {
		order = append(order, "first")
		return nil
	})
	m.Register(func(ctx context.Context) error {
		order = append(order, "second")
		return nil
	})

	m.Shutdown()

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Errorf("hook order = %v, expected [second first]", order)
	}
}

func TestHookErrorsReachCallback(t *testing.T) {
	m := New(time.Second)

	hookErr := errors.New("refused to stop")
	var seen error
	m.OnError(func(err error) { seen = err })
	m.Register(func(ctx context.Context) error { return hookErr })

	m.Shutdown()

	if !errors.Is(seen, hookErr) {
		t.Errorf("OnError saw %v, expected the hook error", seen)
	}
}
