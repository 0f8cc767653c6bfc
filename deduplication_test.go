package frappekit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFlightWait(t *testing.T) {
	f := newFlight(1)
	if f.Done() {
		t.Fatal("Expected a new flight to be running")
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		f.complete("v", nil)
	}()

	v, err := f.Wait(context.Background())
	if err != nil || v != "v" {
		t.Errorf("Expected v, got %v, %v", v, err)
	}
	if !f.Done() {
		t.Error("Expected the flight to be done")
	}

	// Late waiters see the same result.
	if v, _ := f.Wait(context.Background()); v != "v" {
		t.Errorf("Expected v for a late waiter, got %v", v)
	}
}

func TestFlightWaitContext(t *testing.T) {
	f := newFlight(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestFlightError(t *testing.T) {
	f := newFlight(2)
	boom := errors.New("boom")
	f.complete(nil, boom)

	if _, err := f.Wait(context.Background()); err != boom {
		t.Errorf("Expected boom, got %v", err)
	}
}
