package frappekit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMutationLifecycle(t *testing.T) {
	release := make(chan struct{})
	m := NewMutation("echo", func(ctx context.Context, in string) (string, error) {
		<-release
		return in + "!", nil
	})

	if !m.State().IsIdle() {
		t.Fatalf("Expected idle, got %v", m.State().Phase)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(context.Background(), "hi")
	}()
	for !m.State().IsRunning() {
		time.Sleep(time.Millisecond)
	}
	close(release)
	<-done

	st := m.State()
	if !st.IsSuccess() || !st.HasResult || st.Result != "hi!" || st.Err != nil {
		t.Errorf("Unexpected state %+v", st)
	}
}

func TestMutationFailure(t *testing.T) {
	m := NewMutation("fail", func(ctx context.Context, in int) (int, error) {
		return 0, errors.New("")
	})

	_, err := m.Run(context.Background(), 1)
	if err == nil {
		t.Fatal("Expected an error")
	}
	st := m.State()
	if !st.IsError() || st.HasResult {
		t.Errorf("Unexpected state %+v", st)
	}
	if st.Err.Error() != UnknownErrorMessage {
		t.Errorf("Expected the fallback message, got %q", st.Err.Error())
	}
	if st.Err != err {
		t.Error("Expected the stored and returned errors to be the same")
	}
}

func TestMutationResetIsIdempotent(t *testing.T) {
	m := NewMutation("ok", func(ctx context.Context, in int) (int, error) { return in, nil })

	m.Reset()
	if !m.State().IsIdle() {
		t.Fatal("Expected idle after Reset on an idle mutation")
	}
	m.Run(context.Background(), 3)
	m.Reset()
	m.Reset()
	if st := m.State(); !st.IsIdle() || st.HasResult {
		t.Errorf("Expected a clean idle state, got %+v", st)
	}
}

func TestMutationDoesNotTouchCache(t *testing.T) {
	tr := &fakeTransport{}
	qc, _ := newTestQueryClient(tr)
	qc.SetData(NewKey("ToDo", "doc", "a"), Document{"name": "a"})

	if _, err := CreateDoc[Document](tr, "ToDo").Run(context.Background(), Document{"description": "x"}); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	if _, ok := qc.GetData(NewKey("ToDo", "doc", "a")); !ok {
		t.Error("Expected the cache to be untouched")
	}
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{
		PhaseIdle:      "idle",
		PhaseRunning:   "running",
		PhaseSucceeded: "succeeded",
		PhaseFailed:    "failed",
	} {
		if got := phase.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", phase, got, want)
		}
	}
}
