package pipeline

import (
	"testing"
	"time"

	"github.com/clipsmith/cut-engine/internal/api"
)

func recvEvent(t *testing.T, ch <-chan api.SSEEvent) api.SSEEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return api.SSEEvent{}
	}
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	eb := NewEventBus(16)

	ch, cancel := eb.Subscribe(api.EventFilter{})
	defer cancel()

	eb.Publish("job-1", StateTranscribing, map[string]any{"source": "a.mp4"})

	e := recvEvent(t, ch)
	if e.JobID != "job-1" {
		t.Errorf("JobID = %q, want job-1", e.JobID)
	}
	if e.State != StateTranscribing {
		t.Errorf("State = %q, want %q", e.State, StateTranscribing)
	}
	if e.Type != "job" {
		t.Errorf("Type = %q, want job", e.Type)
	}
	if e.ID == "" || e.Timestamp == "" {
		t.Error("event missing ID or timestamp")
	}
}

func TestEventBus_FilterByJob(t *testing.T) {
	eb := NewEventBus(16)

	ch, cancel := eb.Subscribe(api.EventFilter{JobID: "job-2"})
	defer cancel()

	eb.Publish("job-1", StateComplete, nil)
	eb.Publish("job-2", StateComplete, nil)

	e := recvEvent(t, ch)
	if e.JobID != "job-2" {
		t.Errorf("JobID = %q, want job-2", e.JobID)
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected extra event for job %q", extra.JobID)
	default:
	}
}

func TestEventBus_FilterByState(t *testing.T) {
	eb := NewEventBus(16)

	ch, cancel := eb.Subscribe(api.EventFilter{States: []string{StateComplete, StateFailed}})
	defer cancel()

	eb.Publish("job-1", StateTranscribing, nil)
	eb.Publish("job-1", StateFailed, nil)

	e := recvEvent(t, ch)
	if e.State != StateFailed {
		t.Errorf("State = %q, want %q", e.State, StateFailed)
	}
}

func TestEventBus_ReplaySince(t *testing.T) {
	eb := NewEventBus(16)

	eb.Publish("job-1", StateUploaded, nil)
	eb.Publish("job-1", StateTranscribing, nil)

	all := eb.ReplaySince("", api.EventFilter{})
	if len(all) != 2 {
		t.Fatalf("ReplaySince(\"\") returned %d events, want 2", len(all))
	}

	eb.Publish("job-1", StateAwaitingCuts, nil)

	missed := eb.ReplaySince(all[1].ID, api.EventFilter{})
	if len(missed) != 1 {
		t.Fatalf("ReplaySince returned %d events, want 1", len(missed))
	}
	if missed[0].State != StateAwaitingCuts {
		t.Errorf("replayed State = %q, want %q", missed[0].State, StateAwaitingCuts)
	}
}

func TestEventBus_ReplayUnknownIDReturnsNothing(t *testing.T) {
	eb := NewEventBus(16)
	eb.Publish("job-1", StateUploaded, nil)

	if got := eb.ReplaySince("bogus-id", api.EventFilter{}); len(got) != 0 {
		t.Errorf("ReplaySince(bogus) returned %d events, want 0", len(got))
	}
}

func TestEventBus_SubscriberCount(t *testing.T) {
	eb := NewEventBus(4)
	if got := eb.SubscriberCount(); got != 0 {
		t.Fatalf("SubscriberCount = %d, want 0", got)
	}
	_, cancel1 := eb.Subscribe(api.EventFilter{})
	_, cancel2 := eb.Subscribe(api.EventFilter{})
	if got := eb.SubscriberCount(); got != 2 {
		t.Errorf("SubscriberCount = %d, want 2", got)
	}
	cancel1()
	cancel2()
	if got := eb.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount after cancel = %d, want 0", got)
	}
}

func TestEventBus_RingOverwrite(t *testing.T) {
	eb := NewEventBus(2)
	eb.Publish("job-1", StateUploaded, nil)
	eb.Publish("job-1", StateTranscribing, nil)
	eb.Publish("job-1", StateAwaitingCuts, nil)

	all := eb.ReplaySince("", api.EventFilter{})
	if len(all) != 2 {
		t.Fatalf("ring kept %d events, want 2", len(all))
	}
	if all[0].State != StateTranscribing || all[1].State != StateAwaitingCuts {
		t.Errorf("ring kept wrong events: %q, %q", all[0].State, all[1].State)
	}
}
