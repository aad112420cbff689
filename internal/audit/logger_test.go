package audit

import (
	"context"
	"sync"
	"testing"
	"time"
)

// memorySink records delivered events for inspection.
type memorySink struct {
	mu     sync.Mutex
	topics []string
	events []Event
}

func (s *memorySink) LogEvent(_ context.Context, topic string, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
	s.events = append(s.events, ev)
	return nil
}

func (s *memorySink) snapshot() ([]string, []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.topics...), append([]Event(nil), s.events...)
}

func TestRequestLifecycleOrdering(t *testing.T) {
	sink := &memorySink{}
	fwd := NewForwarder([]Sink{sink}, 16)
	fwd.Start()

	logger := NewLogger("test-alias", "art-1", "Test Dataset", fwd)
	req := logger.Open("execute", nil)
	req.Processing("1 + 1")
	req.Executing()
	req.Completed(nil)

	fwd.Flush(2 * time.Second)

	topics, events := sink.snapshot()
	if len(events) != 3 {
		t.Fatalf("delivered %d events, want 3", len(events))
	}

	wantStatuses := []Status{StatusProcessing, StatusExecuting, StatusCompleted}
	for i, want := range wantStatuses {
		if events[i].Status != want {
			t.Errorf("events[%d].Status = %q, want %q", i, events[i].Status, want)
		}
	}

	for i, topic := range topics {
		if topic != "dataset_request_test-alias" {
			t.Errorf("topics[%d] = %q, want dataset_request_test-alias", i, topic)
		}
	}

	for i, ev := range events {
		if ev.RequestID != req.ID {
			t.Errorf("events[%d].RequestID = %q, want %q", i, ev.RequestID, req.ID)
		}
		if ev.Identity != AnonymousIdentity {
			t.Errorf("events[%d].Identity = %q, want %q", i, ev.Identity, AnonymousIdentity)
		}
		if ev.DatasetID != "art-1" || ev.DatasetName != "Test Dataset" {
			t.Errorf("events[%d] dataset fields = %q/%q", i, ev.DatasetID, ev.DatasetName)
		}
	}

	if events[0].Message != "Request received" {
		t.Errorf("processing message = %q", events[0].Message)
	}
	if events[1].Message != "Executing code..." {
		t.Errorf("executing message = %q", events[1].Message)
	}
	if events[2].Message != "Request completed successfully" {
		t.Errorf("completed message = %q", events[2].Message)
	}
}

func TestRequestErrorTerminal(t *testing.T) {
	sink := &memorySink{}
	fwd := NewForwarder([]Sink{sink}, 16)
	fwd.Start()

	logger := NewLogger("alias", "art", "ds", fwd)
	req := logger.Open("execute", &CallerContext{Email: "dev@example.org"})
	req.Processing("1 +")
	req.Error("Syntax Error", "SyntaxError: unexpected end of input")

	fwd.Flush(2 * time.Second)

	_, events := sink.snapshot()
	if len(events) != 2 {
		t.Fatalf("delivered %d events, want 2", len(events))
	}
	last := events[1]
	if last.Status != StatusError {
		t.Errorf("terminal status = %q, want error", last.Status)
	}
	if last.Message != "Syntax Error" {
		t.Errorf("terminal message = %q", last.Message)
	}
	if last.Identity != "dev@example.org" {
		t.Errorf("identity = %q, want dev@example.org", last.Identity)
	}
}

func TestLoggerWithoutForwarder(t *testing.T) {
	logger := NewLogger("alias", "art", "ds", nil)
	req := logger.Open("get_docs", nil)

	// Must not panic with no remote forwarder configured.
	req.Processing(nil)
	req.Completed(nil)
}

func TestCallerContextIdentity(t *testing.T) {
	tests := []struct {
		name   string
		caller *CallerContext
		want   string
	}{
		{"nil context", nil, AnonymousIdentity},
		{"empty context", &CallerContext{}, AnonymousIdentity},
		{"nested user email", &CallerContext{User: map[string]string{"email": "a@b.c"}}, "a@b.c"},
		{"top-level email", &CallerContext{Email: "x@y.z"}, "x@y.z"},
		{"nested wins over top-level", &CallerContext{Email: "x@y.z", User: map[string]string{"email": "a@b.c"}}, "a@b.c"},
		{"empty nested falls through", &CallerContext{Email: "x@y.z", User: map[string]string{"email": ""}}, "x@y.z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.caller.Identity(); got != tt.want {
				t.Errorf("Identity() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenGeneratesUniqueIDs(t *testing.T) {
	logger := NewLogger("alias", "art", "ds", nil)
	a := logger.Open("execute", nil)
	b := logger.Open("execute", nil)

	if a.ID == "" || b.ID == "" {
		t.Fatal("Open() produced empty request ID")
	}
	if a.ID == b.ID {
		t.Errorf("request IDs collide: %q", a.ID)
	}
	if a.Method != "execute" {
		t.Errorf("Method = %q, want execute", a.Method)
	}
}
