package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aicell-lab/24agents.science/internal/audit"
	"github.com/aicell-lab/24agents.science/internal/config"
	"github.com/aicell-lab/24agents.science/internal/sandbox"
)

func newTestService(fwd *audit.Forwarder) *Service {
	logger := audit.NewLogger("test-alias", "art-1", "Test Dataset", fwd)
	dataset := config.DatasetConfig{
		ArtifactID:  "art-1",
		ServiceID:   "workspace:test-alias",
		Name:        "Test Dataset",
		Description: "Synthetic fixtures for the service tests.",
	}
	return New(sandbox.NewNamespace(), sandbox.NewInterpreter(), logger, dataset, nil)
}

func TestExecuteExpression(t *testing.T) {
	svc := newTestService(nil)

	got := svc.Execute(context.Background(), "1 + 1", nil)
	if got != "Result: 2\n" {
		t.Errorf("Execute(1 + 1) = %q, want %q", got, "Result: 2\n")
	}
}

func TestExecuteAssignmentReturnsEmpty(t *testing.T) {
	svc := newTestService(nil)

	got := svc.Execute(context.Background(), "x = 5", nil)
	if got != "" {
		t.Errorf("Execute(x = 5) = %q, want empty string", got)
	}
}

func TestExecuteNamespacePersists(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	if got := svc.Execute(ctx, "x = 5", nil); got != "" {
		t.Fatalf("first call = %q, want empty", got)
	}

	got := svc.Execute(ctx, "print('hi');\nx", nil)
	want := "Output:\nhi\n\nResult: 5\n"
	if got != want {
		t.Errorf("second call = %q, want %q", got, want)
	}
}

func TestExecuteSyntaxError(t *testing.T) {
	svc := newTestService(nil)

	got := svc.Execute(context.Background(), "1 +", nil)
	if !strings.HasPrefix(got, "SyntaxError") {
		t.Errorf("Execute(1 +) = %q, want SyntaxError prefix", got)
	}
}

func TestExecuteRuntimeFault(t *testing.T) {
	svc := newTestService(nil)

	got := svc.Execute(context.Background(), "throw new TypeError('boom')", nil)
	if !strings.HasPrefix(got, "Error:") {
		t.Errorf("Execute(throw) = %q, want Error: prefix", got)
	}
	if !strings.Contains(got, "TypeError") {
		t.Errorf("Execute(throw) = %q, want the fault kind included", got)
	}
}

func TestExecuteFaultDoesNotPoisonNamespace(t *testing.T) {
	svc := newTestService(nil)
	ctx := context.Background()

	svc.Execute(ctx, "y = 7;\nnoSuchFunction()", nil)

	// Mutations before the fault are retained, and the namespace stays usable.
	got := svc.Execute(ctx, "y", nil)
	if got != "Result: 7\n" {
		t.Errorf("Execute(y) after fault = %q, want %q", got, "Result: 7\n")
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) LogEvent(_ context.Context, _ string, ev audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) statuses() []audit.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Status, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Status
	}
	return out
}

// executeAndCollect runs one call on a fresh service and returns the audit
// events it emitted, in delivery order.
func executeAndCollect(t *testing.T, call func(*Service)) []audit.Status {
	t.Helper()

	sink := &recordingSink{}
	fwd := audit.NewForwarder([]audit.Sink{sink}, 16)
	fwd.Start()

	call(newTestService(fwd))
	fwd.Flush(2 * time.Second)

	return sink.statuses()
}

func terminalCount(statuses []audit.Status) int {
	n := 0
	for _, s := range statuses {
		if s == audit.StatusCompleted || s == audit.StatusError {
			n++
		}
	}
	return n
}

func TestCallsEmitExactlyOneTerminalStatus(t *testing.T) {
	equal := func(a, b []audit.Status) bool {
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i] != b[i] {
				return false
			}
		}
		return true
	}

	tests := []struct {
		name string
		call func(*Service)
		want []audit.Status
	}{
		{
			name: "execute success",
			call: func(svc *Service) { svc.Execute(context.Background(), "1 + 1", nil) },
			want: []audit.Status{audit.StatusProcessing, audit.StatusExecuting, audit.StatusCompleted},
		},
		{
			name: "execute syntax error skips executing",
			call: func(svc *Service) { svc.Execute(context.Background(), "1 +", nil) },
			want: []audit.Status{audit.StatusProcessing, audit.StatusError},
		},
		{
			name: "execute runtime fault",
			call: func(svc *Service) { svc.Execute(context.Background(), "throw new Error('boom')", nil) },
			want: []audit.Status{audit.StatusProcessing, audit.StatusExecuting, audit.StatusError},
		},
		{
			name: "get_docs",
			call: func(svc *Service) { svc.GetDocs(context.Background(), nil) },
			want: []audit.Status{audit.StatusCompleted},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := executeAndCollect(t, tt.call)
			if !equal(got, tt.want) {
				t.Errorf("emitted statuses = %v, want %v", got, tt.want)
			}
			if n := terminalCount(got); n != 1 {
				t.Errorf("terminal statuses = %d, want exactly 1", n)
			}
		})
	}
}

type brokenSink struct{}

func (brokenSink) LogEvent(context.Context, string, audit.Event) error {
	return errors.New("collector down")
}

func TestExecuteUnaffectedByFailingRemoteSink(t *testing.T) {
	fwd := audit.NewForwarder([]audit.Sink{brokenSink{}}, 16)
	fwd.Start()
	defer fwd.Flush(2 * time.Second)

	svc := newTestService(fwd)
	got := svc.Execute(context.Background(), "1 + 1", nil)
	if got != "Result: 2\n" {
		t.Errorf("Execute with failing sink = %q, want %q", got, "Result: 2\n")
	}
}

func TestGetDocs(t *testing.T) {
	svc := newTestService(nil)

	docs := svc.GetDocs(context.Background(), nil)
	if !strings.Contains(docs, "<START OF DATASET DESCRIPTION>") {
		t.Error("docs missing description start marker")
	}
	if !strings.Contains(docs, "<END OF DATASET DESCRIPTION>") {
		t.Error("docs missing description end marker")
	}
	if !strings.Contains(docs, "Synthetic fixtures for the service tests.") {
		t.Error("docs missing the configured description")
	}

	// Stable across calls.
	if again := svc.GetDocs(context.Background(), nil); again != docs {
		t.Error("GetDocs is not stable across calls")
	}
}
