package sandbox

import (
	"io"
	"strings"
	"testing"

	"github.com/aicell-lab/24agents.science/internal/script"
)

func run(t *testing.T, ns *Namespace, src string) Result {
	t.Helper()
	unit, err := script.Rewrite(src)
	if err != nil {
		t.Fatalf("Rewrite(%q) error = %v", src, err)
	}
	return NewInterpreter().Run(unit, ns)
}

func TestRunCapturesExpressionValue(t *testing.T) {
	ns := NewNamespace()
	res := run(t, ns, "1 + 1")

	if res.Fault != nil {
		t.Fatalf("Fault = %v, want nil", res.Fault)
	}
	if !res.HasValue {
		t.Fatal("HasValue = false, want true")
	}
	if got := res.Value.ToInteger(); got != 2 {
		t.Errorf("Value = %d, want 2", got)
	}
}

func TestRunAssignmentYieldsNoValue(t *testing.T) {
	ns := NewNamespace()
	res := run(t, ns, "x = 5")

	if res.Fault != nil {
		t.Fatalf("Fault = %v, want nil", res.Fault)
	}
	if res.HasValue {
		t.Errorf("HasValue = true, want false for an assignment")
	}
}

func TestRunNamespacePersistsAcrossCalls(t *testing.T) {
	ns := NewNamespace()

	if res := run(t, ns, "x = 5"); res.Fault != nil {
		t.Fatalf("first call fault = %v", res.Fault)
	}

	res := run(t, ns, "x")
	if !res.HasValue {
		t.Fatal("HasValue = false, want true: x should survive the first call")
	}
	if got := res.Value.ToInteger(); got != 5 {
		t.Errorf("x = %d, want 5", got)
	}
}

func TestRunCapturesPrint(t *testing.T) {
	ns := NewNamespace()
	res := run(t, ns, "print('hi')")

	if res.Stdout != "hi\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "hi\n")
	}
}

func TestRunConsoleErrorGoesToStderr(t *testing.T) {
	ns := NewNamespace()
	res := run(t, ns, "console.error('bad thing')")

	if res.Stderr != "bad thing\n" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "bad thing\n")
	}
	if res.Stdout != "" {
		t.Errorf("Stdout = %q, want empty", res.Stdout)
	}
}

func TestRunFaultRetainsPriorOutput(t *testing.T) {
	ns := NewNamespace()
	res := run(t, ns, "print('before');\nnoSuchFunction()")

	if res.Stdout != "before\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "before\n")
	}
	if res.Fault == nil {
		t.Fatal("Fault = nil, want ReferenceError")
	}
	if res.Fault.Kind != "ReferenceError" {
		t.Errorf("Fault.Kind = %q, want ReferenceError", res.Fault.Kind)
	}
}

func TestRunThrowClassifiedByName(t *testing.T) {
	ns := NewNamespace()
	res := run(t, ns, "throw new TypeError('boom')")

	if res.Fault == nil {
		t.Fatal("Fault = nil, want TypeError")
	}
	if res.Fault.Kind != "TypeError" {
		t.Errorf("Fault.Kind = %q, want TypeError", res.Fault.Kind)
	}
	if !strings.HasPrefix(res.Fault.Error(), "Error:") {
		t.Errorf("Fault.Error() = %q, want Error: prefix", res.Fault.Error())
	}
	if !strings.Contains(res.Fault.Error(), "boom") {
		t.Errorf("Fault.Error() = %q, want it to contain the thrown message", res.Fault.Error())
	}
}

func TestRunStackOverflowContained(t *testing.T) {
	ns := NewNamespace()
	res := run(t, ns, "function f() { return f(); }\nf()")

	if res.Fault == nil {
		t.Fatal("Fault = nil, want stack overflow fault")
	}
	if res.Fault.Kind != "StackOverflowError" {
		t.Errorf("Fault.Kind = %q, want StackOverflowError", res.Fault.Kind)
	}
}

func TestRunRestoresStreamSinks(t *testing.T) {
	ns := NewNamespace()

	run(t, ns, "print('ok')")
	if ns.stdout != io.Discard || ns.stderr != io.Discard {
		t.Error("stream sinks not restored after a clean run")
	}

	run(t, ns, "noSuchFunction()")
	if ns.stdout != io.Discard || ns.stderr != io.Discard {
		t.Error("stream sinks not restored after a faulting run")
	}
}

func TestRunNullAndUndefinedNotCaptured(t *testing.T) {
	ns := NewNamespace()

	if res := run(t, ns, "null"); res.HasValue {
		t.Error("HasValue = true for null, want false")
	}
	if res := run(t, ns, "undefined"); res.HasValue {
		t.Error("HasValue = true for undefined, want false")
	}
}

func TestNamespaceSetGet(t *testing.T) {
	ns := NewNamespace()
	if err := ns.Set("mounted", 42); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	res := run(t, ns, "mounted + 1")
	if !res.HasValue || res.Value.ToInteger() != 43 {
		t.Errorf("Value = %v, want 43", res.Value)
	}
	if got := ns.Get("mounted").ToInteger(); got != 42 {
		t.Errorf("Get(mounted) = %d, want 42", got)
	}
}
