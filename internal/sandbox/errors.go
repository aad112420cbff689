package sandbox

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
)

// ExecutionError records a runtime fault raised by a script. The fault is
// contained within the call that raised it and surfaced to the caller as a
// formatted string, never as a transport-level error.
type ExecutionError struct {
	Kind  string // hosted fault kind, e.g. TypeError, RangeError
	Trace string // formatted diagnostic including the hosted stack trace
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("Error: %s", e.Trace)
}

// classifyFault converts an interpreter error into an ExecutionError carrying
// the hosted fault kind and full trace text.
func classifyFault(err error) *ExecutionError {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return &ExecutionError{Kind: exceptionKind(ex), Trace: ex.String()}
	}

	var overflow *goja.StackOverflowError
	if errors.As(err, &overflow) {
		return &ExecutionError{Kind: "StackOverflowError", Trace: overflow.Error()}
	}

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return &ExecutionError{Kind: "InterruptedError", Trace: interrupted.Error()}
	}

	return &ExecutionError{Kind: "Error", Trace: err.Error()}
}

// exceptionKind reads the thrown value's name property ("TypeError" and
// friends); non-Error throw values report as plain Error.
func exceptionKind(ex *goja.Exception) string {
	if obj, ok := ex.Value().(*goja.Object); ok {
		if name := obj.Get("name"); name != nil && !goja.IsUndefined(name) {
			return name.String()
		}
	}
	return "Error"
}
