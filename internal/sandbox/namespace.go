// Package sandbox executes compiled script units against a persistent shared
// namespace, capturing their output streams and containing their faults. The
// isolation is logical only: streams never reach the host process and faults
// never escape a call, but scripts are not resource- or time-limited.
package sandbox

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// maxCallStackSize bounds hosted call depth so runaway recursion surfaces as
// a catchable fault instead of exhausting the host stack.
const maxCallStackSize = 4096

// Namespace is the mutable execution context shared by every call for the
// service's lifetime. Bindings created by one script are visible to all
// subsequent scripts; nothing is ever auto-reset. Access is serialized
// through the namespace mutex: one writer at a time.
type Namespace struct {
	mu sync.Mutex
	vm *goja.Runtime

	// Current stream sinks behind the injected print/console bindings.
	// Swapped per call under mu; default to io.Discard so host process
	// streams are never written to.
	stdout io.Writer
	stderr io.Writer
}

// NewNamespace creates a namespace with print and console bound to the
// namespace's stream sinks.
func NewNamespace() *Namespace {
	ns := &Namespace{
		vm:     goja.New(),
		stdout: io.Discard,
		stderr: io.Discard,
	}
	ns.vm.SetMaxCallStackSize(maxCallStackSize)
	ns.bindStreams()
	return ns
}

// bindStreams injects print and console into the namespace. The bindings read
// the current sinks at call time, so redirecting the namespace retargets all
// script output without rebinding.
func (ns *Namespace) bindStreams() {
	outFn := ns.streamFunc(func() io.Writer { return ns.stdout })
	errFn := ns.streamFunc(func() io.Writer { return ns.stderr })

	_ = ns.vm.Set("print", outFn)

	console := ns.vm.NewObject()
	_ = console.Set("log", outFn)
	_ = console.Set("info", outFn)
	_ = console.Set("warn", errFn)
	_ = console.Set("error", errFn)
	_ = ns.vm.Set("console", console)
}

func (ns *Namespace) streamFunc(sink func() io.Writer) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		fmt.Fprintln(sink(), strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// redirect points the stream sinks at the given writers and returns a
// function restoring the previous sinks. Callers must hold ns.mu.
func (ns *Namespace) redirect(stdout, stderr io.Writer) func() {
	prevOut, prevErr := ns.stdout, ns.stderr
	ns.stdout, ns.stderr = stdout, stderr
	return func() {
		ns.stdout, ns.stderr = prevOut, prevErr
	}
}

// Set binds name to value in the namespace, e.g. mounted data handles or
// helper functions made available to every script.
func (ns *Namespace) Set(name string, value any) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.vm.Set(name, value)
}

// Get returns the value bound to name, or nil when unbound.
func (ns *Namespace) Get(name string) goja.Value {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.vm.Get(name)
}
