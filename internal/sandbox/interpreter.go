package sandbox

import (
	"bytes"
	"fmt"

	"github.com/dop251/goja"

	"github.com/aicell-lab/24agents.science/internal/script"
)

// Executor runs one compiled unit against a namespace. Implementations return
// exactly one Result per call and never propagate script faults.
type Executor interface {
	Run(unit *script.CompiledUnit, ns *Namespace) Result
}

// Result is the structured outcome of one sandboxed execution.
type Result struct {
	Stdout   string
	Stderr   string
	Value    goja.Value // captured trailing-expression value; nil unless HasValue
	HasValue bool
	Fault    *ExecutionError
}

// Interpreter executes compiled units in-process on the hosted interpreter.
type Interpreter struct{}

// NewInterpreter creates an Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// Run executes unit against ns. The namespace's stream sinks are redirected
// to per-call buffers and restored on every exit path, including faults.
// Runtime faults are caught and recorded on the Result; namespace mutations
// made before a fault are retained.
func (in *Interpreter) Run(unit *script.CompiledUnit, ns *Namespace) Result {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	var stdout, stderr bytes.Buffer
	restore := ns.redirect(&stdout, &stderr)
	defer restore()

	fault := in.execute(unit, ns)

	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Fault:  fault,
	}

	if unit.CapturesResult && fault == nil {
		if v := ns.vm.Get(script.ResultBinding); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
			res.Value = v
			res.HasValue = true
		}
	}

	return res
}

// execute isolates RunProgram so the deferred recover covers host-side panics
// as well as hosted faults.
func (in *Interpreter) execute(unit *script.CompiledUnit, ns *Namespace) (fault *ExecutionError) {
	defer func() {
		if r := recover(); r != nil {
			fault = &ExecutionError{Kind: "panic", Trace: fmt.Sprintf("%v", r)}
		}
	}()

	if _, err := ns.vm.RunProgram(unit.Program); err != nil {
		fault = classifyFault(err)
	}
	return fault
}
