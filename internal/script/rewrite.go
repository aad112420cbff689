// Package script parses submitted source text and prepares it for execution,
// rewriting a trailing bare expression into a capture assignment so its value
// can be read back REPL-style after the script runs.
package script

import (
	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// ResultBinding is the reserved namespace binding that receives the value of
// a rewritten trailing expression.
const ResultBinding = "__repl_result__"

const scriptName = "<agent-code>"

// CompiledUnit is the executable form of one submitted script. It is owned by
// the call that created it and is discarded when the call ends.
type CompiledUnit struct {
	Program        *goja.Program
	CapturesResult bool
}

// Rewrite parses source and, when its final top-level statement is a bare
// expression, splices an assignment of that expression to ResultBinding at
// the expression's original byte range. Earlier statements are untouched, so
// the expression still evaluates exactly once, in its original position, with
// identical side effects. The (possibly rewritten) source is then compiled.
// Rewrite is a pure function of its input and returns *SyntaxError when the
// source does not parse.
func Rewrite(source string) (*CompiledUnit, error) {
	prog, err := parser.ParseFile(nil, scriptName, source, 0)
	if err != nil {
		return nil, &SyntaxError{Detail: err.Error()}
	}

	rewritten := source
	captures := false
	if expr := trailingBareExpression(prog); expr != nil {
		// file.Idx offsets are 1-based.
		start := int(expr.Idx0()) - 1
		end := int(expr.Idx1()) - 1
		rewritten = source[:start] + ResultBinding + " = (" + source[start:end] + ")" + source[end:]
		captures = true
	}

	compiled, err := goja.Compile(scriptName, rewritten, false)
	if err != nil {
		return nil, &SyntaxError{Detail: err.Error()}
	}

	return &CompiledUnit{Program: compiled, CapturesResult: captures}, nil
}

// trailingBareExpression returns the expression of the final top-level
// statement when it is a bare expression statement. Assignments are excluded:
// `x = 5` mutates the namespace but yields no REPL value.
func trailingBareExpression(prog *ast.Program) ast.Expression {
	if len(prog.Body) == 0 {
		return nil
	}
	stmt, ok := prog.Body[len(prog.Body)-1].(*ast.ExpressionStatement)
	if !ok {
		return nil
	}
	if _, isAssign := stmt.Expression.(*ast.AssignExpression); isAssign {
		return nil
	}
	return stmt.Expression
}
