// Package service exposes the two dataset operations, execute and get_docs,
// bound to one persistent namespace for the service's lifetime. Neither
// operation ever returns an error to its caller: every failure mode resolves
// to a string result plus a terminal audit event.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/aicell-lab/24agents.science/internal/audit"
	"github.com/aicell-lab/24agents.science/internal/config"
	"github.com/aicell-lab/24agents.science/internal/monitor"
	"github.com/aicell-lab/24agents.science/internal/sandbox"
	"github.com/aicell-lab/24agents.science/internal/script"
)

// Service binds the execution pipeline to one shared namespace.
type Service struct {
	ns       *sandbox.Namespace
	executor sandbox.Executor
	audit    *audit.Logger
	dataset  config.DatasetConfig
	metrics  *monitor.Metrics
	tracer   *monitor.Tracer
}

// New creates the service facade. The namespace persists across calls and is
// never reset; metrics may be nil in tests.
func New(ns *sandbox.Namespace, executor sandbox.Executor, auditLogger *audit.Logger, dataset config.DatasetConfig, metrics *monitor.Metrics) *Service {
	return &Service{
		ns:       ns,
		executor: executor,
		audit:    auditLogger,
		dataset:  dataset,
		metrics:  metrics,
		tracer:   monitor.NewTracer(),
	}
}

// Namespace returns the shared execution context, e.g. for mounting data
// handles at startup.
func (s *Service) Namespace() *sandbox.Namespace {
	return s.ns
}

// Execute runs source against the shared namespace and returns the combined
// output string. Syntax errors short-circuit before the sandbox is invoked;
// runtime faults surface in the returned string. Execute never panics and
// never returns a transport-level error.
func (s *Service) Execute(ctx context.Context, source string, caller *audit.CallerContext) string {
	start := time.Now()

	req := s.audit.Open("execute", caller)

	_, span := s.tracer.StartSpan(ctx, "execute",
		monitor.AttrRequestID.String(req.ID),
		monitor.AttrMethod.String("execute"),
		monitor.AttrCaller.String(req.CallerIdentity),
		monitor.AttrCodeSize.Int(len(source)),
	)
	defer span.End()

	req.Processing(source)

	unit, err := script.Rewrite(source)
	if err != nil {
		req.Error("Syntax Error", err.Error())
		s.record("execute", "error", start, "syntax")
		var synErr *script.SyntaxError
		if errors.As(err, &synErr) {
			return synErr.Error()
		}
		return "SyntaxError: " + err.Error()
	}

	req.Executing()
	result := s.executor.Run(unit, s.ns)
	output := sandbox.Assemble(result)

	if result.Fault != nil {
		req.Error("Execution Error", result.Fault.Kind)
		s.record("execute", "error", start, "runtime")
		return output
	}

	req.Completed("Output captured")
	s.record("execute", "completed", start, "")
	return output
}

// GetDocs returns the fixed documentation for this dataset, composed from the
// configured name and description. It opens and completes an audit record for
// symmetry with execute but is otherwise pure.
func (s *Service) GetDocs(ctx context.Context, caller *audit.CallerContext) string {
	start := time.Now()

	req := s.audit.Open("get_docs", caller)

	_, span := s.tracer.StartSpan(ctx, "get_docs",
		monitor.AttrRequestID.String(req.ID),
		monitor.AttrMethod.String("get_docs"),
		monitor.AttrCaller.String(req.CallerIdentity),
	)
	defer span.End()

	req.Completed("Documentation requested")
	s.record("get_docs", "completed", start, "")

	return "This server allows you to interact with a dataset by running\n" +
		"code in the `execute` operation.\n\n" +
		"The dataset is mounted in /data.\n\n" +
		"Here's the description of the dataset:\n" +
		"<START OF DATASET DESCRIPTION>\n" +
		s.dataset.Description + "\n" +
		"<END OF DATASET DESCRIPTION>\n"
}

func (s *Service) record(method, status string, start time.Time, errType string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordRequest(method, status, time.Since(start).Seconds())
	if errType != "" {
		s.metrics.RecordError(errType)
	}
}
