package fetch

import (
	"context"
	"time"
)

// Pipeline runs one fetch invocation through the fixed stage order:
// validation, header filtering, execution. A rejection short-circuits the
// remaining stages; the attempt is still access-logged.
type Pipeline struct {
	policy   *Policy
	executor *Executor
	access   *AccessLogger
	now      func() time.Time
}

// NewPipeline wires the stages around a shared Policy.
func NewPipeline(policy *Policy, executor *Executor, access *AccessLogger) *Pipeline {
	return &Pipeline{
		policy:   policy,
		executor: executor,
		access:   access,
		now:      executor.now,
	}
}

// Policy returns the policy the pipeline enforces.
func (p *Pipeline) Policy() *Policy { return p.policy }

// Run executes req. It never returns an error: every outcome is a Result.
func (p *Pipeline) Run(ctx context.Context, req Request, tr Transport) Result {
	req.Method = req.NormalizedMethod()

	if rej := ValidateRequest(req.URL, req.Method, p.policy); rej != nil {
		return p.Reject(req, tr, rej.Message)
	}

	headers := MergeHeaders(req.Headers, tr.Headers, p.policy)
	return p.executor.Execute(ctx, req, headers, tr.clientIP())
}

// Reject refuses req without contacting the network, for rejections found
// before or during validation such as malformed tool arguments. The attempt
// is access-logged with status -1 and 0 bytes like any other rejection.
func (p *Pipeline) Reject(req Request, tr Transport, message string) Result {
	method := req.NormalizedMethod()
	p.access.Log(req.URL, method, StatusNoResponse, 0, tr.clientIP())
	return Failure(req.URL, p.now(), message)
}
