// Package flow runs the lifecycle checks against the auth backend as a
// dependency graph of named stages. Each stage declares the output keys
// it needs; a stage whose inputs never materialized is skipped, which
// is a distinct outcome from failing. Declaration order is already a
// topological order of the graph, so execution is strictly sequential.
package flow

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-e2e/httpclient"
)

// Status is the tri-state outcome of a stage.
type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "PASS"
	case StatusFailed:
		return "FAIL"
	case StatusSkipped:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// Outputs are the named values a stage contributes for later stages.
type Outputs map[string]string

// Well-known output keys. The seeded keys are present before any stage
// runs; the rest appear as stages pass.
const (
	KeySessionToken = "session_token"
	KeyClientID     = "client_id"
	KeyClientSecret = "client_secret"
	KeyRedirectURI  = "redirect_uri"
	KeyUserID       = "user_id"

	KeyAccessToken    = "access_token"
	KeyRefreshedToken = "refreshed_token"
	KeyAuthCode       = "auth_code"
	KeyOAuthState     = "oauth_state"
	KeySSOToken       = "sso_token"
)

// Stage is one checkable unit of the lifecycle. Needs lists the output
// keys that must exist before the stage can run; a missing key skips
// the stage instead of failing it.
type Stage struct {
	Name  string
	Needs []string
	Run   func(ctx context.Context, rt *Runtime) (Outputs, error)
}

// Runtime carries the HTTP client, the backend base URL, and the
// outputs accumulated across stages.
type Runtime struct {
	baseURL string
	client  *httpclient.Client
	outputs Outputs
}

// NewRuntime builds a runtime pre-populated with the seeded outputs.
func NewRuntime(baseURL string, client *httpclient.Client, seeded Outputs) *Runtime {
	outputs := make(Outputs, len(seeded))
	for k, v := range seeded {
		outputs[k] = v
	}
	return &Runtime{baseURL: baseURL, client: client, outputs: outputs}
}

// Output returns the value for a key and whether it exists.
func (rt *Runtime) Output(key string) (string, bool) {
	v, ok := rt.outputs[key]
	return v, ok
}

// URL joins a path onto the backend base URL.
func (rt *Runtime) URL(path string) string {
	return rt.baseURL + path
}

// Result is one stage's verdict. Detail carries the failure diagnostic
// or the skip reason; it is empty for a pass.
type Result struct {
	Stage  string
	Status Status
	Detail string
}

// Summary aggregates a run. Attempted excludes skipped stages, so a
// short-circuited run reports a total strictly below the stage count.
type Summary struct {
	Results   []Result
	Passed    int
	Attempted int
}

// OK reports whether every attempted stage passed.
func (s Summary) OK() bool {
	return s.Passed == s.Attempted
}

// Runner executes stages in declared order and never fails hard: every
// stage outcome, panics included, is converted into a Result.
type Runner struct {
	rt     *Runtime
	stages []Stage
}

func NewRunner(rt *Runtime, stages []Stage) *Runner {
	return &Runner{rt: rt, stages: stages}
}

func (r *Runner) Run(ctx context.Context) Summary {
	var summary Summary
	for _, stage := range r.stages {
		result := r.runStage(ctx, stage)
		summary.Results = append(summary.Results, result)
		switch result.Status {
		case StatusPassed:
			summary.Passed++
			summary.Attempted++
		case StatusFailed:
			summary.Attempted++
		}
	}
	return summary
}

func (r *Runner) runStage(ctx context.Context, stage Stage) (result Result) {
	result.Stage = stage.Name

	for _, need := range stage.Needs {
		if _, ok := r.rt.Output(need); !ok {
			result.Status = StatusSkipped
			result.Detail = "missing input " + need
			log.Warn().Str("stage", stage.Name).Str("input", need).Msg("stage skipped")
			return result
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			result.Status = StatusFailed
			result.Detail = fmt.Sprintf("panic: %v", rec)
			log.Error().Str("stage", stage.Name).Interface("panic", rec).Msg("stage panicked")
		}
	}()

	outputs, err := stage.Run(ctx, r.rt)
	if err != nil {
		result.Status = StatusFailed
		result.Detail = err.Error()
		log.Error().Err(err).Str("stage", stage.Name).Msg("stage failed")
		return result
	}

	for k, v := range outputs {
		r.rt.outputs[k] = v
	}
	result.Status = StatusPassed
	log.Info().Str("stage", stage.Name).Msg("stage passed")
	return result
}
