package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/alexisbeaulieu97/lorikeet/internal/config"
	"github.com/alexisbeaulieu97/lorikeet/internal/model"
	"github.com/alexisbeaulieu97/lorikeet/internal/template"
)

// SyntheticStepName is the step name under which plan-load failures are
// reported. Template, parse, and DAG errors all surface as a single failed
// step with this name so downstream presenters and webhooks keep working.
const SyntheticStepName = "lorikeet"

// RunOptions configures a single run.
type RunOptions struct {
	// PlanText is the raw, unexpanded plan document.
	PlanText string
	// Context is the decoded config document handed to the template
	// expander; nil means no context.
	Context any
	// Workers bounds concurrent probe execution. Non-positive means the
	// host's logical CPU count.
	Workers int
	Logger  zerolog.Logger
}

// Run expands, parses, builds, and executes a plan, returning results in
// declaration order. Plan-load failures yield a single synthetic failed
// step rather than an error so every run produces a reportable result set.
func Run(ctx context.Context, opts RunOptions) []model.StepResult {
	expanded, err := template.Expand(opts.PlanText, opts.Context)
	if err != nil {
		return loadFailure(err)
	}

	plan, err := config.ParsePlan([]byte(expanded))
	if err != nil {
		return loadFailure(err)
	}

	graph, err := BuildDAG(plan)
	if err != nil {
		return loadFailure(err)
	}

	scheduler := NewScheduler(graph, opts.Workers, opts.Logger)
	results, err := scheduler.Run(ctx)
	if err != nil {
		return loadFailure(err)
	}
	return results
}

func loadFailure(err error) []model.StepResult {
	return []model.StepResult{model.FailedResult(SyntheticStepName, err, 0)}
}
