package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/lorikeet/internal/logger"
	"github.com/alexisbeaulieu97/lorikeet/internal/model"
)

func runPlan(t *testing.T, text string) []model.StepResult {
	t.Helper()
	return Run(context.Background(), RunOptions{
		PlanText: text,
		Logger:   logger.Discard(),
	})
}

func resultByName(t *testing.T, results []model.StepResult, name string) model.StepResult {
	t.Helper()
	for _, res := range results {
		if res.Name == name {
			return res
		}
	}
	t.Fatalf("no result named %q", name)
	return model.StepResult{}
}

func TestRunSingleValueStep(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
a:
  value: hello
  matches: hello
`)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].Name)
	require.True(t, results[0].Pass())
	require.NotNil(t, results[0].Output)
	require.Equal(t, "hello", *results[0].Output)
	require.Equal(t, 1, results[0].Attempts)
}

func TestRunStepReferenceExecutesAfterReferent(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
a:
  value: hello
b:
  step: a
  matches: hello
`)
	require.Len(t, results, 2)
	require.True(t, results[0].Pass())
	require.True(t, results[1].Pass())
	require.Equal(t, "hello", *resultByName(t, results, "b").Output)
}

func TestRunRetriesUntilExhausted(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
a:
  value: hello
  matches: goodbye
  retry_count: 2
  retry_delay_ms: 10
`)
	require.Len(t, results, 1)

	res := results[0]
	require.Equal(t, model.StatusFailed, res.Status)
	require.NotNil(t, res.Error)
	require.Equal(t, "Not matched against `goodbye`", *res.Error)
	require.Equal(t, 3, res.Attempts)
	require.GreaterOrEqual(t, res.Duration, 20*time.Millisecond)
}

func TestRunJMESPathFilterFeedsExpectation(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
a:
  value: '{"status":"ok"}'
  jmespath: status
  matches: ok
`)
	require.Len(t, results, 1)
	require.True(t, results[0].Pass())
	require.Equal(t, "ok", *results[0].Output)
}

func TestRunFailurePropagatesSkips(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
a:
  value: x
  matches: q
b:
  value: y
  require: a
c:
  value: z
  require: b
`)
	require.Len(t, results, 3)

	require.Equal(t, model.StatusFailed, resultByName(t, results, "a").Status)

	b := resultByName(t, results, "b")
	require.Equal(t, model.StatusSkipped, b.Status)
	require.NotNil(t, b.Error)
	require.Equal(t, "dependency failed", *b.Error)

	c := resultByName(t, results, "c")
	require.Equal(t, model.StatusSkipped, c.Status)
	require.Equal(t, "dependency failed", *c.Error)
}

func TestRunCycleYieldsSyntheticStep(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
a:
  value: x
  require: b
b:
  value: y
  require: a
`)
	require.Len(t, results, 1)
	require.Equal(t, SyntheticStepName, results[0].Name)
	require.Equal(t, model.StatusFailed, results[0].Status)
	require.Contains(t, *results[0].Error, "cycle")
}

func TestRunTemplateErrorYieldsSyntheticStep(t *testing.T) {
	t.Parallel()

	results := runPlan(t, "a:\n  value: {{ .missing }}\n")
	require.Len(t, results, 1)
	require.Equal(t, SyntheticStepName, results[0].Name)
	require.False(t, results[0].Pass())
}

func TestRunParseErrorYieldsSyntheticStep(t *testing.T) {
	t.Parallel()

	results := runPlan(t, "a:\n  value: x\n  shell: also\n")
	require.Len(t, results, 1)
	require.Equal(t, SyntheticStepName, results[0].Name)
}

func TestRunEmptyPlan(t *testing.T) {
	t.Parallel()

	results := runPlan(t, "")
	require.Empty(t, results)
	require.False(t, model.HasErrors(results))
}

func TestRunResultsFollowDeclarationOrder(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
last:
  value: z
  require: first
middle:
  value: m
first:
  value: a
`)
	require.Len(t, results, 3)
	require.Equal(t, "last", results[0].Name)
	require.Equal(t, "middle", results[1].Name)
	require.Equal(t, "first", results[2].Name)
}

func TestRunIndependentStepsOverlap(t *testing.T) {
	t.Parallel()

	start := time.Now()
	results := runPlan(t, `
a:
  value: x
  delay_ms: 100
b:
  value: y
  delay_ms: 100
c:
  value: z
  delay_ms: 100
`)
	elapsed := time.Since(start)

	require.Len(t, results, 3)
	for _, res := range results {
		require.True(t, res.Pass())
	}
	// Three 100ms delays in parallel should take nowhere near 300ms.
	require.Less(t, elapsed, 280*time.Millisecond)
}

func TestRunDelayHappensAfterDependencies(t *testing.T) {
	t.Parallel()

	start := time.Now()
	results := runPlan(t, `
a:
  value: x
  delay_ms: 50
b:
  value: y
  require: a
  delay_ms: 50
`)
	elapsed := time.Since(start)

	require.True(t, results[0].Pass())
	require.True(t, results[1].Pass())
	require.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

func TestRunCancellationSkipsPendingSteps(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	results := Run(ctx, RunOptions{
		PlanText: `
slow:
  value: x
  delay_ms: 10000
blocked:
  value: y
  require: slow
`,
		Logger: logger.Discard(),
	})

	require.Len(t, results, 2)
	require.Equal(t, model.StatusSkipped, resultByName(t, results, "slow").Status)
	require.Equal(t, model.StatusSkipped, resultByName(t, results, "blocked").Status)
	require.True(t, model.HasErrors(results))
}

func TestRunShellStepEndToEnd(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
greet:
  shell: echo smoke
  matches: smoke
`)
	require.Len(t, results, 1)
	require.True(t, results[0].Pass())
	require.Equal(t, "smoke", *results[0].Output)
}

func TestRunNoOutputSentinelSuppressesReporting(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
quiet:
  value: secret
  do_output: false
  matches: secret
`)
	require.Len(t, results, 1)
	require.True(t, results[0].Pass())
	require.Nil(t, results[0].Output)
}

func TestRunGetOutputFalseOmitsOutput(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
silent:
  shell:
    command: echo hidden
    get_output: false
`)
	require.Len(t, results, 1)
	require.True(t, results[0].Pass())
	require.Nil(t, results[0].Output)
}

func TestRunStepRefToSuppressedOutputSeesEmptyString(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
quiet:
  shell:
    command: echo hidden
    get_output: false
echo:
  step: quiet
  matches: "^$"
`)
	require.True(t, resultByName(t, results, "echo").Pass())
}

func TestRunSingleAttemptByDefault(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
once:
  value: a
  matches: b
`)
	require.Equal(t, 1, results[0].Attempts)
}

func TestRunGreaterAndLessThanExpectations(t *testing.T) {
	t.Parallel()

	results := runPlan(t, `
big:
  value: "10"
  greater_than: 5
small:
  value: "0.5"
  less_than: 1
bad:
  value: "2"
  greater_than: 5
`)
	require.True(t, resultByName(t, results, "big").Pass())
	require.True(t, resultByName(t, results, "small").Pass())

	bad := resultByName(t, results, "bad")
	require.False(t, bad.Pass())
	require.Equal(t, "2 was not greater than 5", *bad.Error)
}
