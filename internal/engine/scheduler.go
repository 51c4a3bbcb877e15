package engine

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/alexisbeaulieu97/lorikeet/internal/backoff"
	"github.com/alexisbeaulieu97/lorikeet/internal/config"
	"github.com/alexisbeaulieu97/lorikeet/internal/expect"
	"github.com/alexisbeaulieu97/lorikeet/internal/filter"
	"github.com/alexisbeaulieu97/lorikeet/internal/model"
	"github.com/alexisbeaulieu97/lorikeet/internal/probe"
)

const (
	dependencyFailedMessage = "dependency failed"
	runCanceledMessage      = "run canceled"
)

// Scheduler executes a built graph: one goroutine per step gated on its
// parents' completion signals, probe work bounded by a weighted semaphore.
type Scheduler struct {
	graph   *Graph
	workers int
	logger  zerolog.Logger
}

// NewScheduler creates a scheduler over the graph. A non-positive worker
// count falls back to the host's logical CPU count.
func NewScheduler(graph *Graph, workers int, logger zerolog.Logger) *Scheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scheduler{
		graph:   graph,
		workers: workers,
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}
}

// Run executes every step and returns results in plan declaration order.
// Cancelling the context aborts in-flight probes and skips pending steps.
func (s *Scheduler) Run(ctx context.Context) ([]model.StepResult, error) {
	rt, err := probe.NewRuntime(s.graph, s.logger)
	if err != nil {
		return nil, err
	}

	sem := semaphore.NewWeighted(int64(s.workers))

	var wg sync.WaitGroup
	for _, node := range s.graph.Nodes {
		wg.Add(1)
		go func(node *Node) {
			defer wg.Done()
			s.runStep(ctx, node, rt, sem)
		}(node)
	}
	wg.Wait()

	results := make([]model.StepResult, 0, len(s.graph.Nodes))
	for _, node := range s.graph.Nodes {
		results = append(results, node.Result)
	}
	return results, nil
}

// runStep drives one node from Pending to a terminal state and fires its
// completion signal exactly once.
func (s *Scheduler) runStep(ctx context.Context, node *Node, rt *probe.Runtime, sem *semaphore.Weighted) {
	step := node.Step
	log := s.logger.With().Str("step", step.Name).Logger()

	for _, parentIdx := range node.Parents {
		<-s.graph.Nodes[parentIdx].Done()
	}

	for _, parentIdx := range node.Parents {
		if s.graph.Nodes[parentIdx].State != model.StatusPassed {
			log.Debug().Str("parent", s.graph.Nodes[parentIdx].Step.Name).Msg("skipping step")
			node.finish(model.StatusSkipped, skippedResult(step, dependencyFailedMessage))
			return
		}
	}

	node.State = model.StatusReady

	if ctx.Err() != nil {
		node.finish(model.StatusSkipped, skippedResult(step, runCanceledMessage))
		return
	}

	if step.DelayMS > 0 {
		if !sleepCtx(ctx, time.Duration(step.DelayMS)*time.Millisecond) {
			node.finish(model.StatusSkipped, skippedResult(step, runCanceledMessage))
			return
		}
	}

	node.State = model.StatusRunning
	log.Debug().Int("retry_count", step.RetryCount).Msg("step running")

	retrier := backoff.NewRetrier(backoff.NewConstantPolicy(
		time.Duration(step.RetryDelayMS)*time.Millisecond, step.RetryCount))

	driver, err := probe.ForStep(step)
	if err != nil {
		node.finish(model.StatusFailed, failedStepResult(step, err.Error(), 0, 0))
		return
	}

	start := time.Now()
	attempts := 0
	var lastOutput string
	var suppress bool
	var lastErr error

	for {
		if err := sem.Acquire(ctx, 1); err != nil {
			if attempts == 0 {
				node.finish(model.StatusSkipped, skippedResult(step, runCanceledMessage))
			} else {
				node.finish(model.StatusFailed,
					failedStepResult(step, lastErr.Error(), time.Since(start), attempts))
			}
			return
		}

		attempts++
		lastOutput, suppress, lastErr = runAttempt(ctx, step, driver, rt)
		sem.Release(1)

		if lastErr == nil {
			break
		}

		log.Debug().Int("attempt", attempts).Str("error", lastErr.Error()).Msg("attempt failed")

		if err := retrier.Next(ctx); err != nil {
			break
		}
	}

	duration := time.Since(start)

	if lastErr != nil {
		result := failedStepResult(step, lastErr.Error(), duration, attempts)
		if !suppress && outputWanted(step) {
			result.Output = &lastOutput
		}
		node.finish(model.StatusFailed, result)
		log.Debug().Dur("duration", duration).Msg("step failed")
		return
	}

	result := model.StepResult{
		Name:        step.Name,
		Description: step.Description,
		Status:      model.StatusPassed,
		Duration:    duration,
		Attempts:    attempts,
	}
	if !suppress && outputWanted(step) {
		result.Output = &lastOutput
	}
	node.finish(model.StatusPassed, result)
	log.Debug().Dur("duration", duration).Msg("step passed")
}

// runAttempt performs one probe -> filter -> expectation pass.
func runAttempt(ctx context.Context, step *config.Step, driver probe.Probe, rt *probe.Runtime) (output string, suppress bool, err error) {
	raw, err := driver.Run(ctx, rt)
	if err != nil {
		return raw, false, err
	}

	filtered, err := filter.Apply(step.Filters, raw)
	if err != nil {
		return raw, false, err
	}

	if err := expect.Evaluate(step.Expect, filtered.Text); err != nil {
		return filtered.Text, filtered.Suppress, err
	}

	return filtered.Text, filtered.Suppress, nil
}

// outputWanted reports whether the probe definition asks for its output to be
// reported at all.
func outputWanted(step *config.Step) bool {
	if step.Shell != nil && !step.Shell.GetOutput {
		return false
	}
	if step.HTTP != nil && !step.HTTP.GetOutput {
		return false
	}
	return true
}

func skippedResult(step *config.Step, message string) model.StepResult {
	return model.StepResult{
		Name:        step.Name,
		Description: step.Description,
		Status:      model.StatusSkipped,
		Error:       &message,
	}
}

func failedStepResult(step *config.Step, message string, duration time.Duration, attempts int) model.StepResult {
	return model.StepResult{
		Name:        step.Name,
		Description: step.Description,
		Status:      model.StatusFailed,
		Error:       &message,
		Duration:    duration,
		Attempts:    attempts,
	}
}

// sleepCtx sleeps for the duration unless the context fires first. Returns
// false when canceled.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
