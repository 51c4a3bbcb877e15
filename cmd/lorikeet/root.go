package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/lorikeet/internal/config"
	"github.com/alexisbeaulieu97/lorikeet/internal/engine"
	"github.com/alexisbeaulieu97/lorikeet/internal/logger"
	"github.com/alexisbeaulieu97/lorikeet/internal/model"
	"github.com/alexisbeaulieu97/lorikeet/internal/report"
)

const defaultPlanPath = "test.yml"

// errStepsFailed signals a clean run whose steps did not all pass; main maps
// it to exit code 1 without printing a second error.
var errStepsFailed = errors.New("one or more steps failed")

type rootFlags struct {
	configPath string
	junitPath  string
	webhooks   []string
	quiet      bool
	verbose    bool
	workers    int
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "lorikeet [test_plan]",
		Short:         "Run a declarative smoke test plan",
		Long:          "lorikeet executes a YAML plan of named steps in dependency order,\nprobing shell commands, HTTP endpoints, and host metrics in parallel.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			planPath := defaultPlanPath
			if len(args) == 1 {
				planPath = args[0]
			}
			return runPlan(cmd.Context(), planPath, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to the template context document")
	cmd.Flags().StringVarP(&flags.junitPath, "junit", "j", "", "Write a JUnit XML report to this path")
	cmd.Flags().StringArrayVarP(&flags.webhooks, "webhook", "w", nil, "POST the result set to this URL (repeatable)")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Suppress the human-readable report")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().IntVarP(&flags.workers, "workers", "n", 0, "Concurrent probe limit (default: logical CPU count)")

	cmd.AddCommand(newVersionCmd())

	return cmd
}

func runPlan(ctx context.Context, planPath string, flags *rootFlags) error {
	level := "info"
	if flags.verbose {
		level = "debug"
	}
	log := logger.New(logger.Options{Level: level, HumanReadable: true})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := executePlan(ctx, planPath, flags, log)

	if !flags.quiet {
		report.NewTerminalReporter(os.Stdout).Write(results)
	}

	if flags.junitPath != "" {
		if err := writeJUnitFile(flags.junitPath, results); err != nil {
			return err
		}
	}

	if len(flags.webhooks) > 0 {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		payload := report.BuildPayload(hostname, results)
		report.NewWebhookClient(log).Deliver(ctx, flags.webhooks, payload)
	}

	if model.HasErrors(results) {
		return errStepsFailed
	}
	return nil
}

// executePlan loads the plan and context documents and hands them to the
// engine. Load failures surface as a synthetic failed step like any other
// plan-load error, so presenters and webhooks still fire.
func executePlan(ctx context.Context, planPath string, flags *rootFlags, log zerolog.Logger) []model.StepResult {
	planText, err := os.ReadFile(planPath)
	if err != nil {
		return []model.StepResult{model.FailedResult(engine.SyntheticStepName, err, 0)}
	}

	var templateContext any
	if flags.configPath != "" {
		contextText, err := os.ReadFile(flags.configPath)
		if err != nil {
			return []model.StepResult{model.FailedResult(engine.SyntheticStepName, err, 0)}
		}
		templateContext, err = config.ParseContext(contextText)
		if err != nil {
			return []model.StepResult{model.FailedResult(engine.SyntheticStepName, err, 0)}
		}
	}

	return engine.Run(ctx, engine.RunOptions{
		PlanText: string(planText),
		Context:  templateContext,
		Workers:  flags.workers,
		Logger:   log,
	})
}

func writeJUnitFile(path string, results []model.StepResult) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return report.WriteJUnit(file, results)
}
