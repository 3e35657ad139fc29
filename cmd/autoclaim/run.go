package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jonathan/autoclaim-ml/internal/observability"
	"github.com/jonathan/autoclaim-ml/internal/pipeline/steps"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the training pipeline up to a stage",
	Long: `Resolves the requested stage and everything it depends on: ingestion -> validation -> transformation -> training -> evaluation -> push.

Stages whose inputs have not changed are served from the artifact cache. With --force the requested stage
(every stage for "all") is recomputed.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return executeStage(cmd, runStage, runForce)
	},
}

var (
	runStage string
	runForce bool
)

// stageCommands maps the per-stage subcommands to the stage they resolve
var stageCommands = []struct {
	use   string
	stage string
	short string
}{
	{"ingest", types.StageIngestion, "Fetch the collection and split it into train and test sets"},
	{"validate", types.StageValidation, "Check the ingested data against the column schema"},
	{"transform", types.StageTransformation, "Fit the preprocessor and write the feature matrices"},
	{"train", types.StageTraining, "Train the classifier on the transformed data"},
	{"evaluate", types.StageEvaluation, "Score the trained model against the registry champion"},
	{"push", types.StagePush, "Promote the trained model to the registry if it beat the champion"},
}

func init() {
	runCommand.Flags().StringVarP(&runStage, "stage", "s", types.StageAll, "Stage to resolve: ingestion, validation, transformation, training, evaluation, push or all")
	runCommand.Flags().BoolVarP(&runForce, "force", "f", false, "Recompute the requested stage even if it is cached")
	rootCmd.AddCommand(runCommand)

	for _, sc := range stageCommands {
		var force bool
		stage := sc.stage
		cmd := &cobra.Command{
			Use:   sc.use,
			Short: sc.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return executeStage(cmd, stage, force)
			},
		}
		cmd.Flags().BoolVarP(&force, "force", "f", false, "Recompute the stage even if it is cached")
		rootCmd.AddCommand(cmd)
	}
}

func executeStage(cmd *cobra.Command, stage string, force bool) error {
	if err := steps.ValidateStage(stage); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := observability.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()

	a, err := buildApp(ctx, cfg, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	result, runErr := a.runner.Run(ctx, stage, force)
	if result != nil {
		if result.Artifact != nil {
			a.printer.PrintArtifact(result.Artifact)
		}
		for _, skipped := range result.Skipped {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Skipped %s: the trained model did not beat the champion\n", skipped)
		}
		a.printer.PrintRunSummary(result.Run)
	}

	var failure *types.ValidationFailure
	if errors.As(runErr, &failure) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Validation failed: %s\nReport: %s\n", failure.Message, failure.ReportPath)
	}
	return runErr
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
