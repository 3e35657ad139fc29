package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/jonathan/autoclaim-ml/internal/dataset"
	"github.com/jonathan/autoclaim-ml/internal/observability"
	"github.com/jonathan/autoclaim-ml/internal/prediction"
)

var predictCommand = &cobra.Command{
	Use:   "predict",
	Short: "Classify records with the champion model",
	Long: `Loads the champion model from the configured registry (--registry, --model-key) and classifies the
records of a CSV file. The records are written back with a "prediction" column of 0/1 values, to --output
when given and to stdout otherwise.

The input needs the columns the model was trained on; the target column may be absent.`,
	Args: cobra.NoArgs,
	RunE: runPredict,
}

var (
	predictInput  string
	predictOutput string
)

func init() {
	predictCommand.Flags().StringVarP(&predictInput, "input", "i", "", "CSV file with the records to classify (required)")
	predictCommand.Flags().StringVarP(&predictOutput, "output", "o", "", "Write the classified records to this CSV file instead of stdout")
	_ = predictCommand.MarkFlagRequired("input")
	rootCmd.AddCommand(predictCommand)
}

func runPredict(cmd *cobra.Command, _ []string) error {
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

	conns := &connections{cfg: cfg}
	defer conns.close()
	reg, err := buildRegistry(ctx, cfg, conns)
	if err != nil {
		return err
	}

	records, err := dataset.ReadCSV(predictInput)
	if err != nil {
		return err
	}
	classified, err := prediction.New(reg, cfg.ModelKey, logger).Predict(ctx, records)
	if err != nil {
		return err
	}

	if predictOutput == "" {
		return dataset.Encode(cmd.OutOrStdout(), classified)
	}
	if err := dataset.WriteCSV(predictOutput, classified); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Classified %d records with %s\nOutput: %s\n",
		classified.Len(), reg.Location(cfg.ModelKey), predictOutput)
	return nil
}
