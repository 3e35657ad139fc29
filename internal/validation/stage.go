package validation

import (
	"context"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/dataset"
	"github.com/jonathan/autoclaim-ml/internal/observability"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

// Partition names used in messages
const (
	PartitionTrain = "training"
	PartitionTest  = "test"
)

// Stage is the data validation stage
type Stage struct {
	cfg    config.ValidationConfig
	logger *slog.Logger
}

// New creates the validation stage
func New(cfg config.ValidationConfig, logger *slog.Logger) *Stage {
	return &Stage{cfg: cfg, logger: observability.StageLogger(logger, types.StageValidation)}
}

// Run checks both splits of the ingestion artifact. A failed check is a normal artifact with
// Status=false; only unreadable inputs or an unwritable report are errors.
func (s *Stage) Run(ctx context.Context, id types.StageIdentity, ing types.IngestionArtifact) (types.ValidationArtifact, error) {
	var trainChecks, testChecks []Check

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		checks, err := s.checkFile(gctx, "train", PartitionTrain, ing.TrainPath)
		trainChecks = checks
		return err
	})
	g.Go(func() error {
		checks, err := s.checkFile(gctx, "test", PartitionTest, ing.TestPath)
		testChecks = checks
		return err
	})
	if err := g.Wait(); err != nil {
		return types.ValidationArtifact{}, err
	}

	checks := append(trainChecks, testChecks...)
	report := Report{ValidationStatus: len(checks) == 0, Message: Message(checks), Checks: checks}
	reportPath := filepath.Join(s.cfg.Dir, id.Fingerprint, ReportFileName)
	if err := WriteReport(reportPath, report); err != nil {
		return types.ValidationArtifact{}, &types.ComputeError{Stage: types.StageValidation, Message: "failed to write validation report", Cause: err}
	}

	if report.ValidationStatus {
		s.logger.Info("data validation passed")
	} else {
		s.logger.Warn("data validation failed", "failed_checks", len(checks), "message", report.Message)
	}
	return types.ValidationArtifact{
		Status:     report.ValidationStatus,
		Message:    report.Message,
		ReportPath: reportPath,
	}, nil
}

func (s *Stage) checkFile(ctx context.Context, input, partition, path string) ([]Check, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, err := dataset.ReadCSV(path)
	if err != nil {
		return nil, &types.UpstreamDataError{
			Stage:   types.StageValidation,
			Input:   input,
			Message: "failed to read ingested " + partition + " data",
			Cause:   err,
		}
	}
	checks := ValidatePartition(s.cfg.Schema, partition, ds)
	s.logger.Debug("partition checked",
		"partition", partition,
		"expected_columns", len(s.cfg.Schema.Columns),
		"actual_columns", len(ds.Columns),
		"failed_checks", len(checks))
	return checks, nil
}
