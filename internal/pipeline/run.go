// Package pipeline provides the orchestration of the training pipeline: it resolves each requested
// stage from the artifact cache or by running it, enforces the validation and promotion gates and
// records the ordered run.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/autoclaim-ml/internal/cache"
	"github.com/jonathan/autoclaim-ml/internal/config"
	"github.com/jonathan/autoclaim-ml/internal/pipeline/steps"
	"github.com/jonathan/autoclaim-ml/internal/store"
	"github.com/jonathan/autoclaim-ml/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage    string              `json:"stage"`
	Category string              `json:"category"`
	Position int                 `json:"position"`
	Total    int                 `json:"total"`
	Source   string              `json:"source"`
	Identity types.StageIdentity `json:"identity"`
	Message  string              `json:"message,omitempty"`
	RunID    string              `json:"run_id,omitempty"`
	Artifact types.Artifact      `json:"artifact,omitempty"`
}

// ProgressCallback is called after each stage of the plan is resolved
type ProgressCallback func(event ProgressEvent)

// Recorder persists the run audit trail. db.DB implements it.
type Recorder interface {
	StartRun(ctx context.Context, run *types.PipelineRun) error
	RecordStage(ctx context.Context, runID uuid.UUID, entry types.RunEntry) error
	CompleteRun(ctx context.Context, run *types.PipelineRun) error
}

// Options holds everything the Runner needs. Configs, Stages and Cache are required.
type Options struct {
	Configs    config.StageConfigs
	Stages     Stages
	Cache      *cache.Cache
	Logger     *slog.Logger
	Recorder   Recorder
	RunsDir    string // run records are written here as <run_id>.json when set
	OnProgress ProgressCallback
}

// Result is the outcome of one invocation
type Result struct {
	// Artifact is the target stage's artifact, or for "all" the last artifact produced
	Artifact types.Artifact
	Run      *types.PipelineRun
	// Skipped lists stages of the plan that were intentionally not executed
	Skipped []string
}

// Runner executes requested stages in dependency order
type Runner struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Runner
func New(opts Options) (*Runner, error) {
	if opts.Cache == nil {
		return nil, fmt.Errorf("pipeline: artifact cache is required")
	}
	if err := opts.Stages.validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{opts: opts, logger: logger}, nil
}

// Run resolves the artifact for target, one of the stage names or "all". With force the target
// stage (every stage for "all") is recomputed; others still come from the cache. Within one call
// every stage identity is resolved at most once.
//
// A failed validation returns the validation artifact together with a *types.ValidationFailure.
// The returned Result is non-nil whenever the plan was valid, even on error.
func (r *Runner) Run(ctx context.Context, target string, force bool) (*Result, error) {
	plan, err := steps.Plan(target)
	if err != nil {
		return nil, err
	}

	run := types.NewPipelineRun(target, force)
	log := r.logger.With("run_id", run.ID.String(), "target", target)
	log.Info("pipeline started", "plan", plan, "force", force)
	if r.opts.Recorder != nil {
		if err := r.opts.Recorder.StartRun(ctx, run); err != nil {
			log.Warn("failed to record run start", "error", err)
		}
	}

	e := &execution{
		runner:   r,
		log:      log,
		session:  r.opts.Cache.NewSession(),
		run:      run,
		target:   target,
		force:    force,
		plan:     plan,
		resolved: map[string]bool{},
	}
	artifact, err := e.execute(ctx)

	var failure *types.ValidationFailure
	switch {
	case err == nil:
		run.Finish(types.RunStatusCompleted, nil)
		log.Info("pipeline completed", "entries", len(run.Entries), "skipped", e.skipped)
	case errors.As(err, &failure):
		run.Finish(types.RunStatusHalted, err)
		log.Warn("pipeline halted by validation", "message", failure.Message)
	default:
		run.Finish(types.RunStatusFailed, err)
		log.Error("pipeline failed", "error", err)
	}

	// completion is recorded even when the caller cancelled
	auditCtx := context.WithoutCancel(ctx)
	if r.opts.Recorder != nil {
		if rerr := r.opts.Recorder.CompleteRun(auditCtx, run); rerr != nil {
			log.Warn("failed to record run completion", "error", rerr)
		}
	}
	if r.opts.RunsDir != "" {
		if werr := WriteRunRecord(r.opts.RunsDir, run); werr != nil {
			log.Warn("failed to write run record", "error", werr)
		}
	}

	return &Result{Artifact: artifact, Run: run, Skipped: e.skipped}, err
}

// WriteRunRecord writes the run as <dir>/<run_id>.json
func WriteRunRecord(dir string, run *types.PipelineRun) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	return store.WriteFileAtomic(filepath.Join(dir, run.ID.String()+".json"), data, 0644)
}

// execution is the state of one Run call
type execution struct {
	runner  *Runner
	log     *slog.Logger
	session *cache.Session
	run     *types.PipelineRun
	target  string
	force   bool
	plan    []string
	skipped []string

	// resolved holds the stages whose artifact is available to later steps
	resolved map[string]bool

	ingID, valID, trfID, trnID, evalID types.StageIdentity

	ing  types.IngestionArtifact
	val  types.ValidationArtifact
	trf  types.TransformationArtifact
	trn  types.TrainingArtifact
	eval types.EvaluationArtifact
}

func (e *execution) forced(stage string) bool {
	return e.force && (e.target == types.StageAll || e.target == stage)
}

func (e *execution) execute(ctx context.Context) (types.Artifact, error) {
	var last types.Artifact
	for _, name := range e.plan {
		artifact, err := e.step(ctx, name)
		if artifact != nil {
			last = artifact
		}
		if err != nil {
			return last, err
		}
	}
	return last, nil
}

// step resolves one stage. Its dependencies must have been resolved by earlier steps.
func (e *execution) step(ctx context.Context, name string) (types.Artifact, error) {
	cfg := e.runner.opts.Configs
	stages := e.runner.opts.Stages

	if err := steps.ValidateDependencies(name, e.resolved); err != nil {
		var depErr *steps.DependencyError
		if !errors.As(err, &depErr) {
			return nil, err
		}
		return nil, &StageError{Stage: name, Cause: &types.UpstreamDataError{
			Stage:   name,
			Input:   strings.Join(depErr.MissingDependencies, ", "),
			Message: "artifact not resolved before this stage",
			Cause:   err,
		}}
	}

	switch name {
	case types.StageIngestion:
		id, err := steps.IngestionIdentity(cfg.Ingestion)
		if err != nil {
			return nil, identityError(name, err)
		}
		e.ingID = id
		e.ing, err = resolve(ctx, e, id, func(ctx context.Context) (types.IngestionArtifact, error) {
			return stages.Ingestion.Run(ctx, id)
		})
		if err != nil {
			return nil, err
		}
		return e.ing, nil

	case types.StageValidation:
		id, err := steps.ValidationIdentity(cfg.Validation, steps.Input{Identity: e.ingID, Artifact: e.ing})
		if err != nil {
			return nil, identityError(name, err)
		}
		e.valID = id
		e.val, err = resolve(ctx, e, id, func(ctx context.Context) (types.ValidationArtifact, error) {
			return stages.Validation.Run(ctx, id, e.ing)
		})
		if err != nil {
			return nil, err
		}
		if !e.val.Status {
			return e.val, &types.ValidationFailure{Message: e.val.Message, ReportPath: e.val.ReportPath}
		}
		return e.val, nil

	case types.StageTransformation:
		id, err := steps.TransformationIdentity(cfg.Transformation,
			steps.Input{Identity: e.ingID, Artifact: e.ing},
			steps.Input{Identity: e.valID, Artifact: e.val})
		if err != nil {
			return nil, identityError(name, err)
		}
		e.trfID = id
		e.trf, err = resolve(ctx, e, id, func(ctx context.Context) (types.TransformationArtifact, error) {
			return stages.Transformation.Run(ctx, id, e.ing, e.val)
		})
		if err != nil {
			return nil, err
		}
		return e.trf, nil

	case types.StageTraining:
		id, err := steps.TrainingIdentity(cfg.Training, steps.Input{Identity: e.trfID, Artifact: e.trf})
		if err != nil {
			return nil, identityError(name, err)
		}
		e.trnID = id
		e.trn, err = resolve(ctx, e, id, func(ctx context.Context) (types.TrainingArtifact, error) {
			return stages.Training.Run(ctx, id, e.trf)
		})
		if err != nil {
			return nil, err
		}
		return e.trn, nil

	case types.StageEvaluation:
		digest, err := stages.Evaluation.ChampionDigest(ctx)
		if err != nil {
			return nil, &StageError{Stage: name, Cause: err}
		}
		id, err := steps.EvaluationIdentity(cfg.Evaluation, digest,
			steps.Input{Identity: e.ingID, Artifact: e.ing},
			steps.Input{Identity: e.trnID, Artifact: e.trn})
		if err != nil {
			return nil, identityError(name, err)
		}
		e.evalID = id
		e.eval, err = resolve(ctx, e, id, func(ctx context.Context) (types.EvaluationArtifact, error) {
			return stages.Evaluation.Run(ctx, id, e.ing, e.trn)
		})
		if err != nil {
			return nil, err
		}
		return e.eval, nil

	case types.StagePush:
		id, err := steps.PushIdentity(cfg.Pusher, steps.Input{Identity: e.evalID, Artifact: e.eval})
		if err != nil {
			return nil, identityError(name, err)
		}
		if !e.eval.Accepted {
			if e.target == types.StageAll {
				e.skip(ctx, id, "evaluation did not accept the challenger")
				return nil, nil
			}
			return nil, &types.PromotionRejected{ChallengerScore: e.eval.ChallengerScore, ChampionScore: e.eval.ChampionScore}
		}
		artifact, err := resolve(ctx, e, id, func(ctx context.Context) (types.PushArtifact, error) {
			return stages.Push.Run(ctx, id, e.eval)
		})
		if err != nil {
			return nil, err
		}
		return artifact, nil
	}
	return nil, &steps.UnknownStageError{Name: name}
}

// resolve gets an artifact from the session, the cache or compute, and records the entry
func resolve[T types.Artifact](ctx context.Context, e *execution, id types.StageIdentity, compute func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	log := e.log.With("stage", id.Stage, "identity", id.Short())

	artifact, source, err := cache.GetOrCompute(ctx, e.session, id, e.forced(id.Stage), compute)
	duration := time.Since(start)
	if err != nil {
		log.Error("stage failed", "error", err, "duration", duration)
		return artifact, &StageError{Stage: id.Stage, Identity: id, Cause: err}
	}

	log.Info("stage resolved", "source", source, "duration", duration)
	e.resolved[id.Stage] = true
	e.record(ctx, types.RunEntry{
		Identity:   id,
		Source:     source,
		Artifact:   artifact,
		DurationMs: duration.Milliseconds(),
	})
	return artifact, nil
}

func (e *execution) skip(ctx context.Context, id types.StageIdentity, reason string) {
	e.log.Info("stage skipped", "stage", id.Stage, "reason", reason)
	e.skipped = append(e.skipped, id.Stage)
	e.record(ctx, types.RunEntry{Identity: id, Source: types.SourceSkipped, Message: reason})
}

func (e *execution) record(ctx context.Context, entry types.RunEntry) {
	e.run.Append(entry)
	if rec := e.runner.opts.Recorder; rec != nil {
		if err := rec.RecordStage(ctx, e.run.ID, entry); err != nil {
			e.log.Warn("failed to record stage", "stage", entry.Identity.Stage, "error", err)
		}
	}
	if cb := e.runner.opts.OnProgress; cb != nil {
		position := 0
		for i, name := range e.plan {
			if name == entry.Identity.Stage {
				position = i + 1
			}
		}
		cb(ProgressEvent{
			Stage:    entry.Identity.Stage,
			Category: steps.StageRegistry[entry.Identity.Stage].Category,
			Position: position,
			Total:    len(e.plan),
			Source:   entry.Source,
			Identity: entry.Identity,
			Message:  entry.Message,
			RunID:    e.run.ID.String(),
			Artifact: entry.Artifact,
		})
	}
}

func identityError(stage string, err error) error {
	return &StageError{Stage: stage, Cause: fmt.Errorf("compute identity: %w", err)}
}
