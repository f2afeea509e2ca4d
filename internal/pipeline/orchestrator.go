// Package pipeline runs the script, prompt and media stages of a short and
// owns its status transitions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shortgen/internal/domain"
	"shortgen/internal/providers/image"
	"shortgen/internal/providers/prompt"
	"shortgen/internal/runlock"
)

const maxErrorMessage = 500

// ModelSource resolves the default model of every role.
type ModelSource interface {
	Get(ctx context.Context) (domain.ModelSet, error)
}

// Providers resolves adapters for a model reference.
type Providers interface {
	Writer(ref domain.ModelRef) (prompt.Writer, error)
	Generator(ref domain.ModelRef) (image.Generator, error)
}

// Mirror copies a generated asset into owned storage.
type Mirror interface {
	Copy(ctx context.Context, sourceURL, keyPrefix string) (string, error)
}

// Options wires an Orchestrator. Locker, Mirror, BatchSize and Logger are
// optional.
type Options struct {
	Repo      domain.ShortRepository
	Presets   domain.PresetRepository
	Models    ModelSource
	Providers Providers
	Locker    runlock.Locker
	Mirror    Mirror
	BatchSize int
	Logger    *zerolog.Logger
}

// Orchestrator sequences the stages of a short. It never touches credits.
type Orchestrator struct {
	repo      domain.ShortRepository
	presets   domain.PresetRepository
	models    ModelSource
	providers Providers
	locker    runlock.Locker
	mirror    Mirror
	batchSize int
	logger    zerolog.Logger
	now       func() time.Time
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Repo == nil || opts.Presets == nil || opts.Models == nil || opts.Providers == nil {
		return nil, errors.New("pipeline: repo, presets, models and providers are required")
	}
	o := &Orchestrator{
		repo:      opts.Repo,
		presets:   opts.Presets,
		models:    opts.Models,
		providers: opts.Providers,
		locker:    opts.Locker,
		mirror:    opts.Mirror,
		batchSize: opts.BatchSize,
		logger:    zerolog.Nop(),
		now:       time.Now,
	}
	if o.locker == nil {
		o.locker = runlock.NewLocalLocker()
	}
	if o.batchSize <= 0 {
		o.batchSize = DefaultBatchSize
	}
	if opts.Logger != nil {
		o.logger = *opts.Logger
	}
	return o, nil
}

type run struct {
	short  *domain.Short
	models domain.ModelSet
	logger zerolog.Logger
	// failed is set once a stage has already written FAILED itself.
	failed bool
}

// Prepare loads the short and plans step without changing anything. It
// returns ErrConflict when a run is in progress.
func (o *Orchestrator) Prepare(ctx context.Context, shortID string, step Step) (*domain.Short, Plan, error) {
	short, err := o.repo.GetByID(ctx, shortID)
	if err != nil {
		return nil, Plan{}, err
	}
	if short.Status.Running() {
		return nil, Plan{}, fmt.Errorf("%w: short is %s", domain.ErrConflict, short.Status)
	}
	scenes, err := o.repo.ListScenes(ctx, shortID)
	if err != nil {
		return nil, Plan{}, fmt.Errorf("load scenes: %w", err)
	}
	plan, err := PlanRun(step, scenes)
	if err != nil {
		return nil, Plan{}, err
	}
	short.Scenes = scenes
	return short, plan, nil
}

// Run executes step against the short. Admission is atomic: the short must
// be DRAFT or FAILED and no other run may hold its lock. A failing stage
// leaves the short FAILED and is returned as *StageError. A successful
// script or prompts step returns the short to DRAFT.
func (o *Orchestrator) Run(ctx context.Context, shortID string, step Step) error {
	release, err := o.locker.Acquire(ctx, shortID)
	if err != nil {
		return err
	}
	defer release()

	short, plan, err := o.Prepare(ctx, shortID, step)
	if err != nil {
		return err
	}
	models, err := o.resolveModels(ctx, short)
	if err != nil {
		return err
	}

	r := &run{
		short:  short,
		models: models,
		logger: o.logger.With().Str("job_id", short.ID).Str("step", string(step)).Logger(),
	}
	ctx = r.logger.WithContext(ctx)

	first := plan.Stages[0]
	if err := o.repo.BeginRun(ctx, short.ID, first.Status(), first.StartProgress()); err != nil {
		return err
	}
	r.logger.Info().Interface("stages", plan.Stages).Msg("run started")

	for i, stage := range plan.Stages {
		if i > 0 {
			progress := stage.StartProgress()
			if err := o.repo.UpdateStatus(ctx, short.ID, domain.StatusUpdate{Status: stage.Status(), Progress: &progress}); err != nil {
				return o.fail(ctx, r, stage, fmt.Errorf("enter %s: %w", stage, err))
			}
		}
		if err := o.runStage(ctx, r, stage); err != nil {
			return o.fail(ctx, r, stage, err)
		}
	}

	last := plan.Stages[len(plan.Stages)-1]
	if last != StageMedia {
		progress := progressScriptDone
		if last == StagePrompts {
			progress = progressPromptsDone
		}
		if err := o.repo.UpdateStatus(ctx, short.ID, domain.StatusUpdate{Status: domain.ShortStatusDraft, Progress: &progress}); err != nil {
			return o.fail(ctx, r, last, fmt.Errorf("finish %s: %w", last, err))
		}
	}
	r.logger.Info().Msg("run finished")
	return nil
}

func (o *Orchestrator) runStage(ctx context.Context, r *run, stage Stage) error {
	logger := r.logger.With().Str("stage", string(stage)).Logger()
	logger.Info().Msg("stage started")
	var err error
	switch stage {
	case StageScript:
		logger.Debug().Str("provider", string(r.models.Script.Provider)).Str("model", r.models.Script.ModelID).Msg("script model")
		err = o.runScript(ctx, r)
	case StagePrompts:
		logger.Debug().Str("provider", string(r.models.Prompt.Provider)).Str("model", r.models.Prompt.ModelID).Msg("prompt model")
		err = o.runPrompts(ctx, r)
		if err == nil {
			progress := progressPromptsDone
			err = o.repo.UpdateStatus(ctx, r.short.ID, domain.StatusUpdate{Progress: &progress})
		}
	case StageMedia:
		logger.Debug().Str("provider", string(r.models.Image.Provider)).Str("model", r.models.Image.ModelID).Msg("image model")
		err = o.runMedia(ctx, r)
	default:
		err = fmt.Errorf("unknown stage %q", stage)
	}
	return err
}

// fail marks the short FAILED unless the stage already did and wraps err.
func (o *Orchestrator) fail(ctx context.Context, r *run, stage Stage, err error) error {
	r.logger.Error().Err(err).Str("stage", string(stage)).Msg("stage failed")
	if !r.failed {
		msg := prompt.Truncate(err.Error(), maxErrorMessage)
		if uerr := o.repo.UpdateStatus(context.WithoutCancel(ctx), r.short.ID, domain.StatusUpdate{
			Status:       domain.ShortStatusFailed,
			ErrorMessage: &msg,
		}); uerr != nil {
			r.logger.Error().Err(uerr).Msg("marking short failed")
			err = errors.Join(err, uerr)
		}
	}
	return &StageError{Stage: stage, Err: err}
}

// resolveModels applies the short's model override to the roles its
// provider can serve: text providers replace the script and prompt models,
// image providers replace the image model.
func (o *Orchestrator) resolveModels(ctx context.Context, short *domain.Short) (domain.ModelSet, error) {
	set, err := o.models.Get(ctx)
	if err != nil {
		return domain.ModelSet{}, fmt.Errorf("resolve models: %w", err)
	}
	if short.Model == nil || short.Model.IsZero() {
		return set, nil
	}
	ref := *short.Model
	matched := false
	if _, err := o.providers.Writer(ref); err == nil {
		set.Script, set.Prompt = ref, ref
		matched = true
	}
	if _, err := o.providers.Generator(ref); err == nil {
		set.Image = ref
		matched = true
	}
	if !matched {
		return domain.ModelSet{}, fmt.Errorf("%w: model %s is not configured", domain.ErrUnsupportedProvider, ref)
	}
	return set, nil
}

// Load returns the short with its scenes.
func (o *Orchestrator) Load(ctx context.Context, shortID string) (*domain.Short, error) {
	short, err := o.repo.GetByID(ctx, shortID)
	if err != nil {
		return nil, err
	}
	scenes, err := o.repo.ListScenes(ctx, shortID)
	if err != nil {
		return nil, err
	}
	short.Scenes = scenes
	return short, nil
}
