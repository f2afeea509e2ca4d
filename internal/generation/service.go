// Package generation is the caller layer of the pipeline: it owns drafts,
// ownership checks and the credits charged around a run.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"shortgen/internal/credits"
	"shortgen/internal/domain"
	"shortgen/internal/domain/jsoncfg"
	"shortgen/internal/narrative"
	"shortgen/internal/pipeline"
)

// CharacterInput is one roster entry of a draft.
type CharacterInput struct {
	Name         string `json:"name" validate:"nonblank,max=80"`
	Description  string `json:"description" validate:"max=1000"`
	VisualPrompt string `json:"visualPrompt" validate:"max=1000"`
	Role         string `json:"role" validate:"max=80"`
}

// DraftInput describes a new short.
type DraftInput struct {
	Theme          string           `json:"theme" validate:"nonblank,max=2000"`
	Format         string           `json:"format"`
	TargetDuration int              `json:"targetDuration" validate:"gte=0,lte=3600"`
	StyleID        string           `json:"styleId" validate:"nonblank"`
	ClimateID      string           `json:"climateId" validate:"nonblank"`
	Model          string           `json:"model,omitempty"`
	Language       string           `json:"language,omitempty" validate:"max=16"`
	SceneCount     *int             `json:"sceneCount,omitempty"`
	SceneDuration  *int             `json:"sceneDuration,omitempty"`
	Characters     []CharacterInput `json:"characters,omitempty" validate:"max=12,dive"`
	// Confirmed narrative values are kept even where the guard rails would
	// correct them.
	Confirmed *narrative.PartialConfig `json:"confirmed,omitempty"`
}

// Options wires a Service.
type Options struct {
	Repo         domain.ShortRepository
	Presets      domain.PresetRepository
	Orchestrator *pipeline.Orchestrator
	Ledger       credits.Ledger
	Costs        credits.Costs
	Logger       *zerolog.Logger
}

type Service struct {
	repo    domain.ShortRepository
	presets domain.PresetRepository
	orch    *pipeline.Orchestrator
	ledger  credits.Ledger
	costs   credits.Costs
	logger  zerolog.Logger
}

func NewService(opts Options) (*Service, error) {
	if opts.Repo == nil || opts.Presets == nil || opts.Orchestrator == nil || opts.Ledger == nil {
		return nil, errors.New("generation: repo, presets, orchestrator and ledger are required")
	}
	s := &Service{
		repo:    opts.Repo,
		presets: opts.Presets,
		orch:    opts.Orchestrator,
		ledger:  opts.Ledger,
		costs:   opts.Costs,
		logger:  zerolog.Nop(),
	}
	if s.costs == (credits.Costs{}) {
		s.costs = credits.DefaultCosts
	}
	if opts.Logger != nil {
		s.logger = *opts.Logger
	}
	return s, nil
}

// CreateDraft validates in and stores a DRAFT short. The returned warnings
// cover format fallbacks, guard-rail corrections and soft override limits.
func (s *Service) CreateDraft(ctx context.Context, userID string, in DraftInput) (*domain.Short, []string, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil, domain.ErrUnauthorized
	}
	if err := jsoncfg.ValidateStruct("", in); err != nil {
		return nil, nil, err
	}
	format, _ := narrative.ParseFormat(in.Format)
	confirmed, err := confirmedNarrative(in.Confirmed)
	if err != nil {
		return nil, nil, err
	}
	short := &domain.Short{
		UserID:         userID,
		Theme:          strings.TrimSpace(in.Theme),
		Language:       narrative.ResolveString(strings.TrimSpace(in.Language), jsoncfg.DefaultLanguage),
		Format:         format,
		TargetDuration: in.TargetDuration,
		StyleID:        strings.TrimSpace(in.StyleID),
		ClimateID:      strings.TrimSpace(in.ClimateID),
		SceneCount:     positive(in.SceneCount),
		SceneDuration:  positive(in.SceneDuration),
		Confirmed:      confirmed,
		Status:         domain.ShortStatusDraft,
	}
	if m := strings.TrimSpace(in.Model); m != "" {
		ref, err := domain.ParseModelRef(m)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: model: %v", domain.ErrValidation, err)
		}
		short.Model = &ref
	}
	roster := make([]domain.Character, 0, len(in.Characters))
	for _, c := range in.Characters {
		roster = append(roster, domain.Character{
			Name:         strings.TrimSpace(c.Name),
			Description:  strings.TrimSpace(c.Description),
			VisualPrompt: strings.TrimSpace(c.VisualPrompt),
			Role:         strings.TrimSpace(c.Role),
		})
	}

	// Building the payload now surfaces incomplete presets before anything
	// is stored.
	payload, err := pipeline.BuildPayload(ctx, s.presets, short, roster)
	if err != nil {
		return nil, nil, err
	}
	warnings := payload.Warnings
	if in.Format != "" && !strings.EqualFold(strings.TrimSpace(in.Format), string(format)) {
		warnings = append([]string{fmt.Sprintf("format %q is unknown, using %s", in.Format, format)}, warnings...)
	}

	if err := s.repo.Create(ctx, short, roster); err != nil {
		return nil, nil, fmt.Errorf("create short: %w", err)
	}
	s.logger.Info().Str("job_id", short.ID).Str("user_id", userID).Str("format", string(format)).Msg("draft created")
	return short, warnings, nil
}

func confirmedNarrative(in *narrative.PartialConfig) (domain.ConfirmedNarrative, error) {
	if in == nil {
		return domain.ConfirmedNarrative{}, nil
	}
	token := func(v *string) string {
		if v == nil {
			return ""
		}
		return strings.ToUpper(strings.TrimSpace(*v))
	}
	out := domain.ConfirmedNarrative{
		EmotionalState:    token(in.EmotionalState),
		RevelationDynamic: token(in.RevelationDynamic),
		HookType:          token(in.HookType),
		ClosingType:       token(in.ClosingType),
	}
	if in.NarrativePressure != nil && strings.TrimSpace(string(*in.NarrativePressure)) != "" {
		p, ok := narrative.ParsePressure(string(*in.NarrativePressure))
		if !ok {
			return domain.ConfirmedNarrative{}, fmt.Errorf("%w: confirmed.narrativePressure %q is unknown", domain.ErrValidation, *in.NarrativePressure)
		}
		out.NarrativePressure = string(p)
	}
	return out, nil
}

// Get returns the caller's short with its scenes.
func (s *Service) Get(ctx context.Context, userID, shortID string) (*domain.Short, error) {
	short, err := s.orch.Load(ctx, shortID)
	if err != nil {
		return nil, err
	}
	if short.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return short, nil
}

// Quote is the credit price of a run.
type Quote struct {
	Step   pipeline.Step
	Stages []pipeline.Stage
	Amount int
	// Images is the number of scene images included in Amount.
	Images int
}

// Quote prices step for the caller's short without changing anything.
func (s *Service) Quote(ctx context.Context, userID, shortID string, step pipeline.Step) (*domain.Short, Quote, error) {
	owned, err := s.repo.GetByID(ctx, shortID)
	if err != nil {
		return nil, Quote{}, err
	}
	if owned.UserID != userID {
		return nil, Quote{}, domain.ErrNotFound
	}
	short, plan, err := s.orch.Prepare(ctx, shortID, step)
	if err != nil {
		return nil, Quote{}, err
	}
	amount, images, err := s.price(ctx, short, plan)
	if err != nil {
		return nil, Quote{}, err
	}
	return short, Quote{Step: step, Stages: plan.Stages, Amount: amount, Images: images}, nil
}

// Trigger charges the caller for step, runs it and returns the short with
// its scenes. A failed run is refunded in full. On a stage failure the
// short is returned together with the error.
func (s *Service) Trigger(ctx context.Context, userID, shortID string, step pipeline.Step) (*domain.Short, error) {
	_, quote, err := s.Quote(ctx, userID, shortID, step)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With().Str("job_id", shortID).Str("user_id", userID).Str("step", string(step)).Logger()
	ctx = logger.WithContext(ctx)

	runErr := credits.Charge(ctx, s.ledger, credits.Request{
		UserID:  userID,
		Feature: FeatureFor(step),
		Amount:  quote.Amount,
		Metadata: map[string]any{
			"short_id": shortID,
			"step":     string(step),
		},
	}, func(ctx context.Context) error {
		return s.orch.Run(ctx, shortID, step)
	})

	var stageErr *pipeline.StageError
	if runErr != nil && !errors.As(runErr, &stageErr) {
		return nil, runErr
	}
	short, err := s.orch.Load(context.WithoutCancel(ctx), shortID)
	if err != nil {
		return nil, errors.Join(runErr, err)
	}
	if runErr != nil {
		logger.Warn().Err(runErr).Int("refunded", quote.Amount).Msg("run failed")
		return short, runErr
	}
	s.settle(ctx, userID, step, quote, short)
	return short, nil
}

// FeatureFor names the ledger feature of a step.
func FeatureFor(step pipeline.Step) credits.Feature {
	return credits.Feature("short_" + string(step))
}

// price returns the credits a plan costs and how many images it pays for.
// Plans that write a script are priced on a freshly built payload, so a
// draft whose presets no longer validate is rejected before any charge.
func (s *Service) price(ctx context.Context, short *domain.Short, plan pipeline.Plan) (int, int, error) {
	planned := 0
	if plan.Has(pipeline.StageScript) || (plan.Has(pipeline.StageMedia) && plan.Scenes == 0) {
		roster, err := s.repo.ListCharacters(ctx, short.ID)
		if err != nil {
			return 0, 0, err
		}
		payload, err := pipeline.BuildPayload(ctx, s.presets, short, roster)
		if err != nil {
			return 0, 0, err
		}
		planned = payload.Constraints.SceneCount
	}
	if plan.Has(pipeline.StageScript) && plan.Has(pipeline.StagePrompts) && plan.Has(pipeline.StageMedia) {
		return s.costs.Full(planned), planned, nil
	}

	amount, images := 0, 0
	if plan.Has(pipeline.StageScript) {
		amount += s.costs.Script
	}
	if plan.Has(pipeline.StagePrompts) {
		amount += s.costs.Prompts
	}
	if plan.Has(pipeline.StageMedia) {
		switch {
		case plan.Scenes == 0:
			images = planned
		case plan.Has(pipeline.StagePrompts):
			images = plan.Scenes
		default:
			images = plan.Prompted
		}
		amount += s.costs.Media(images)
	}
	return amount, images, nil
}

// settle refunds the images a successful run paid for but did not render,
// which happens when the script has fewer scenes than planned or some
// scenes received no prompt.
func (s *Service) settle(ctx context.Context, userID string, step pipeline.Step, quote Quote, short *domain.Short) {
	unused := quote.Images - short.CreditsUsed
	if quote.Images == 0 || unused <= 0 {
		return
	}
	amount := s.costs.Media(unused)
	if amount <= 0 {
		return
	}
	logger := zerolog.Ctx(ctx)
	metadata := map[string]any{"short_id": short.ID, "step": string(step), "unrendered": unused}
	if err := s.ledger.Refund(context.WithoutCancel(ctx), userID, FeatureFor(step), amount, "scenes not rendered", metadata); err != nil {
		logger.Error().Err(err).Int("amount", amount).Msg("unrendered scene refund failed")
		return
	}
	logger.Info().Int("refunded", amount).Int("unrendered", unused).Msg("unrendered scenes refunded")
}

// SceneParamsInput asks for the scene plan of a format and pressure.
type SceneParamsInput struct {
	Format            string `json:"format"`
	NarrativePressure string `json:"narrativePressure"`
	narrative.Overrides
}

// SceneParamsResult is the calculator output plus override warnings.
type SceneParamsResult struct {
	Format   domain.Format          `json:"format"`
	Pressure narrative.Pressure     `json:"narrativePressure"`
	Config   narrative.FormatConfig `json:"config"`
	narrative.SceneParams
	Warnings []string `json:"warnings"`
}

// SceneParams runs the scene calculator and checks manual overrides.
func (s *Service) SceneParams(in SceneParamsInput) SceneParamsResult {
	var warnings []string
	format, ok := narrative.ParseFormat(in.Format)
	if !ok && in.Format != "" {
		warnings = append(warnings, fmt.Sprintf("format %q is unknown, using %s", in.Format, format))
	}
	pressure, ok := narrative.ParsePressure(in.NarrativePressure)
	if !ok && in.NarrativePressure != "" {
		warnings = append(warnings, fmt.Sprintf("narrative pressure %q is unknown, using %s", in.NarrativePressure, pressure))
	}
	params := narrative.CalculateSceneParams(format, pressure)
	warnings = append(warnings, narrative.ValidateOverrides(format, in.Overrides)...)
	if warnings == nil {
		warnings = []string{}
	}
	return SceneParamsResult{
		Format:      format,
		Pressure:    pressure,
		Config:      narrative.ConfigFor(format),
		SceneParams: params,
		Warnings:    warnings,
	}
}

// GuardRail corrects a partial climate configuration.
func (s *Service) GuardRail(in narrative.PartialConfig) narrative.GuardRailResult {
	return narrative.ValidateGuardRails(in)
}

func positive(v *int) *int {
	if v == nil || *v < 1 {
		return nil
	}
	n := *v
	return &n
}
