package generation

import (
	"context"
	"errors"
	"testing"

	"shortgen/internal/adapter/memstore"
	"shortgen/internal/credits"
	"shortgen/internal/domain"
	"shortgen/internal/modelcfg"
	"shortgen/internal/narrative"
	"shortgen/internal/pipeline"
	"shortgen/internal/presets"
	"shortgen/internal/providers"
	"shortgen/internal/providers/image"
	"shortgen/internal/providers/prompt"
)

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, image.GenerateRequest) (*image.GenerateResponse, error) {
	return nil, domain.ErrProviderFailure
}

type harness struct {
	svc    *Service
	repo   *memstore.Store
	ledger *credits.MemoryLedger
}

// twoSceneWriter writes a two-scene script whatever the payload plans and
// leaves prompts to the static writer.
type twoSceneWriter struct{}

func (twoSceneWriter) Generate(ctx context.Context, req prompt.TextRequest) (string, error) {
	if req.Purpose == domain.ModelRoleScript {
		return `{"title":"T","scenes":[` +
			`{"order":0,"narration":"a","visualDescription":"va"},` +
			`{"order":1,"narration":"b","visualDescription":"vb"}]}`, nil
	}
	return prompt.NewStaticWriter().Generate(ctx, req)
}

func newHarness(t *testing.T, generator image.Generator) *harness {
	t.Helper()
	return newHarnessWithWriter(t, prompt.NewStaticWriter(), generator)
}

func newHarnessWithWriter(t *testing.T, writer prompt.Writer, generator image.Generator) *harness {
	t.Helper()
	catalog, err := presets.Load("")
	if err != nil {
		t.Fatalf("load presets: %v", err)
	}
	registry := providers.NewRegistry()
	registry.RegisterWriter(domain.ProviderStatic, writer)
	registry.RegisterGenerator(domain.ProviderStatic, generator)

	static := domain.ModelRef{Provider: domain.ProviderStatic}
	repo := memstore.New()
	orch, err := pipeline.New(pipeline.Options{
		Repo:      repo,
		Presets:   catalog,
		Models:    modelcfg.StaticSource{Set: domain.ModelSet{Script: static, Prompt: static, Image: static}},
		Providers: registry,
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	ledger := credits.NewMemoryLedger()
	svc, err := NewService(Options{Repo: repo, Presets: catalog, Orchestrator: orch, Ledger: ledger})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &harness{svc: svc, repo: repo, ledger: ledger}
}

func validDraft() DraftInput {
	return DraftInput{
		Theme:      "the last tram of the night",
		Format:     "short",
		StyleID:    "storyteller",
		ClimateID:  "curious",
		Characters: []CharacterInput{{Name: "Driver", Role: "narrator"}},
	}
}

func balance(t *testing.T, l *credits.MemoryLedger, user string) int {
	t.Helper()
	b, err := l.Balance(context.Background(), user)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	return b
}

func TestCreateDraft(t *testing.T) {
	t.Parallel()
	h := newHarness(t, image.NewStaticGenerator())
	short, warnings, err := h.svc.CreateDraft(context.Background(), "u1", validDraft())
	if err != nil {
		t.Fatalf("CreateDraft returned error: %v", err)
	}
	if short.Status != domain.ShortStatusDraft || short.Format != domain.FormatShort || short.Language != "en" {
		t.Fatalf("unexpected draft: %+v", short)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	roster, _ := h.repo.ListCharacters(context.Background(), short.ID)
	if len(roster) != 1 || roster[0].Name != "Driver" {
		t.Fatalf("roster = %+v", roster)
	}
}

func TestCreateDraftWarnings(t *testing.T) {
	t.Parallel()
	h := newHarness(t, image.NewStaticGenerator())
	in := validDraft()
	in.Format = "VERTICAL"
	huge := 40
	in.SceneCount = &huge
	short, warnings, err := h.svc.CreateDraft(context.Background(), "u1", in)
	if err != nil {
		t.Fatalf("CreateDraft returned error: %v", err)
	}
	if short.Format != domain.FormatShort {
		t.Fatalf("format = %s, want SHORT fallback", short.Format)
	}
	if len(warnings) < 2 {
		t.Fatalf("expected format and override warnings, got %v", warnings)
	}
}

func TestCreateDraftValidation(t *testing.T) {
	t.Parallel()
	h := newHarness(t, image.NewStaticGenerator())
	cases := map[string]func(*DraftInput){
		"blank theme":     func(in *DraftInput) { in.Theme = "  " },
		"missing style":   func(in *DraftInput) { in.StyleID = "" },
		"unknown style":   func(in *DraftInput) { in.StyleID = "telenovela" },
		"unknown climate": func(in *DraftInput) { in.ClimateID = "sleepy" },
		"bad model":       func(in *DraftInput) { in.Model = "acme:rocket" },
		"nameless hero":   func(in *DraftInput) { in.Characters = []CharacterInput{{Role: "hero"}} },
	}
	for name, mutate := range cases {
		in := validDraft()
		mutate(&in)
		if _, _, err := h.svc.CreateDraft(context.Background(), "u1", in); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: error = %v, want ErrValidation", name, err)
		}
	}
}

func TestTriggerChargesAndCompletes(t *testing.T) {
	t.Parallel()
	h := newHarness(t, image.NewStaticGenerator())
	ctx := context.Background()
	short, _, err := h.svc.CreateDraft(ctx, "u1", validDraft())
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if _, err := h.ledger.Grant(ctx, "u1", 20, "test"); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	_, quote, err := h.svc.Quote(ctx, "u1", short.ID, pipeline.StepFull)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Amount != 6 {
		t.Fatalf("quote = %d, want 1+1+4", quote.Amount)
	}

	got, err := h.svc.Trigger(ctx, "u1", short.ID, pipeline.StepFull)
	if err != nil {
		t.Fatalf("Trigger returned error: %v", err)
	}
	if got.Status != domain.ShortStatusCompleted || len(got.Scenes) != 4 {
		t.Fatalf("short = %s with %d scenes", got.Status, len(got.Scenes))
	}
	if b := balance(t, h.ledger, "u1"); b != 14 {
		t.Fatalf("balance = %d, want 14", b)
	}
}

func TestTriggerRefundsUnrenderedScenes(t *testing.T) {
	t.Parallel()
	h := newHarnessWithWriter(t, twoSceneWriter{}, image.NewStaticGenerator())
	ctx := context.Background()
	short, _, err := h.svc.CreateDraft(ctx, "u1", validDraft())
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	_, _ = h.ledger.Grant(ctx, "u1", 20, "test")

	got, err := h.svc.Trigger(ctx, "u1", short.ID, pipeline.StepFull)
	if err != nil {
		t.Fatalf("Trigger returned error: %v", err)
	}
	if got.Status != domain.ShortStatusCompleted || got.CreditsUsed != 2 {
		t.Fatalf("short = %s credits=%d", got.Status, got.CreditsUsed)
	}
	if b := balance(t, h.ledger, "u1"); b != 16 {
		t.Fatalf("balance = %d, want 20 - (1+1+4) + 2 unrendered", b)
	}
	entries, _ := h.ledger.Entries(ctx, "u1", 10)
	refunds := 0
	for _, e := range entries {
		if e.Kind == credits.KindRefund {
			refunds++
			if e.Amount != 2 {
				t.Fatalf("refund amount = %d, want 2", e.Amount)
			}
		}
	}
	if refunds != 1 {
		t.Fatalf("ledger entries = %+v", entries)
	}
}

func TestTriggerRejectsInvalidPresetsBeforeCharging(t *testing.T) {
	t.Parallel()
	h := newHarness(t, image.NewStaticGenerator())
	ctx := context.Background()
	short := &domain.Short{UserID: "u1", Theme: "retired style", Format: domain.FormatShort, StyleID: "retired", ClimateID: "curious"}
	if err := h.repo.Create(ctx, short, nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, _ = h.ledger.Grant(ctx, "u1", 5, "test")

	_, err := h.svc.Trigger(ctx, "u1", short.ID, pipeline.StepScript)
	var stageErr *pipeline.StageError
	if !errors.Is(err, domain.ErrValidation) || errors.As(err, &stageErr) {
		t.Fatalf("error = %v, want a plain validation error", err)
	}
	entries, _ := h.ledger.Entries(ctx, "u1", 10)
	if len(entries) != 1 || entries[0].Kind != credits.KindGrant {
		t.Fatalf("ledger touched: %+v", entries)
	}
	stored, _ := h.repo.GetByID(ctx, short.ID)
	if stored.Status != domain.ShortStatusDraft {
		t.Fatalf("status = %s, want DRAFT", stored.Status)
	}
}

func TestCreateDraftKeepsConfirmedNarrative(t *testing.T) {
	t.Parallel()
	h := newHarness(t, image.NewStaticGenerator())
	ctx := context.Background()
	in := validDraft()
	in.ClimateID = "dread"
	early := "early"
	fast := narrative.Pressure("fast")
	in.Confirmed = &narrative.PartialConfig{RevelationDynamic: &early, NarrativePressure: &fast}

	short, _, err := h.svc.CreateDraft(ctx, "u1", in)
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	want := domain.ConfirmedNarrative{RevelationDynamic: "EARLY", NarrativePressure: "FAST"}
	if short.Confirmed != want {
		t.Fatalf("confirmed = %+v, want %+v", short.Confirmed, want)
	}

	catalog, _ := presets.Load("")
	stored, _ := h.repo.GetByID(ctx, short.ID)
	payload, err := pipeline.BuildPayload(ctx, catalog, stored, nil)
	if err != nil {
		t.Fatalf("BuildPayload: %v", err)
	}
	if payload.Climate.RevelationDynamic != "EARLY" {
		t.Fatalf("revelation = %s, want the confirmed EARLY", payload.Climate.RevelationDynamic)
	}

	_, quote, err := h.svc.Quote(ctx, "u1", short.ID, pipeline.StepFull)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if quote.Images != 6 || quote.Amount != 8 {
		t.Fatalf("quote = %+v, want 6 FAST scenes for 8 credits", quote)
	}

	bad := narrative.Pressure("frantic")
	in.Confirmed = &narrative.PartialConfig{NarrativePressure: &bad}
	if _, _, err := h.svc.CreateDraft(ctx, "u1", in); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation for an unknown pressure", err)
	}
}

func TestTriggerInsufficientCredits(t *testing.T) {
	t.Parallel()
	h := newHarness(t, image.NewStaticGenerator())
	ctx := context.Background()
	short, _, _ := h.svc.CreateDraft(ctx, "u1", validDraft())
	_, _ = h.ledger.Grant(ctx, "u1", 2, "test")

	_, err := h.svc.Trigger(ctx, "u1", short.ID, pipeline.StepFull)
	var insufficient *credits.InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("error = %v, want InsufficientCreditsError", err)
	}
	if insufficient.Required != 6 || insufficient.Available != 2 {
		t.Fatalf("insufficient = %+v", insufficient)
	}
	stored, _ := h.repo.GetByID(ctx, short.ID)
	if stored.Status != domain.ShortStatusDraft || stored.Progress != 0 {
		t.Fatalf("short mutated without credits: %s/%d", stored.Status, stored.Progress)
	}
}

func TestTriggerRefundsFailedRun(t *testing.T) {
	t.Parallel()
	h := newHarness(t, failingGenerator{})
	ctx := context.Background()
	short, _, _ := h.svc.CreateDraft(ctx, "u1", validDraft())
	_, _ = h.ledger.Grant(ctx, "u1", 10, "test")

	got, err := h.svc.Trigger(ctx, "u1", short.ID, pipeline.StepFull)
	var stageErr *pipeline.StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("error = %v, want StageError", err)
	}
	if got == nil || got.Status != domain.ShortStatusFailed {
		t.Fatalf("expected the failed short alongside the error, got %+v", got)
	}
	if b := balance(t, h.ledger, "u1"); b != 10 {
		t.Fatalf("balance = %d, want full refund to 10", b)
	}
	entries, _ := h.ledger.Entries(ctx, "u1", 10)
	kinds := map[string]int{}
	for _, e := range entries {
		kinds[e.Kind]++
	}
	if kinds[credits.KindDebit] != 1 || kinds[credits.KindRefund] != 1 {
		t.Fatalf("ledger entries = %+v", entries)
	}
}

func TestTriggerOwnershipAndConflict(t *testing.T) {
	t.Parallel()
	h := newHarness(t, image.NewStaticGenerator())
	ctx := context.Background()
	short, _, _ := h.svc.CreateDraft(ctx, "u1", validDraft())
	_, _ = h.ledger.Grant(ctx, "u1", 10, "test")

	if _, err := h.svc.Trigger(ctx, "intruder", short.ID, pipeline.StepFull); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if _, err := h.svc.Get(ctx, "intruder", short.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get error = %v, want ErrNotFound", err)
	}

	_ = h.repo.BeginRun(ctx, short.ID, domain.ShortStatusScripting, 10)
	if _, err := h.svc.Trigger(ctx, "u1", short.ID, pipeline.StepFull); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("error = %v, want ErrConflict", err)
	}
	if b := balance(t, h.ledger, "u1"); b != 10 {
		t.Fatalf("conflict must not touch credits, balance = %d", b)
	}
}

func TestSceneParams(t *testing.T) {
	t.Parallel()
	h := newHarness(t, image.NewStaticGenerator())
	res := h.svc.SceneParams(SceneParamsInput{Format: "SHORT", NarrativePressure: "FAST"})
	if res.SceneCount != 6 || res.AvgDuration != 5 || res.Total != 30 || len(res.Warnings) != 0 {
		t.Fatalf("result = %+v", res)
	}
	count := 99
	res = h.svc.SceneParams(SceneParamsInput{Format: "TIKTOK", Overrides: narrative.Overrides{SceneCount: &count}})
	if res.Format != domain.FormatShort || len(res.Warnings) != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestGuardRail(t *testing.T) {
	t.Parallel()
	h := newHarness(t, image.NewStaticGenerator())
	state, early := "THREAT", "EARLY"
	res := h.svc.GuardRail(narrative.PartialConfig{EmotionalState: &state, RevelationDynamic: &early})
	if res.Valid || res.Corrected.RevelationDynamic != "PROGRESSIVE" {
		t.Fatalf("result = %+v", res)
	}
}
