package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"shortgen/internal/adapter/memstore"
	"shortgen/internal/domain"
	"shortgen/internal/modelcfg"
	"shortgen/internal/presets"
	"shortgen/internal/providers/image"
	"shortgen/internal/providers/prompt"
	"shortgen/internal/runlock"
)

var staticRef = domain.ModelRef{Provider: domain.ProviderStatic}

type fakeProviders struct {
	writer    prompt.Writer
	generator image.Generator
}

func (f fakeProviders) Writer(ref domain.ModelRef) (prompt.Writer, error) {
	if ref.Provider != domain.ProviderStatic {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, ref.Provider)
	}
	return f.writer, nil
}

func (f fakeProviders) Generator(ref domain.ModelRef) (image.Generator, error) {
	if ref.Provider != domain.ProviderStatic {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, ref.Provider)
	}
	return f.generator, nil
}

// countingWriter delegates to the static writer unless a canned response or
// error is set for the purpose.
type countingWriter struct {
	mu        sync.Mutex
	responses map[domain.ModelRole]string
	failures  map[domain.ModelRole]error
	calls     map[domain.ModelRole]int
	requests  []prompt.TextRequest
}

func newCountingWriter() *countingWriter {
	return &countingWriter{
		responses: map[domain.ModelRole]string{},
		failures:  map[domain.ModelRole]error{},
		calls:     map[domain.ModelRole]int{},
	}
}

func (w *countingWriter) Generate(ctx context.Context, req prompt.TextRequest) (string, error) {
	w.mu.Lock()
	w.calls[req.Purpose]++
	w.requests = append(w.requests, req)
	canned, ok := w.responses[req.Purpose]
	failure := w.failures[req.Purpose]
	w.mu.Unlock()
	if failure != nil {
		return "", failure
	}
	if ok {
		return canned, nil
	}
	return prompt.NewStaticWriter().Generate(ctx, req)
}

func (w *countingWriter) count(role domain.ModelRole) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls[role]
}

// fakeGenerator fails every prompt containing one of failOn and tracks how
// many calls overlap.
type fakeGenerator struct {
	failOn   []string
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (g *fakeGenerator) Generate(ctx context.Context, req image.GenerateRequest) (*image.GenerateResponse, error) {
	g.calls.Add(1)
	n := g.inFlight.Add(1)
	defer g.inFlight.Add(-1)
	for {
		seen := g.maxSeen.Load()
		if n <= seen || g.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	for _, marker := range g.failOn {
		if strings.Contains(req.Prompt, marker) {
			return nil, fmt.Errorf("%w: rejected %q", domain.ErrProviderFailure, marker)
		}
	}
	if req.NumImages != 1 {
		return nil, fmt.Errorf("expected one image, got %d", req.NumImages)
	}
	w, h := req.ImageSize.Dimensions()
	return &image.GenerateResponse{
		Images: []image.Image{{URL: "https://img.test/" + fmt.Sprint(g.calls.Load()), Width: w, Height: h}},
		Seed:   7,
	}, nil
}

// progressRecorder keeps every progress value written through UpdateStatus.
type progressRecorder struct {
	*memstore.Store
	mu       sync.Mutex
	progress []int
}

func (p *progressRecorder) UpdateStatus(ctx context.Context, id string, update domain.StatusUpdate) error {
	if update.Progress != nil {
		p.mu.Lock()
		p.progress = append(p.progress, *update.Progress)
		p.mu.Unlock()
	}
	return p.Store.UpdateStatus(ctx, id, update)
}

type fixture struct {
	repo      *progressRecorder
	writer    *countingWriter
	generator *fakeGenerator
	locker    *runlock.LocalLocker
	orch      *Orchestrator
	short     *domain.Short
}

type mirrorFunc func(ctx context.Context, sourceURL, keyPrefix string) (string, error)

func (f mirrorFunc) Copy(ctx context.Context, sourceURL, keyPrefix string) (string, error) {
	return f(ctx, sourceURL, keyPrefix)
}

func newFixture(t *testing.T, mirror Mirror) *fixture {
	t.Helper()
	catalog, err := presets.Load("")
	if err != nil {
		t.Fatalf("load presets: %v", err)
	}
	f := &fixture{
		repo:      &progressRecorder{Store: memstore.New()},
		writer:    newCountingWriter(),
		generator: &fakeGenerator{},
		locker:    runlock.NewLocalLocker(),
	}
	models := modelcfg.StaticSource{Set: domain.ModelSet{Script: staticRef, Prompt: staticRef, Image: staticRef}}
	f.orch, err = New(Options{
		Repo:      f.repo,
		Presets:   catalog,
		Models:    models,
		Providers: fakeProviders{writer: f.writer, generator: f.generator},
		Locker:    f.locker,
		Mirror:    mirror,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	f.short = &domain.Short{
		UserID:    "user-1",
		Theme:     "a lighthouse keeper who hears the sea",
		Format:    domain.FormatShort,
		StyleID:   "documentary",
		ClimateID: "curious",
	}
	if err := f.repo.Create(context.Background(), f.short, []domain.Character{{Name: "Keeper", Role: "protagonist"}}); err != nil {
		t.Fatalf("create short: %v", err)
	}
	return f
}

func (f *fixture) load(t *testing.T) *domain.Short {
	t.Helper()
	short, err := f.orch.Load(context.Background(), f.short.ID)
	if err != nil {
		t.Fatalf("load short: %v", err)
	}
	return short
}
