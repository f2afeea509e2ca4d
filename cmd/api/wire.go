package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"shortgen/internal/adapter/memstore"
	"shortgen/internal/adapter/repo"
	"shortgen/internal/credits"
	"shortgen/internal/domain"
	"shortgen/internal/generation"
	"shortgen/internal/http/handlers"
	"shortgen/internal/infra"
	"shortgen/internal/infra/credentials"
	"shortgen/internal/modelcfg"
	"shortgen/internal/pipeline"
	"shortgen/internal/presets"
	"shortgen/internal/providers"
	"shortgen/internal/runlock"
	"shortgen/internal/storage"
)

type dependencies struct {
	service  *generation.Service
	presets  *presets.Catalog
	models   *modelcfg.Cache
	balances handlers.BalanceReader
	static   http.Handler
	closers  []func()
}

func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

type ledger interface {
	credits.Ledger
	handlers.BalanceReader
}

func wire(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*dependencies, error) {
	deps := &dependencies{}

	catalog, err := presets.Load(cfg.PresetsPath)
	if err != nil {
		return nil, err
	}
	deps.presets = catalog

	defaults, err := modelcfg.ParseSet(cfg.ScriptModel, cfg.PromptModel, cfg.ImageModel)
	if err != nil {
		return nil, fmt.Errorf("model defaults: %w", err)
	}

	var (
		shorts   domain.ShortRepository
		ledgerDB ledger
		source   modelcfg.Source = modelcfg.StaticSource{Set: defaults}
		keys                     = providerKeys(cfg)
	)
	if cfg.IsLocal() {
		shorts = memstore.New()
		ledgerDB = credits.NewMemoryLedger().WithStartingBalance(cfg.StartingCredits)
		logger.Warn().Int("starting_credits", cfg.StartingCredits).Msg("local mode: state is kept in memory")
	} else {
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, pool.Close)
		runner := infra.NewSQLRunner(pool, logger)
		shorts = repo.NewShortRepository(runner)
		ledgerDB = credits.NewPGLedger(runner)
		source = modelcfg.NewPGSource(runner, defaults, logger)
		keys = storedKeys(ctx, credentials.NewStore(runner), keys, logger)
	}
	deps.balances = ledgerDB
	deps.models = modelcfg.NewCache(source, cfg.ModelCacheTTL, logger)

	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}
	registry, err := providers.Build(keys, httpClient, &logger)
	if err != nil {
		return nil, err
	}
	logger.Info().Interface("providers", registry.Configured()).Msg("providers configured")

	locker, err := buildLocker(ctx, cfg, logger, deps)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Repo:      shorts,
		Presets:   catalog,
		Models:    deps.models,
		Providers: registry,
		Locker:    locker,
		Logger:    &logger,
	}
	mirror, static, err := buildMirror(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if mirror != nil {
		opts.Mirror = mirror
		deps.static = static
	}
	orch, err := pipeline.New(opts)
	if err != nil {
		return nil, err
	}

	deps.service, err = generation.NewService(generation.Options{
		Repo:         shorts,
		Presets:      catalog,
		Orchestrator: orch,
		Ledger:       ledgerDB,
		Costs: credits.Costs{
			Script:        cfg.CostScript,
			Prompts:       cfg.CostPrompts,
			ImagePerScene: cfg.CostImagePerScene,
		},
		Logger: &logger,
	})
	if err != nil {
		return nil, err
	}
	return deps, nil
}

func providerKeys(cfg *infra.Config) providers.Keys {
	return providers.Keys{
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIOrg:     cfg.OpenAIOrg,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiBaseURL: cfg.GeminiBaseURL,
		FalAPIKey:     cfg.FalAPIKey,
		FalBaseURL:    cfg.FalBaseURL,
		QwenAPIKey:    cfg.QwenAPIKey,
		QwenBaseURL:   cfg.QwenBaseURL,
	}
}

// storedKeys fills empty environment keys from integration_tokens.
func storedKeys(ctx context.Context, store *credentials.Store, keys providers.Keys, logger zerolog.Logger) providers.Keys {
	targets := map[string]*string{
		credentials.ProviderOpenAI: &keys.OpenAIAPIKey,
		credentials.ProviderGemini: &keys.GeminiAPIKey,
		credentials.ProviderFal:    &keys.FalAPIKey,
		credentials.ProviderQwen:   &keys.QwenAPIKey,
	}
	for _, provider := range credentials.Providers {
		dst, ok := targets[provider]
		if !ok {
			continue
		}
		key, err := store.Fallback(ctx, provider, *dst)
		if err != nil {
			logger.Warn().Err(err).Str("provider", provider).Msg("failed to load stored api key")
			continue
		}
		*dst = key
	}
	return keys
}

func buildLocker(ctx context.Context, cfg *infra.Config, logger zerolog.Logger, deps *dependencies) (runlock.Locker, error) {
	if cfg.RedisAddr == "" {
		return runlock.NewLocalLocker(), nil
	}
	client, err := runlock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	deps.closers = append(deps.closers, func() { _ = client.Close() })
	return runlock.NewRedisLocker(client, runlock.RedisOptions{Logger: &logger}), nil
}

// buildMirror returns nil when generated images should keep their provider
// URLs.
func buildMirror(ctx context.Context, cfg *infra.Config) (*storage.Mirror, http.Handler, error) {
	switch cfg.StorageDriver {
	case "file":
		fs, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewMirror(fs, nil), http.FileServer(http.Dir(fs.BasePath())), nil
	case "minio":
		store, err := storage.NewMinioStore(ctx, storage.MinioOptions{
			Endpoint:      cfg.MinioEndpoint,
			AccessKey:     cfg.MinioAccessKey,
			SecretKey:     cfg.MinioSecretKey,
			Bucket:        cfg.MinioBucket,
			Region:        cfg.MinioRegion,
			UseSSL:        cfg.MinioUseSSL,
			PublicBaseURL: cfg.MinioPublicURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return storage.NewMirror(store, nil), nil, nil
	default:
		return nil, nil, nil
	}
}
