package modelcfg

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"shortgen/internal/domain"
	"shortgen/internal/infra"
	"shortgen/internal/sqlinline"
)

// StaticSource always returns the same set.
type StaticSource struct {
	Set domain.ModelSet
}

func (s StaticSource) Load(context.Context) (domain.ModelSet, error) {
	return s.Set, nil
}

// Get lets a StaticSource stand in where a Cache is expected.
func (s StaticSource) Get(ctx context.Context) (domain.ModelSet, error) {
	return s.Load(ctx)
}

// ParseSet parses "provider:model" references for each role.
func ParseSet(script, prompt, image string) (domain.ModelSet, error) {
	var set domain.ModelSet
	var err error
	if set.Script, err = domain.ParseModelRef(script); err != nil {
		return set, fmt.Errorf("script model: %w", err)
	}
	if set.Prompt, err = domain.ParseModelRef(prompt); err != nil {
		return set, fmt.Errorf("prompt model: %w", err)
	}
	if set.Image, err = domain.ParseModelRef(image); err != nil {
		return set, fmt.Errorf("image model: %w", err)
	}
	return set, nil
}

// PGSource reads the default model per role from ai_models, falling back to
// Defaults for roles without a usable row.
type PGSource struct {
	sql      infra.SQLExecutor
	defaults domain.ModelSet
	logger   zerolog.Logger
}

func NewPGSource(sql infra.SQLExecutor, defaults domain.ModelSet, logger zerolog.Logger) *PGSource {
	return &PGSource{sql: sql, defaults: defaults, logger: logger}
}

func (s *PGSource) Load(ctx context.Context) (domain.ModelSet, error) {
	rows, err := s.sql.Query(ctx, sqlinline.QSelectDefaultModels)
	if err != nil {
		return domain.ModelSet{}, fmt.Errorf("load default models: %w", err)
	}
	defer rows.Close()

	set := s.defaults
	for rows.Next() {
		var role, provider, modelID string
		if err := rows.Scan(&role, &provider, &modelID); err != nil {
			return domain.ModelSet{}, fmt.Errorf("scan default model: %w", err)
		}
		ref, err := domain.ParseModelRef(provider + ":" + modelID)
		if err != nil {
			s.logger.Warn().Err(err).Str("role", role).Msg("ignoring ai_models row")
			continue
		}
		switch domain.ModelRole(role) {
		case domain.ModelRoleScript:
			set.Script = ref
		case domain.ModelRolePrompt:
			set.Prompt = ref
		case domain.ModelRoleImage:
			set.Image = ref
		default:
			s.logger.Warn().Str("role", role).Msg("ignoring ai_models row with unknown role")
		}
	}
	if err := rows.Err(); err != nil {
		return domain.ModelSet{}, err
	}
	return set, nil
}
