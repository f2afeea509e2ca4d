// Package handlers implements the HTTP endpoints of the short generation API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"shortgen/internal/credits"
	"shortgen/internal/domain"
	"shortgen/internal/generation"
)

const maxBodyBytes = 1 << 20

// PresetLister exposes the preset catalog.
type PresetLister interface {
	Styles() []domain.Style
	Climates() []domain.Climate
}

// ModelCache is the administrative surface of the model configuration cache.
type ModelCache interface {
	Invalidate()
	FetchedAt() time.Time
}

// BalanceReader reports a user's credit balance and recent ledger entries.
type BalanceReader interface {
	Balance(ctx context.Context, userID string) (int, error)
	Entries(ctx context.Context, userID string, limit int) ([]credits.Entry, error)
}

// Options wires an App.
type Options struct {
	Service  *generation.Service
	Presets  PresetLister
	Models   ModelCache
	Balances BalanceReader
	Logger   *zerolog.Logger
}

type App struct {
	Service  *generation.Service
	Presets  PresetLister
	Models   ModelCache
	Balances BalanceReader
	Logger   zerolog.Logger
}

func NewApp(opts Options) *App {
	a := &App{
		Service:  opts.Service,
		Presets:  opts.Presets,
		Models:   opts.Models,
		Balances: opts.Balances,
		Logger:   zerolog.Nop(),
	}
	if opts.Logger != nil {
		a.Logger = *opts.Logger
	}
	return a
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Required  *int   `json:"required,omitempty"`
	Available *int   `json:"available,omitempty"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{"error": errorBody{Code: errCode, Message: message}})
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func (a *App) decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrValidation, err)
	}
	return nil
}

func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}
