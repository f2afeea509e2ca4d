package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"shortgen/internal/domain"
)

// Feature names the billable operation a charge is made for.
type Feature string

// Ledger is the prepaid credit balance the generation pipeline is billed against.
type Ledger interface {
	Validate(ctx context.Context, userID string, feature Feature, amount int) error
	Debit(ctx context.Context, userID string, feature Feature, amount int, metadata map[string]any) error
	Refund(ctx context.Context, userID string, feature Feature, amount int, reason string, metadata map[string]any) error
}

// InsufficientCreditsError carries the numbers a caller needs to suggest a
// cheaper path.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientCreditsError) Unwrap() error {
	return domain.ErrInsufficientCredits
}

// Entry kinds recorded in the transaction log.
const (
	KindDebit  = "DEBIT"
	KindRefund = "REFUND"
	KindGrant  = "GRANT"
)

// Entry is one movement on a user's balance.
type Entry struct {
	Kind      string    `json:"kind"`
	Feature   Feature   `json:"feature"`
	Amount    int       `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Request describes one charge made around a unit of work.
type Request struct {
	UserID   string
	Feature  Feature
	Amount   int
	Metadata map[string]any
}

// Charge validates and debits the request, runs fn, and refunds the full
// amount when fn fails. A refund failure is logged and joined to fn's error.
func Charge(ctx context.Context, ledger Ledger, req Request, fn func(ctx context.Context) error) error {
	if req.Amount <= 0 {
		return fn(ctx)
	}
	if err := ledger.Validate(ctx, req.UserID, req.Feature, req.Amount); err != nil {
		return err
	}
	if err := ledger.Debit(ctx, req.UserID, req.Feature, req.Amount, req.Metadata); err != nil {
		return err
	}

	runErr := fn(ctx)
	if runErr == nil {
		return nil
	}

	if err := ledger.Refund(context.WithoutCancel(ctx), req.UserID, req.Feature, req.Amount, runErr.Error(), req.Metadata); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Str("user_id", req.UserID).
			Str("feature", string(req.Feature)).
			Int("amount", req.Amount).
			Msg("credit refund failed")
		return errors.Join(runErr, fmt.Errorf("refund credits: %w", err))
	}
	return runErr
}
