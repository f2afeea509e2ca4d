package credits

import (
	"context"
	"encoding/json"
	"fmt"

	"shortgen/internal/domain"
	"shortgen/internal/infra"
	"shortgen/internal/sqlinline"
)

// PGLedger stores balances in credit_balances and logs every movement in
// credit_transactions within the same transaction.
type PGLedger struct {
	sql infra.TxRunner
}

func NewPGLedger(sql infra.TxRunner) *PGLedger {
	return &PGLedger{sql: sql}
}

func (l *PGLedger) Validate(ctx context.Context, userID string, _ Feature, amount int) error {
	available, err := l.Balance(ctx, userID)
	if err != nil {
		return err
	}
	if available < amount {
		return &InsufficientCreditsError{Required: amount, Available: available}
	}
	return nil
}

func (l *PGLedger) Debit(ctx context.Context, userID string, feature Feature, amount int, metadata map[string]any) error {
	if amount <= 0 {
		return fmt.Errorf("%w: debit amount must be positive", domain.ErrValidation)
	}
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}
	return l.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		var balance int
		if err := tx.QueryRow(ctx, sqlinline.QDebitCredits, userID, amount).Scan(&balance); err != nil {
			if !infra.IsNoRows(err) {
				return fmt.Errorf("debit credits: %w", err)
			}
			available, err := balanceOf(ctx, tx, userID)
			if err != nil {
				return err
			}
			return &InsufficientCreditsError{Required: amount, Available: available}
		}
		if _, err := tx.Exec(ctx, sqlinline.QInsertCreditTransaction, userID, KindDebit, string(feature), -amount, "", meta); err != nil {
			return fmt.Errorf("record debit: %w", err)
		}
		return nil
	})
}

func (l *PGLedger) Refund(ctx context.Context, userID string, feature Feature, amount int, reason string, metadata map[string]any) error {
	if amount <= 0 {
		return nil
	}
	_, err := l.add(ctx, userID, KindRefund, feature, amount, reason, metadata)
	return err
}

// Grant adds credits and returns the new balance.
func (l *PGLedger) Grant(ctx context.Context, userID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: grant amount must be positive", domain.ErrValidation)
	}
	return l.add(ctx, userID, KindGrant, "grant", amount, reason, nil)
}

func (l *PGLedger) Balance(ctx context.Context, userID string) (int, error) {
	return balanceOf(ctx, l.sql, userID)
}

// Entries returns the newest-first transaction log of a user.
func (l *PGLedger) Entries(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.sql.Query(ctx, sqlinline.QSelectCreditTransactions, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			feature string
		)
		if err := rows.Scan(&e.Kind, &feature, &e.Amount, &e.Reason, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Feature = Feature(feature)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *PGLedger) add(ctx context.Context, userID, kind string, feature Feature, amount int, reason string, metadata map[string]any) (int, error) {
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return 0, err
	}
	var balance int
	err = l.sql.InTx(ctx, func(tx infra.SQLExecutor) error {
		if err := tx.QueryRow(ctx, sqlinline.QAddCredits, userID, amount).Scan(&balance); err != nil {
			return fmt.Errorf("add credits: %w", err)
		}
		if _, err := tx.Exec(ctx, sqlinline.QInsertCreditTransaction, userID, kind, string(feature), amount, reason, meta); err != nil {
			return fmt.Errorf("record %s: %w", kind, err)
		}
		return nil
	})
	return balance, err
}

func balanceOf(ctx context.Context, q infra.SQLExecutor, userID string) (int, error) {
	var balance int
	if err := q.QueryRow(ctx, sqlinline.QSelectCreditBalance, userID).Scan(&balance); err != nil {
		if infra.IsNoRows(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("load credit balance: %w", err)
	}
	return balance, nil
}

func encodeMetadata(metadata map[string]any) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("encode credit metadata: %w", err)
	}
	return raw, nil
}

var _ Ledger = (*PGLedger)(nil)
