package credits

import (
	"context"
	"errors"
	"testing"

	"shortgen/internal/domain"
)

type failingRefundLedger struct {
	*MemoryLedger
	refundErr error
}

func (f failingRefundLedger) Refund(context.Context, string, Feature, int, string, map[string]any) error {
	return f.refundErr
}

func TestChargeDebitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	if _, err := ledger.Grant(ctx, "u1", 10, "welcome"); err != nil {
		t.Fatalf("Grant: %v", err)
	}

	calls := 0
	err := Charge(ctx, ledger, Request{UserID: "u1", Feature: "short.full", Amount: 4}, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Charge returned error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("fn called %d times, want 1", calls)
	}
	if balance, _ := ledger.Balance(ctx, "u1"); balance != 6 {
		t.Fatalf("balance = %d, want 6", balance)
	}
}

func TestChargeRefundsOnFailure(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	_, _ = ledger.Grant(ctx, "u1", 5, "")

	boom := errors.New("stage failed")
	err := Charge(ctx, ledger, Request{UserID: "u1", Feature: "short.script", Amount: 3}, func(context.Context) error {
		if balance, _ := ledger.Balance(ctx, "u1"); balance != 2 {
			t.Fatalf("balance during run = %d, want 2", balance)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if balance, _ := ledger.Balance(ctx, "u1"); balance != 5 {
		t.Fatalf("balance after refund = %d, want 5", balance)
	}
	entries, _ := ledger.Entries(ctx, "u1", 0)
	if len(entries) != 3 || entries[0].Kind != KindRefund || entries[0].Reason != "stage failed" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestChargeInsufficientCredits(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	_, _ = ledger.Grant(ctx, "u1", 2, "")

	called := false
	err := Charge(ctx, ledger, Request{UserID: "u1", Feature: "short.full", Amount: 8}, func(context.Context) error {
		called = true
		return nil
	})
	var insufficient *InsufficientCreditsError
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want InsufficientCreditsError", err)
	}
	if insufficient.Required != 8 || insufficient.Available != 2 {
		t.Fatalf("unexpected numbers: %+v", insufficient)
	}
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("err should match domain.ErrInsufficientCredits")
	}
	if called {
		t.Fatalf("fn must not run without credits")
	}
}

func TestChargeJoinsRefundFailure(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryLedger()
	_, _ = mem.Grant(ctx, "u1", 5, "")
	refundErr := errors.New("db down")
	ledger := failingRefundLedger{MemoryLedger: mem, refundErr: refundErr}

	boom := errors.New("boom")
	err := Charge(ctx, ledger, Request{UserID: "u1", Feature: "short.media", Amount: 1}, func(context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) || !errors.Is(err, refundErr) {
		t.Fatalf("err = %v, want both run and refund errors", err)
	}
}

func TestChargeZeroAmountSkipsLedger(t *testing.T) {
	ledger := NewMemoryLedger()
	err := Charge(context.Background(), ledger, Request{UserID: "nobody", Amount: 0}, func(context.Context) error { return nil })
	if err != nil {
		t.Fatalf("zero charge returned error: %v", err)
	}
}

func TestCosts(t *testing.T) {
	c := Costs{Script: 2, Prompts: 1, ImagePerScene: 3}
	if got := c.Full(6); got != 21 {
		t.Fatalf("Full(6) = %d, want 21", got)
	}
	if got := c.Media(-1); got != 0 {
		t.Fatalf("Media(-1) = %d, want 0", got)
	}
}

func TestMemoryLedgerStartingBalance(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger().WithStartingBalance(5)

	if err := ledger.Validate(ctx, "fresh", "short_full", 5); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := ledger.Debit(ctx, "fresh", "short_full", 3, nil); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if balance, _ := ledger.Balance(ctx, "fresh"); balance != 2 {
		t.Fatalf("balance = %d, want 2", balance)
	}
	entries, _ := ledger.Entries(ctx, "fresh", 0)
	if len(entries) != 2 || entries[1].Reason != "starting balance" {
		t.Fatalf("entries = %+v", entries)
	}
}
