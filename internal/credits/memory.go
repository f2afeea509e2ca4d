package credits

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shortgen/internal/domain"
)

// MemoryLedger keeps balances in process. It backs local runs and tests.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]int
	entries  map[string][]Entry
	seeded   map[string]bool
	starting int
	now      func() time.Time
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: map[string]int{},
		entries:  map[string][]Entry{},
		seeded:   map[string]bool{},
		now:      time.Now,
	}
}

// WithStartingBalance grants amount to every user the first time the ledger
// sees them.
func (m *MemoryLedger) WithStartingBalance(amount int) *MemoryLedger {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starting = amount
	return m
}

// seed must be called with mu held.
func (m *MemoryLedger) seed(userID string) {
	if m.seeded[userID] {
		return
	}
	m.seeded[userID] = true
	if m.starting > 0 {
		m.balances[userID] += m.starting
		m.record(userID, Entry{Kind: KindGrant, Feature: "grant", Amount: m.starting, Reason: "starting balance"})
	}
}

func (m *MemoryLedger) Validate(_ context.Context, userID string, _ Feature, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed(userID)
	if available := m.balances[userID]; available < amount {
		return &InsufficientCreditsError{Required: amount, Available: available}
	}
	return nil
}

func (m *MemoryLedger) Debit(_ context.Context, userID string, feature Feature, amount int, _ map[string]any) error {
	if amount <= 0 {
		return fmt.Errorf("%w: debit amount must be positive", domain.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed(userID)
	available := m.balances[userID]
	if available < amount {
		return &InsufficientCreditsError{Required: amount, Available: available}
	}
	m.balances[userID] = available - amount
	m.record(userID, Entry{Kind: KindDebit, Feature: feature, Amount: -amount})
	return nil
}

func (m *MemoryLedger) Refund(_ context.Context, userID string, feature Feature, amount int, reason string, _ map[string]any) error {
	if amount <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed(userID)
	m.balances[userID] += amount
	m.record(userID, Entry{Kind: KindRefund, Feature: feature, Amount: amount, Reason: reason})
	return nil
}

// Grant adds credits and returns the new balance.
func (m *MemoryLedger) Grant(_ context.Context, userID string, amount int, reason string) (int, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: grant amount must be positive", domain.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed(userID)
	m.balances[userID] += amount
	m.record(userID, Entry{Kind: KindGrant, Feature: "grant", Amount: amount, Reason: reason})
	return m.balances[userID], nil
}

func (m *MemoryLedger) Balance(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed(userID)
	return m.balances[userID], nil
}

// Entries returns the newest-first transaction log of a user.
func (m *MemoryLedger) Entries(_ context.Context, userID string, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seed(userID)
	src := m.entries[userID]
	out := make([]Entry, 0, len(src))
	for i := len(src) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, src[i])
	}
	return out, nil
}

func (m *MemoryLedger) record(userID string, e Entry) {
	e.CreatedAt = m.now().UTC()
	m.entries[userID] = append(m.entries[userID], e)
}

var _ Ledger = (*MemoryLedger)(nil)
