// Package ledger holds host-side implementations of lottery.FundTransfer.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"custodial-lottery/internal/models"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("balance overflow")
)

// Memory keeps account balances in memory. A batch is checked in full before
// any account changes.
type Memory struct {
	mu       sync.Mutex
	balances map[models.IdentityKey]models.Amount
	history  []models.Transfer
}

// NewMemory returns an empty ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[models.IdentityKey]models.Amount)}
}

// CheckCredit reports whether Credit(id, amount) would succeed.
func (m *Memory) CheckCredit(id models.IdentityKey, amount models.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.credited(id, amount)
	return err
}

// Credit adds amount to id outside of any transfer, e.g. to fund custody.
func (m *Memory) Credit(id models.IdentityKey, amount models.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum, err := m.credited(id, amount)
	if err != nil {
		return err
	}
	m.balances[id] = sum
	return nil
}

func (m *Memory) credited(id models.IdentityKey, amount models.Amount) (models.Amount, error) {
	sum, ok := m.balances[id].Add(amount)
	if !ok {
		return sum, fmt.Errorf("credit %s to %s: %w", amount, id, ErrBalanceOverflow)
	}
	return sum, nil
}

// Balance returns the balance of id, 0 for unknown accounts.
func (m *Memory) Balance(id models.IdentityKey) models.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[id]
}

// History returns every applied transfer, oldest first.
func (m *Memory) History() []models.Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Transfer(nil), m.history...)
}

// Transfer applies the batch in order, or nothing if any leg fails.
func (m *Memory) Transfer(transfers []models.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[models.IdentityKey]models.Amount)
	get := func(id models.IdentityKey) models.Amount {
		if v, ok := next[id]; ok {
			return v
		}
		return m.balances[id]
	}
	for _, t := range transfers {
		from, ok := get(t.From).Sub(t.Amount)
		if !ok {
			return fmt.Errorf("transfer %s from %s: %w", t.Amount, t.From, ErrInsufficientFunds)
		}
		next[t.From] = from
		to, ok := get(t.To).Add(t.Amount)
		if !ok {
			return fmt.Errorf("transfer %s to %s: %w", t.Amount, t.To, ErrBalanceOverflow)
		}
		next[t.To] = to
	}
	for id, v := range next {
		m.balances[id] = v
	}
	m.history = append(m.history, transfers...)
	return nil
}
