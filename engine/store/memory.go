// Package store provides engine.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/robertventures/investor-desk-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

var (
	_ engine.Store   = (*Memory)(nil)
	_ engine.TxStore = (*TxMemory)(nil)
)

type Memory struct {
	mu          sync.RWMutex
	accounts    map[engine.AccountID]engine.Account
	investments map[engine.InvestmentID]engine.Investment
	withdrawals map[engine.WithdrawalID]engine.WithdrawalRequest
	entries     map[engine.EntryID]engine.LedgerEntry
	keys        map[engine.EntryKey]engine.EntryID
	openingSeq  int64
}

func NewMemory() *Memory {
	return &Memory{
		accounts:    make(map[engine.AccountID]engine.Account),
		investments: make(map[engine.InvestmentID]engine.Investment),
		withdrawals: make(map[engine.WithdrawalID]engine.WithdrawalRequest),
		entries:     make(map[engine.EntryID]engine.LedgerEntry),
		keys:        make(map[engine.EntryKey]engine.EntryID),
	}
}

// --- Accounts ---

func (m *Memory) SaveAccount(_ context.Context, a engine.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) Account(_ context.Context, id engine.AccountID) (engine.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return engine.Account{}, engine.ErrAccountNotFound
	}
	return a, nil
}

func (m *Memory) ListAccounts(_ context.Context) ([]engine.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Investments ---

func (m *Memory) SaveInvestment(_ context.Context, inv engine.Investment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.investments[inv.ID] = inv
	return nil
}

func (m *Memory) Investment(_ context.Context, id engine.InvestmentID) (engine.Investment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inv, ok := m.investments[id]
	if !ok {
		return engine.Investment{}, engine.ErrInvestmentNotFound
	}
	return inv, nil
}

func (m *Memory) ListInvestments(_ context.Context) ([]engine.Investment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Investment, 0, len(m.investments))
	for _, inv := range m.investments {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) ListInvestmentsByStatus(_ context.Context, statuses ...engine.Status) ([]engine.Investment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[engine.Status]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []engine.Investment
	for _, inv := range m.investments {
		if want[inv.Status] {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- Ledger entries ---

// AppendEntries is atomic: the batch is checked against the
// (investment, period, type) uniqueness key before anything is written.
func (m *Memory) AppendEntries(_ context.Context, entries []engine.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		if _, exists := m.keys[e.Key()]; exists {
			return engine.ErrDuplicateAccrual
		}
	}
	for _, e := range entries {
		m.entries[e.ID] = e
		m.keys[e.Key()] = e.ID
	}
	return nil
}

func (m *Memory) Entries(_ context.Context, id engine.InvestmentID) ([]engine.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.LedgerEntry
	for _, e := range m.entries {
		if e.InvestmentID == id {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (m *Memory) Entry(_ context.Context, id engine.EntryID) (engine.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return engine.LedgerEntry{}, engine.ErrEntryNotFound
	}
	return e, nil
}

func (m *Memory) PendingEntries(_ context.Context) ([]engine.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.LedgerEntry
	for _, e := range m.entries {
		if e.Status == engine.EntryPending {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (m *Memory) UpdateEntry(_ context.Context, e engine.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.entries[e.ID]
	if !ok {
		return engine.ErrEntryNotFound
	}
	if current.Status.TerminalEntry() {
		return &engine.EntryStateError{EntryID: e.ID, Status: current.Status, Op: "update"}
	}
	// Amount and identity are immutable; only status and note move.
	current.Status = e.Status
	current.Note = e.Note
	m.entries[e.ID] = current
	return nil
}

func (m *Memory) NextOpeningSequence(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openingSeq++
	return m.openingSeq, nil
}

// --- Withdrawals ---

func (m *Memory) SaveWithdrawal(_ context.Context, w engine.WithdrawalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.withdrawals[w.ID] = w
	return nil
}

func (m *Memory) Withdrawal(_ context.Context, id engine.WithdrawalID) (engine.WithdrawalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.withdrawals[id]
	if !ok {
		return engine.WithdrawalRequest{}, engine.ErrWithdrawalNotFound
	}
	return w, nil
}

func (m *Memory) WithdrawalForInvestment(_ context.Context, id engine.InvestmentID) (engine.WithdrawalRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *engine.WithdrawalRequest
	for _, w := range m.withdrawals {
		w := w
		if w.InvestmentID != id {
			continue
		}
		if latest == nil || w.RequestedAt.After(latest.RequestedAt) {
			latest = &w
		}
	}
	if latest == nil {
		return engine.WithdrawalRequest{}, engine.ErrWithdrawalNotFound
	}
	return *latest, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with a snapshot/rollback transaction boundary.
type TxMemory struct {
	*Memory
	txMu sync.Mutex
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn, restoring the pre-call state if fn returns an error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	tm.txMu.Lock()
	defer tm.txMu.Unlock()

	snap := tm.snapshot()
	if err := fn(tm.Memory); err != nil {
		tm.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts    map[engine.AccountID]engine.Account
	investments map[engine.InvestmentID]engine.Investment
	withdrawals map[engine.WithdrawalID]engine.WithdrawalRequest
	entries     map[engine.EntryID]engine.LedgerEntry
	keys        map[engine.EntryKey]engine.EntryID
	openingSeq  int64
}

func (tm *TxMemory) snapshot() memorySnapshot {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	snap := memorySnapshot{
		accounts:    make(map[engine.AccountID]engine.Account, len(tm.accounts)),
		investments: make(map[engine.InvestmentID]engine.Investment, len(tm.investments)),
		withdrawals: make(map[engine.WithdrawalID]engine.WithdrawalRequest, len(tm.withdrawals)),
		entries:     make(map[engine.EntryID]engine.LedgerEntry, len(tm.entries)),
		keys:        make(map[engine.EntryKey]engine.EntryID, len(tm.keys)),
		openingSeq:  tm.openingSeq,
	}
	for k, v := range tm.accounts {
		snap.accounts[k] = v
	}
	for k, v := range tm.investments {
		snap.investments[k] = v
	}
	for k, v := range tm.withdrawals {
		snap.withdrawals[k] = v
	}
	for k, v := range tm.entries {
		snap.entries[k] = v
	}
	for k, v := range tm.keys {
		snap.keys[k] = v
	}
	return snap
}

func (tm *TxMemory) restore(snap memorySnapshot) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.accounts = snap.accounts
	tm.investments = snap.investments
	tm.withdrawals = snap.withdrawals
	tm.entries = snap.entries
	tm.keys = snap.keys
	tm.openingSeq = snap.openingSeq
}
