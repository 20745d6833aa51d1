/*
Package sqlite provides a SQLite-backed implementation of engine.TxStore.

PURPOSE:
  Persists investments, accounts, withdrawal requests, and the ledger.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

THE CORE CORRECTNESS MECHANISM:
  idx_unique_accrual, a unique index on
  (investment_id, period_index, entry_type), is what makes accrual
  exactly-once. A raced or retried reconciliation that re-derives the
  same period hits the constraint and is reported as
  engine.ErrDuplicateAccrual, which the reconciler absorbs.

LEDGER ENTRY MUTABILITY:
  Entries are append-only in amount and identity. UpdateEntry touches
  only status and note, and refuses entries already in a terminal
  status (rejected, received).

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers
  don't block and crash recovery is cleaner.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions and contracts
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/robertventures/investor-desk-engine/engine"
)

var _ engine.TxStore = (*Store)(nil)

// Store implements engine.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes WithTx and the opening sequence
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer, and a second pool connection to ":memory:"
	// would open a different empty database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Owning accounts (engine only ever reads the type)
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		account_type TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		created_at TEXT NOT NULL
	);

	-- Investments
	CREATE TABLE IF NOT EXISTS investments (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		lockup_period TEXT NOT NULL,
		payment_frequency TEXT NOT NULL,
		account_type TEXT NOT NULL,
		created_at TEXT NOT NULL,
		submitted_at TEXT,
		confirmed_at TEXT,
		lockup_end_date TEXT,
		payout_due_by TEXT,
		last_accrual_index INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_investments_owner
		ON investments(owner_id);
	CREATE INDEX IF NOT EXISTS idx_investments_status
		ON investments(status);

	-- Ledger entries (append-only activity history)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		investment_id TEXT NOT NULL,
		entry_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		period_index INTEGER,
		status TEXT NOT NULL,
		note TEXT,
		occurred_at TEXT NOT NULL,
		recorded_at TEXT NOT NULL
	);

	-- CRITICAL: at most one entry per (investment, period, type).
	-- This constraint is the mechanism preventing double-accrual under
	-- retries or concurrent reconciliation.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_accrual
		ON ledger_entries(investment_id, period_index, entry_type)
		WHERE period_index IS NOT NULL;

	-- One opening entry per investment
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_opening
		ON ledger_entries(investment_id, entry_type)
		WHERE period_index IS NULL AND entry_type = 'investment';

	-- One withdrawal entry per investment: a retried settlement must not
	-- record the payout twice.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_withdrawal
		ON ledger_entries(investment_id, entry_type)
		WHERE period_index IS NULL AND entry_type = 'withdrawal';

	CREATE INDEX IF NOT EXISTS idx_entries_investment
		ON ledger_entries(investment_id, occurred_at);
	CREATE INDEX IF NOT EXISTS idx_entries_status
		ON ledger_entries(status);

	-- Withdrawal requests
	CREATE TABLE IF NOT EXISTS withdrawals (
		id TEXT PRIMARY KEY,
		investment_id TEXT NOT NULL,
		requested_at TEXT NOT NULL,
		quoted_amount TEXT NOT NULL,
		quoted_earnings TEXT NOT NULL,
		final_amount TEXT,
		final_earnings TEXT,
		status TEXT NOT NULL,
		payout_due_by TEXT NOT NULL,
		settled_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_withdrawals_investment
		ON withdrawals(investment_id, requested_at);

	-- Counters (INV-<n> opening entry IDs)
	CREATE TABLE IF NOT EXISTS sequences (
		name TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx. Every query helper takes
// it so the same code serves the store and an open transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, a engine.Account) error {
	return saveAccount(ctx, s.db, a)
}

func (s *Store) Account(ctx context.Context, id engine.AccountID) (engine.Account, error) {
	return getAccount(ctx, s.db, id)
}

func (s *Store) ListAccounts(ctx context.Context) ([]engine.Account, error) {
	return listAccounts(ctx, s.db)
}

func saveAccount(ctx context.Context, db dbtx, a engine.Account) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO accounts (id, account_type, name, email, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET account_type=excluded.account_type,
			name=excluded.name, email=excluded.email`,
		a.ID, a.Type, a.Name, a.Email, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func getAccount(ctx context.Context, db dbtx, id engine.AccountID) (engine.Account, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, account_type, name, COALESCE(email, ''), created_at
		FROM accounts WHERE id = ?`, id)

	var a engine.Account
	var createdAt string
	if err := row.Scan(&a.ID, &a.Type, &a.Name, &a.Email, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return engine.Account{}, engine.ErrAccountNotFound
		}
		return engine.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

func listAccounts(ctx context.Context, db dbtx) ([]engine.Account, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, account_type, name, COALESCE(email, ''), created_at
		FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var out []engine.Account
	for rows.Next() {
		var a engine.Account
		var createdAt string
		if err := rows.Scan(&a.ID, &a.Type, &a.Name, &a.Email, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// INVESTMENTS
// =============================================================================

const investmentColumns = `id, owner_id, amount, status, lockup_period, payment_frequency,
	account_type, created_at, COALESCE(submitted_at, ''), COALESCE(confirmed_at, ''),
	COALESCE(lockup_end_date, ''), payout_due_by, last_accrual_index`

func (s *Store) SaveInvestment(ctx context.Context, inv engine.Investment) error {
	return saveInvestment(ctx, s.db, inv)
}

func (s *Store) Investment(ctx context.Context, id engine.InvestmentID) (engine.Investment, error) {
	return getInvestment(ctx, s.db, id)
}

func (s *Store) ListInvestments(ctx context.Context) ([]engine.Investment, error) {
	return queryInvestments(ctx, s.db,
		`SELECT `+investmentColumns+` FROM investments ORDER BY created_at, id`)
}

func (s *Store) ListInvestmentsByStatus(ctx context.Context, statuses ...engine.Status) ([]engine.Investment, error) {
	return listInvestmentsByStatus(ctx, s.db, statuses...)
}

func saveInvestment(ctx context.Context, db dbtx, inv engine.Investment) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO investments
		(id, owner_id, amount, status, lockup_period, payment_frequency, account_type,
		 created_at, submitted_at, confirmed_at, lockup_end_date, payout_due_by, last_accrual_index)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status=excluded.status,
			submitted_at=excluded.submitted_at,
			confirmed_at=excluded.confirmed_at,
			lockup_end_date=excluded.lockup_end_date,
			payout_due_by=excluded.payout_due_by,
			last_accrual_index=excluded.last_accrual_index`,
		inv.ID, inv.OwnerID, inv.Amount.String(), inv.Status, inv.LockupPeriod,
		inv.PaymentFrequency, inv.AccountType, formatTime(inv.CreatedAt),
		nullTime(inv.SubmittedAt), nullTime(inv.ConfirmedAt), nullTime(inv.LockupEndDate),
		nullTimePtr(inv.PayoutDueBy), inv.LastAccrualIndex)
	if err != nil {
		return fmt.Errorf("failed to save investment: %w", err)
	}
	return nil
}

func getInvestment(ctx context.Context, db dbtx, id engine.InvestmentID) (engine.Investment, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+investmentColumns+` FROM investments WHERE id = ?`, id)
	inv, err := scanInvestment(row)
	if err == sql.ErrNoRows {
		return engine.Investment{}, engine.ErrInvestmentNotFound
	}
	return inv, err
}

func listInvestmentsByStatus(ctx context.Context, db dbtx, statuses ...engine.Status) ([]engine.Investment, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = st
	}
	return queryInvestments(ctx, db,
		`SELECT `+investmentColumns+` FROM investments
		 WHERE status IN (`+placeholders+`) ORDER BY created_at, id`, args...)
}

func queryInvestments(ctx context.Context, db dbtx, query string, args ...any) ([]engine.Investment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var out []engine.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvestment(row scanner) (engine.Investment, error) {
	var inv engine.Investment
	var amount, createdAt, submittedAt, confirmedAt, lockupEnd string
	var payoutDueBy sql.NullString

	err := row.Scan(&inv.ID, &inv.OwnerID, &amount, &inv.Status, &inv.LockupPeriod,
		&inv.PaymentFrequency, &inv.AccountType, &createdAt, &submittedAt,
		&confirmedAt, &lockupEnd, &payoutDueBy, &inv.LastAccrualIndex)
	if err != nil {
		return engine.Investment{}, err
	}

	inv.Amount = parseDecimal(amount)
	inv.CreatedAt = parseTime(createdAt)
	inv.SubmittedAt = parseTime(submittedAt)
	inv.ConfirmedAt = parseTime(confirmedAt)
	inv.LockupEndDate = parseTime(lockupEnd)
	if payoutDueBy.Valid && payoutDueBy.String != "" {
		t := parseTime(payoutDueBy.String)
		inv.PayoutDueBy = &t
	}
	return inv, nil
}

// =============================================================================
// LEDGER ENTRIES
// =============================================================================

// AppendEntries persists a batch atomically. Any uniqueness collision on
// (investment_id, period_index, entry_type) rolls the whole batch back
// and reports engine.ErrDuplicateAccrual.
func (s *Store) AppendEntries(ctx context.Context, entries []engine.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if err := appendEntry(ctx, tx, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func appendEntry(ctx context.Context, db dbtx, e engine.LedgerEntry) error {
	var period sql.NullInt64
	if e.PeriodIndex != nil {
		period = sql.NullInt64{Int64: int64(*e.PeriodIndex), Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO ledger_entries
		(id, investment_id, entry_type, amount, period_index, status, note, occurred_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.InvestmentID, e.Type, e.Amount.String(), period, e.Status, e.Note,
		formatTime(e.OccurredAt), formatTime(e.RecordedAt))
	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrDuplicateAccrual
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

const entryColumns = `id, investment_id, entry_type, amount, period_index, status,
	COALESCE(note, ''), occurred_at, recorded_at`

func (s *Store) Entries(ctx context.Context, id engine.InvestmentID) ([]engine.LedgerEntry, error) {
	return listEntries(ctx, s.db, id)
}

func (s *Store) Entry(ctx context.Context, id engine.EntryID) (engine.LedgerEntry, error) {
	return getEntry(ctx, s.db, id)
}

func (s *Store) PendingEntries(ctx context.Context) ([]engine.LedgerEntry, error) {
	return pendingEntries(ctx, s.db)
}

func listEntries(ctx context.Context, db dbtx, id engine.InvestmentID) ([]engine.LedgerEntry, error) {
	return queryEntries(ctx, db,
		`SELECT `+entryColumns+` FROM ledger_entries
		 WHERE investment_id = ? ORDER BY occurred_at, id`, id)
}

func getEntry(ctx context.Context, db dbtx, id engine.EntryID) (engine.LedgerEntry, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return engine.LedgerEntry{}, engine.ErrEntryNotFound
	}
	return e, err
}

func pendingEntries(ctx context.Context, db dbtx) ([]engine.LedgerEntry, error) {
	return queryEntries(ctx, db,
		`SELECT `+entryColumns+` FROM ledger_entries
		 WHERE status = ? ORDER BY occurred_at, id`, engine.EntryPending)
}

func queryEntries(ctx context.Context, db dbtx, query string, args ...any) ([]engine.LedgerEntry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []engine.LedgerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntry(row scanner) (engine.LedgerEntry, error) {
	var e engine.LedgerEntry
	var amount, occurredAt, recordedAt string
	var period sql.NullInt64

	err := row.Scan(&e.ID, &e.InvestmentID, &e.Type, &amount, &period, &e.Status,
		&e.Note, &occurredAt, &recordedAt)
	if err != nil {
		return engine.LedgerEntry{}, err
	}

	e.Amount = parseDecimal(amount)
	if period.Valid {
		p := int(period.Int64)
		e.PeriodIndex = &p
	}
	e.OccurredAt = parseTime(occurredAt)
	e.RecordedAt = parseTime(recordedAt)
	return e, nil
}

// UpdateEntry persists a status/note change. Amount and identity are
// immutable; terminal entries are refused.
func (s *Store) UpdateEntry(ctx context.Context, e engine.LedgerEntry) error {
	return updateEntry(ctx, s.db, e)
}

func updateEntry(ctx context.Context, db dbtx, e engine.LedgerEntry) error {
	res, err := db.ExecContext(ctx, `
		UPDATE ledger_entries SET status = ?, note = ?
		WHERE id = ? AND status NOT IN (?, ?)`,
		e.Status, e.Note, e.ID, engine.EntryRejected, engine.EntryReceived)
	if err != nil {
		return fmt.Errorf("failed to update ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or already terminal; distinguish for the caller.
		var status engine.EntryStatus
		row := db.QueryRowContext(ctx, `SELECT status FROM ledger_entries WHERE id = ?`, e.ID)
		if err := row.Scan(&status); err != nil {
			if err == sql.ErrNoRows {
				return engine.ErrEntryNotFound
			}
			return err
		}
		return &engine.EntryStateError{EntryID: e.ID, Status: status, Op: "update"}
	}
	return nil
}

// NextOpeningSequence issues the next INV-<n> number.
func (s *Store) NextOpeningSequence(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nextOpeningSequence(ctx, s.db)
}

func nextOpeningSequence(ctx context.Context, db dbtx) (int64, error) {
	if _, err := db.ExecContext(ctx, `
		INSERT INTO sequences (name, value) VALUES ('opening', 0)
		ON CONFLICT(name) DO NOTHING`); err != nil {
		return 0, err
	}
	if _, err := db.ExecContext(ctx, `
		UPDATE sequences SET value = value + 1 WHERE name = 'opening'`); err != nil {
		return 0, err
	}
	var n int64
	if err := db.QueryRowContext(ctx, `
		SELECT value FROM sequences WHERE name = 'opening'`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// =============================================================================
// WITHDRAWAL REQUESTS
// =============================================================================

func (s *Store) SaveWithdrawal(ctx context.Context, w engine.WithdrawalRequest) error {
	return saveWithdrawal(ctx, s.db, w)
}

func (s *Store) Withdrawal(ctx context.Context, id engine.WithdrawalID) (engine.WithdrawalRequest, error) {
	return getWithdrawal(ctx, s.db, id)
}

func (s *Store) WithdrawalForInvestment(ctx context.Context, id engine.InvestmentID) (engine.WithdrawalRequest, error) {
	return withdrawalForInvestment(ctx, s.db, id)
}

func saveWithdrawal(ctx context.Context, db dbtx, w engine.WithdrawalRequest) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO withdrawals
		(id, investment_id, requested_at, quoted_amount, quoted_earnings,
		 final_amount, final_earnings, status, payout_due_by, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			final_amount=excluded.final_amount,
			final_earnings=excluded.final_earnings,
			status=excluded.status,
			settled_at=excluded.settled_at`,
		w.ID, w.InvestmentID, formatTime(w.RequestedAt),
		w.QuotedAmount.String(), w.QuotedEarnings.String(),
		nullDecimal(w.FinalAmount), nullDecimal(w.FinalEarnings),
		w.Status, formatTime(w.PayoutDueBy), nullTimePtr(w.SettledAt))
	if err != nil {
		return fmt.Errorf("failed to save withdrawal: %w", err)
	}
	return nil
}

const withdrawalColumns = `id, investment_id, requested_at, quoted_amount, quoted_earnings,
	COALESCE(final_amount, ''), COALESCE(final_earnings, ''), status, payout_due_by, settled_at`

func getWithdrawal(ctx context.Context, db dbtx, id engine.WithdrawalID) (engine.WithdrawalRequest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = ?`, id)
	w, err := scanWithdrawal(row)
	if err == sql.ErrNoRows {
		return engine.WithdrawalRequest{}, engine.ErrWithdrawalNotFound
	}
	return w, err
}

func withdrawalForInvestment(ctx context.Context, db dbtx, id engine.InvestmentID) (engine.WithdrawalRequest, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals
		 WHERE investment_id = ? ORDER BY requested_at DESC LIMIT 1`, id)
	w, err := scanWithdrawal(row)
	if err == sql.ErrNoRows {
		return engine.WithdrawalRequest{}, engine.ErrWithdrawalNotFound
	}
	return w, err
}

func scanWithdrawal(row scanner) (engine.WithdrawalRequest, error) {
	var w engine.WithdrawalRequest
	var requestedAt, quotedAmount, quotedEarnings, finalAmount, finalEarnings, payoutDueBy string
	var settledAt sql.NullString

	err := row.Scan(&w.ID, &w.InvestmentID, &requestedAt, &quotedAmount, &quotedEarnings,
		&finalAmount, &finalEarnings, &w.Status, &payoutDueBy, &settledAt)
	if err != nil {
		return engine.WithdrawalRequest{}, err
	}

	w.RequestedAt = parseTime(requestedAt)
	w.QuotedAmount = parseDecimal(quotedAmount)
	w.QuotedEarnings = parseDecimal(quotedEarnings)
	w.FinalAmount = parseDecimal(finalAmount)
	w.FinalEarnings = parseDecimal(finalEarnings)
	w.PayoutDueBy = parseTime(payoutDueBy)
	if settledAt.Valid && settledAt.String != "" {
		t := parseTime(settledAt.String)
		w.SettledAt = &t
	}
	return w, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every operation through the open transaction, so a caller
// inside WithTx sees its own uncommitted writes.
type txStore struct {
	tx *sql.Tx
}

var _ engine.Store = (*txStore)(nil)

func (ts *txStore) SaveAccount(ctx context.Context, a engine.Account) error {
	return saveAccount(ctx, ts.tx, a)
}

func (ts *txStore) Account(ctx context.Context, id engine.AccountID) (engine.Account, error) {
	return getAccount(ctx, ts.tx, id)
}

func (ts *txStore) ListAccounts(ctx context.Context) ([]engine.Account, error) {
	return listAccounts(ctx, ts.tx)
}

func (ts *txStore) SaveInvestment(ctx context.Context, inv engine.Investment) error {
	return saveInvestment(ctx, ts.tx, inv)
}

func (ts *txStore) Investment(ctx context.Context, id engine.InvestmentID) (engine.Investment, error) {
	return getInvestment(ctx, ts.tx, id)
}

func (ts *txStore) ListInvestments(ctx context.Context) ([]engine.Investment, error) {
	return queryInvestments(ctx, ts.tx,
		`SELECT `+investmentColumns+` FROM investments ORDER BY created_at, id`)
}

func (ts *txStore) ListInvestmentsByStatus(ctx context.Context, statuses ...engine.Status) ([]engine.Investment, error) {
	return listInvestmentsByStatus(ctx, ts.tx, statuses...)
}

func (ts *txStore) AppendEntries(ctx context.Context, entries []engine.LedgerEntry) error {
	for _, e := range entries {
		if err := appendEntry(ctx, ts.tx, e); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) Entries(ctx context.Context, id engine.InvestmentID) ([]engine.LedgerEntry, error) {
	return listEntries(ctx, ts.tx, id)
}

func (ts *txStore) Entry(ctx context.Context, id engine.EntryID) (engine.LedgerEntry, error) {
	return getEntry(ctx, ts.tx, id)
}

func (ts *txStore) PendingEntries(ctx context.Context) ([]engine.LedgerEntry, error) {
	return pendingEntries(ctx, ts.tx)
}

func (ts *txStore) UpdateEntry(ctx context.Context, e engine.LedgerEntry) error {
	return updateEntry(ctx, ts.tx, e)
}

func (ts *txStore) NextOpeningSequence(ctx context.Context) (int64, error) {
	return nextOpeningSequence(ctx, ts.tx)
}

func (ts *txStore) SaveWithdrawal(ctx context.Context, w engine.WithdrawalRequest) error {
	return saveWithdrawal(ctx, ts.tx, w)
}

func (ts *txStore) Withdrawal(ctx context.Context, id engine.WithdrawalID) (engine.WithdrawalRequest, error) {
	return getWithdrawal(ctx, ts.tx, id)
}

func (ts *txStore) WithdrawalForInvestment(ctx context.Context, id engine.InvestmentID) (engine.WithdrawalRequest, error) {
	return withdrawalForInvestment(ctx, ts.tx, id)
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return nullTime(*t)
}

func nullDecimal(d decimal.Decimal) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
