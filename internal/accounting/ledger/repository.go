package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
	"github.com/meridian-dms/meridian/internal/shared"
)

// Repository reads ledger views and opens transactions for rebuild jobs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn against a transactional Tx. Used by the summarizer rebuild
// job; journal posting uses the journal engine's own transaction instead.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, NewTx(tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const entryColumns = `id, account_id, account_code, account_name, date, description, debit, credit, running_balance, je_id, je_number, party_kind, party_id, created_at`

// AccountStatement lists ledger entries for one account, oldest first.
func (r *Repository) AccountStatement(ctx context.Context, accountID int64, from, to time.Time) ([]Entry, error) {
	return r.queryEntries(ctx, `SELECT `+entryColumns+` FROM ledger_entries
WHERE account_id=$1 AND date >= $2 AND date < $3 ORDER BY id ASC`, accountID, from, to)
}

// PartyStatement lists subsidiary activity for a customer or vendor.
func (r *Repository) PartyStatement(ctx context.Context, party shared.PartyRef, from, to time.Time) ([]Entry, error) {
	if party.IsZero() {
		return nil, errors.New("ledger: party required")
	}
	return r.queryEntries(ctx, `SELECT `+entryColumns+` FROM ledger_entries
WHERE party_kind=$1 AND party_id=$2 AND date >= $3 AND date < $4 ORDER BY id ASC`, string(party.Kind), party.ID, from, to)
}

func (r *Repository) queryEntries(ctx context.Context, sql string, args ...any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		var kindPtr *string
		var pidPtr *int64
		if err := rows.Scan(&e.ID, &e.AccountID, &e.AccountCode, &e.AccountName, &e.Date, &e.Description, &e.Debit, &e.Credit, &e.RunningBalance, &e.JournalID, &e.JournalNumber, &kindPtr, &pidPtr, &e.CreatedAt); err != nil {
			return nil, err
		}
		if kindPtr != nil && pidPtr != nil {
			e.Party = shared.PartyRef{Kind: shared.PartyKind(*kindPtr), ID: *pidPtr}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CashBook lists cash book entries for an account, oldest first.
func (r *Repository) CashBook(ctx context.Context, accountID int64, from, to time.Time) ([]CashBookEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, account_id, date, description, cash_in, cash_out, running_balance, party_kind, party_id, source_type, source_number, je_id, created_at
FROM cash_book WHERE account_id=$1 AND date >= $2 AND date < $3 ORDER BY id ASC`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CashBookEntry
	for rows.Next() {
		var e CashBookEntry
		var kindPtr *string
		var pidPtr *int64
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Date, &e.Description, &e.CashIn, &e.CashOut, &e.RunningBalance, &kindPtr, &pidPtr, &e.SourceType, &e.SourceNumber, &e.JournalID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if kindPtr != nil && pidPtr != nil {
			e.Party = shared.PartyRef{Kind: shared.PartyKind(*kindPtr), ID: *pidPtr}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DailySummaries lists summaries for an account ordered by day.
func (r *Repository) DailySummaries(ctx context.Context, accountID int64, from, to time.Time) ([]DailySummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT account_id, day, opening, total_in, total_out, closing, tx_count, updated_at
FROM daily_cash_summaries WHERE account_id=$1 AND day >= $2 AND day < $3 ORDER BY day ASC`, accountID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailySummary
	for rows.Next() {
		var s DailySummary
		if err := rows.Scan(&s.AccountID, &s.Day, &s.Opening, &s.TotalIn, &s.TotalOut, &s.Closing, &s.TxCount, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CashBookDays lists the distinct calendar days an account has cash book rows
// for, oldest first. The rebuild job re-chains summaries in this order.
func (r *Repository) CashBookDays(ctx context.Context, accountID int64) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT date_trunc('day', date) FROM cash_book WHERE account_id=$1 ORDER BY 1 ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var days []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

// CashAccountIDs lists cash/bank account ids with cash book activity.
func (r *Repository) CashAccountIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM accounts WHERE is_cash OR is_bank ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NewTx wraps a pgx transaction with the poster's storage operations. Exposed
// so the journal engine's transactional repository can delegate to it.
func NewTx(tx pgx.Tx) Tx {
	return &pgxTx{tx: tx}
}

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) GetAccountForUpdate(ctx context.Context, id int64) (accounts.Account, error) {
	var a accounts.Account
	err := t.tx.QueryRow(ctx, `SELECT id, code, name, type, subtype, normal_side, balance, is_cash, is_bank, is_active, created_at, updated_at
FROM accounts WHERE id=$1 FOR UPDATE`, id).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Subtype, &a.NormalSide, &a.Balance, &a.IsCash, &a.IsBank, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return accounts.Account{}, acctshared.ErrAccountNotFound
		}
		return accounts.Account{}, err
	}
	return a, nil
}

func (t *pgxTx) UpdateAccountBalance(ctx context.Context, id int64, balance float64) error {
	cmd, err := t.tx.Exec(ctx, `UPDATE accounts SET balance=$2, updated_at=NOW() WHERE id=$1`, id, toNumeric(balance))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return acctshared.ErrAccountNotFound
	}
	return nil
}

func (t *pgxTx) InsertLedgerEntry(ctx context.Context, e Entry) (int64, error) {
	kind, pid := partyArgs(e.Party)
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO ledger_entries (account_id, account_code, account_name, date, description, debit, credit, running_balance, je_id, je_number, party_kind, party_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING id`,
		e.AccountID, e.AccountCode, e.AccountName, e.Date, e.Description, toNumeric(e.Debit), toNumeric(e.Credit), toNumeric(e.RunningBalance), e.JournalID, e.JournalNumber, kind, pid).Scan(&id)
	return id, err
}

func (t *pgxTx) InsertCashBookEntry(ctx context.Context, e CashBookEntry) error {
	kind, pid := partyArgs(e.Party)
	_, err := t.tx.Exec(ctx, `INSERT INTO cash_book (account_id, date, description, cash_in, cash_out, running_balance, party_kind, party_id, source_type, source_number, je_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.AccountID, e.Date, e.Description, toNumeric(e.CashIn), toNumeric(e.CashOut), toNumeric(e.RunningBalance), kind, pid, e.SourceType, e.SourceNumber, e.JournalID)
	return err
}

func (t *pgxTx) CashBookDayTotals(ctx context.Context, accountID int64, day time.Time) (float64, float64, int64, error) {
	day = Day(day)
	var in, out float64
	var count int64
	err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(cash_in),0), COALESCE(SUM(cash_out),0), COUNT(*)
FROM cash_book WHERE account_id=$1 AND date >= $2 AND date < $3`, accountID, day, day.AddDate(0, 0, 1)).
		Scan(&in, &out, &count)
	return in, out, count, err
}

func (t *pgxTx) PriorDayClosing(ctx context.Context, accountID int64, day time.Time) (float64, error) {
	var closing float64
	err := t.tx.QueryRow(ctx, `SELECT closing FROM daily_cash_summaries
WHERE account_id=$1 AND day < $2 ORDER BY day DESC LIMIT 1`, accountID, Day(day)).Scan(&closing)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return closing, err
}

func (t *pgxTx) UpsertDailySummary(ctx context.Context, s DailySummary) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO daily_cash_summaries (account_id, day, opening, total_in, total_out, closing, tx_count, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (account_id, day) DO UPDATE SET opening=EXCLUDED.opening, total_in=EXCLUDED.total_in, total_out=EXCLUDED.total_out, closing=EXCLUDED.closing, tx_count=EXCLUDED.tx_count, updated_at=NOW()`,
		s.AccountID, s.Day, toNumeric(s.Opening), toNumeric(s.TotalIn), toNumeric(s.TotalOut), toNumeric(s.Closing), s.TxCount)
	return err
}

func partyArgs(p shared.PartyRef) (any, any) {
	if p.IsZero() {
		return nil, nil
	}
	return string(p.Kind), p.ID
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
