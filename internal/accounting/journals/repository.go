package journals

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-dms/meridian/internal/accounting/ledger"
	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
	"github.com/meridian-dms/meridian/internal/shared"
)

// Repository encapsulates DB operations for journals.
type Repository interface {
	List(ctx context.Context, limit int) ([]JournalEntry, error)
	Get(ctx context.Context, entryID int64) (JournalEntry, error)
	GetBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a posting transaction. It
// embeds the ledger poster's operations so journal, ledger, cash book, and
// party-balance writes share one transactional boundary.
type TxRepository interface {
	ledger.Tx

	NextSequence(ctx context.Context, kind, period string) (int64, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (int64, error)
	InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error
	GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error)
	LinkReversal(ctx context.Context, originalID, reversalID int64) error
	AdjustCustomerBalance(ctx context.Context, customerID int64, delta float64) error
	AdjustVendorBalance(ctx context.Context, vendorID int64, delta float64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, number, type, date, narration, total_debit, total_credit, source_type, source_id, source_number, party_kind, party_id, party_delta, reversal_of, reversed_by, posted_by, posted_at, created_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	var kindPtr *string
	var pidPtr *int64
	err := row.Scan(&e.ID, &e.Number, &e.Type, &e.Date, &e.Narration, &e.TotalDebit, &e.TotalCredit,
		&e.SourceType, &e.SourceID, &e.SourceNumber, &kindPtr, &pidPtr, &e.PartyDelta,
		&e.ReversalOf, &e.ReversedBy, &e.PostedBy, &e.PostedAt, &e.CreatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	if kindPtr != nil && pidPtr != nil {
		e.Party = shared.PartyRef{Kind: shared.PartyKind(*kindPtr), ID: *pidPtr}
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, acctshared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	e.Lines, err = r.lines(ctx, e.ID)
	return e, err
}

func (r *repository) GetBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) (JournalEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE source_type=$1 AND source_id=$2`, sourceType, sourceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, acctshared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	e.Lines, err = r.lines(ctx, e.ID)
	return e, err
}

func (r *repository) lines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	rows, err := r.db.Query(ctx, `SELECT id, je_id, line_no, account_id, account_code, account_name, debit, credit, party_kind, party_id
FROM journal_lines WHERE je_id=$1 ORDER BY line_no ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLines(rows)
}

func scanLines(rows pgx.Rows) ([]JournalLine, error) {
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		var kindPtr *string
		var pidPtr *int64
		if err := rows.Scan(&line.ID, &line.JournalID, &line.LineNo, &line.AccountID, &line.AccountCode, &line.AccountName, &line.Debit, &line.Credit, &kindPtr, &pidPtr); err != nil {
			return nil, err
		}
		if kindPtr != nil && pidPtr != nil {
			line.Party = shared.PartyRef{Kind: shared.PartyKind(*kindPtr), ID: *pidPtr}
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// WithTx runs fn inside a RepeatableRead transaction. Serialization failures
// surface as shared.ErrConflict so the service can retry the whole posting.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	wrapper := &txRepository{tx: tx, Tx: ledger.NewTx(tx)}
	if err := fn(ctx, wrapper); err != nil {
		return conflictErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return conflictErr(err)
	}
	return nil
}

func conflictErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.Message)
	}
	return err
}

type txRepository struct {
	tx pgx.Tx
	ledger.Tx
}

// NextSequence advances the atomic counter for (kind, period). Same upsert as
// the shared sequence store but scoped to the posting transaction.
func (r *txRepository) NextSequence(ctx context.Context, kind, period string) (int64, error) {
	var value int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sequences (kind, period, value) VALUES ($1, $2, 1)
ON CONFLICT (kind, period) DO UPDATE SET value = sequences.value + 1
RETURNING value`, kind, period).Scan(&value)
	return value, err
}

func (r *txRepository) InsertEntry(ctx context.Context, e JournalEntry) (int64, error) {
	kind, pid := nullParty(e.Party)
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (number, type, date, narration, total_debit, total_credit, source_type, source_id, source_number, party_kind, party_id, party_delta, reversal_of, posted_by, posted_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NOW()) RETURNING id`,
		e.Number, e.Type, e.Date, e.Narration, toNumeric(e.TotalDebit), toNumeric(e.TotalCredit),
		e.SourceType, e.SourceID, e.SourceNumber, kind, pid, toNumeric(e.PartyDelta), e.ReversalOf, nullInt(e.PostedBy)).Scan(&id)
	return id, err
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	for _, line := range lines {
		kind, pid := nullParty(line.Party)
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (je_id, line_no, account_id, account_code, account_name, debit, credit, party_kind, party_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			entryID, line.LineNo, line.AccountID, line.AccountCode, line.AccountName, toNumeric(line.Debit), toNumeric(line.Credit), kind, pid); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	e, err := scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, acctshared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	rows, err := r.tx.Query(ctx, `SELECT id, je_id, line_no, account_id, account_code, account_name, debit, credit, party_kind, party_id
FROM journal_lines WHERE je_id=$1 ORDER BY line_no ASC`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	e.Lines, err = scanLines(rows)
	return e, err
}

func (r *txRepository) LinkReversal(ctx context.Context, originalID, reversalID int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET reversed_by=$2 WHERE id=$1 AND reversed_by IS NULL`, originalID, reversalID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return acctshared.ErrAlreadyReversed
	}
	return nil
}

func (r *txRepository) AdjustCustomerBalance(ctx context.Context, customerID int64, delta float64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE customers SET balance = balance + $2, updated_at=NOW() WHERE id=$1`, customerID, toNumeric(delta))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) AdjustVendorBalance(ctx context.Context, vendorID int64, delta float64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE vendors SET balance = balance + $2, updated_at=NOW() WHERE id=$1`, vendorID, toNumeric(delta))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Helpers
func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func nullParty(p shared.PartyRef) (any, any) {
	if p.IsZero() {
		return nil, nil
	}
	return string(p.Kind), p.ID
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
