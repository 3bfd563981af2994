package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
)

// Tx exposes the storage operations the poster performs inside the posting
// transaction. The journal engine's transactional repository satisfies it so
// balance updates, ledger rows, and cash book rows commit or roll back with
// the journal entry itself.
type Tx interface {
	GetAccountForUpdate(ctx context.Context, id int64) (accounts.Account, error)
	UpdateAccountBalance(ctx context.Context, id int64, balance float64) error
	InsertLedgerEntry(ctx context.Context, entry Entry) (int64, error)
	InsertCashBookEntry(ctx context.Context, entry CashBookEntry) error
	CashBookDayTotals(ctx context.Context, accountID int64, day time.Time) (in, out float64, count int64, err error)
	PriorDayClosing(ctx context.Context, accountID int64, day time.Time) (float64, error)
	UpsertDailySummary(ctx context.Context, summary DailySummary) error
}

// Poster applies a posted journal entry to the general ledger, the cash book,
// and the daily cash summaries.
type Poster struct{}

// NewPoster constructs a Poster.
func NewPoster() *Poster {
	return &Poster{}
}

type accountDay struct {
	accountID int64
	day       int64
}

// PostEntry walks the lines in authored order so running balances are
// deterministic when the ledger is replayed.
func (p *Poster) PostEntry(ctx context.Context, tx Tx, req PostingRequest) error {
	touched := make(map[accountDay]struct{})
	day := Day(req.Date)

	for idx, line := range req.Lines {
		acct, err := tx.GetAccountForUpdate(ctx, line.AccountID)
		if err != nil {
			return fmt.Errorf("ledger: line %d account %d: %w", idx, line.AccountID, err)
		}
		if !acct.IsActive {
			return acctshared.ErrAccountInactive
		}

		change := line.Debit - line.Credit
		if acct.NormalSide == accounts.NormalCredit {
			change = -change
		}
		newBalance := acct.Balance + change
		if err := tx.UpdateAccountBalance(ctx, acct.ID, newBalance); err != nil {
			return err
		}

		entry := Entry{
			AccountID:      acct.ID,
			AccountCode:    acct.Code,
			AccountName:    acct.Name,
			Date:           req.Date,
			Description:    req.Description,
			Debit:          line.Debit,
			Credit:         line.Credit,
			RunningBalance: newBalance,
			JournalID:      req.JournalID,
			JournalNumber:  req.JournalNumber,
			Party:          line.Party,
		}
		if _, err := tx.InsertLedgerEntry(ctx, entry); err != nil {
			return err
		}

		if acct.IsCash || acct.IsBank {
			cb := CashBookEntry{
				AccountID:      acct.ID,
				Date:           req.Date,
				Description:    req.Description,
				CashIn:         line.Debit,
				CashOut:        line.Credit,
				RunningBalance: newBalance,
				Party:          line.Party,
				SourceType:     req.SourceType,
				SourceNumber:   req.SourceNumber,
				JournalID:      req.JournalID,
			}
			if err := tx.InsertCashBookEntry(ctx, cb); err != nil {
				return err
			}
			touched[accountDay{accountID: acct.ID, day: day.Unix()}] = struct{}{}
		}
	}

	for key := range touched {
		if err := RefreshDailySummary(ctx, tx, key.accountID, day); err != nil {
			return err
		}
	}
	return nil
}
