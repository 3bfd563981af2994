package ledger

import (
	"time"

	"github.com/meridian-dms/meridian/internal/shared"
)

// Entry is one append-only ledger row per journal line. RunningBalance equals
// the account balance immediately after this entry was applied.
type Entry struct {
	ID             int64
	AccountID      int64
	AccountCode    string
	AccountName    string
	Date           time.Time
	Description    string
	Debit          float64
	Credit         float64
	RunningBalance float64
	JournalID      int64
	JournalNumber  string
	Party          shared.PartyRef
	CreatedAt      time.Time
}

// CashBookEntry restricts ledger activity to cash/bank accounts.
type CashBookEntry struct {
	ID             int64
	AccountID      int64
	Date           time.Time
	Description    string
	CashIn         float64
	CashOut        float64
	RunningBalance float64
	Party          shared.PartyRef
	SourceType     string
	SourceNumber   string
	JournalID      int64
	CreatedAt      time.Time
}

// DailySummary is one row per (cash account, calendar day).
type DailySummary struct {
	AccountID int64
	Day       time.Time
	Opening   float64
	TotalIn   float64
	TotalOut  float64
	Closing   float64
	TxCount   int64
	UpdatedAt time.Time
}

// PostingLine is the poster's view of a journal line, in authored order.
type PostingLine struct {
	AccountID int64
	Debit     float64
	Credit    float64
	Party     shared.PartyRef
}

// PostingRequest carries everything the poster needs from a journal entry.
type PostingRequest struct {
	JournalID     int64
	JournalNumber string
	Date          time.Time
	Description   string
	SourceType    string
	SourceNumber  string
	Lines         []PostingLine
}

// Day truncates a timestamp to its calendar day in UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
