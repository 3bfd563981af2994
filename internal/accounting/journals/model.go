package journals

import (
	"time"

	"github.com/google/uuid"

	"github.com/meridian-dms/meridian/internal/shared"
)

// EntryType enumerates the business events a journal entry can record.
type EntryType string

const (
	TypeSales      EntryType = "SALES"
	TypePurchase   EntryType = "PURCHASE"
	TypeReceipt    EntryType = "RECEIPT"
	TypePayment    EntryType = "PAYMENT"
	TypeExpense    EntryType = "EXPENSE"
	TypeAdjustment EntryType = "ADJUSTMENT"
	TypeReturn     EntryType = "RETURN"
	TypeReversal   EntryType = "REVERSAL"
)

// NumberPrefix returns the document-number prefix for the entry type.
func (t EntryType) NumberPrefix() string {
	switch t {
	case TypeSales:
		return "SAL"
	case TypePurchase:
		return "PUR"
	case TypeReceipt:
		return "RCV"
	case TypePayment:
		return "PAY"
	case TypeExpense:
		return "EXP"
	case TypeAdjustment:
		return "ADJ"
	case TypeReturn:
		return "RET"
	case TypeReversal:
		return "REV"
	default:
		return "JE"
	}
}

// JournalEntry is a balanced set of debit/credit lines for one business
// event. Once posted it is logically immutable; corrections are made with
// reversing entries linked through ReversalOf/ReversedBy.
type JournalEntry struct {
	ID           int64
	Number       string
	Type         EntryType
	Date         time.Time
	Narration    string
	TotalDebit   float64
	TotalCredit  float64
	SourceType   string
	SourceID     uuid.UUID
	SourceNumber string
	Party        shared.PartyRef
	PartyDelta   float64
	ReversalOf   *int64
	ReversedBy   *int64
	PostedBy     int64
	PostedAt     time.Time
	CreatedAt    time.Time
	Lines        []JournalLine
}

// JournalLine stores a debit or credit amount for an account, with the
// account code/name snapshotted at posting time.
type JournalLine struct {
	ID          int64
	JournalID   int64
	LineNo      int
	AccountID   int64
	AccountCode string
	AccountName string
	Debit       float64
	Credit      float64
	Party       shared.PartyRef
}
