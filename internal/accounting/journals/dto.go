package journals

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
	"github.com/meridian-dms/meridian/internal/shared"
)

// SourceRef points a journal entry back at the originating document.
type SourceRef struct {
	Type   string
	ID     uuid.UUID
	Number string
}

// LineInput describes a journal line for a posting request.
type LineInput struct {
	AccountID int64
	Debit     float64
	Credit    float64
	Party     shared.PartyRef
}

// PartyAdjustment carries the cached customer/vendor balance delta applied
// inside the posting transaction.
type PartyAdjustment struct {
	Party shared.PartyRef
	Delta float64
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	Type       EntryType
	Date       time.Time
	Narration  string
	Lines      []LineInput
	Source     SourceRef
	PostedBy   int64
	PartyDelta *PartyAdjustment
}

// Validate ensures posting input meets minimum criteria before anything is
// persisted.
func (in PostingInput) Validate() error {
	if in.Type == "" {
		return errors.New("accounting: entry type required")
	}
	if in.Date.IsZero() {
		return errors.New("accounting: entry date required")
	}
	if len(in.Lines) < 2 {
		return acctshared.ErrTooFewLines
	}
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("accounting: line %d missing account", idx)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return fmt.Errorf("accounting: line %d negative amount", idx)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return fmt.Errorf("accounting: line %d cannot be both debit and credit", idx)
		}
		if line.Debit == 0 && line.Credit == 0 {
			return fmt.Errorf("accounting: line %d has no amount", idx)
		}
	}
	debit, credit := in.Totals()
	if !acctshared.Balanced(debit, credit) {
		return acctshared.ErrUnbalanced
	}
	if in.Source.Type == "" {
		return errors.New("accounting: source type required")
	}
	if in.Source.ID == uuid.Nil {
		return errors.New("accounting: source id required")
	}
	if in.PartyDelta != nil && in.PartyDelta.Party.IsZero() {
		return errors.New("accounting: party adjustment without party")
	}
	return nil
}

// Totals sums debit and credit across the lines.
func (in PostingInput) Totals() (debit, credit float64) {
	for _, line := range in.Lines {
		debit += line.Debit
		credit += line.Credit
	}
	return debit, credit
}

// ReverseInput wraps parameters for reversal.
type ReverseInput struct {
	EntryID int64
	ActorID int64
	Memo    string
	Date    time.Time
}
