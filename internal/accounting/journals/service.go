package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-dms/meridian/internal/accounting/ledger"
	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
	"github.com/meridian-dms/meridian/internal/shared"
)

// Poster applies a persisted entry to account balances, the ledger, and the
// cash book inside the same transaction.
type Poster interface {
	PostEntry(ctx context.Context, tx ledger.Tx, req ledger.PostingRequest) error
}

// AuditPort records posting events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts posted entries.
type MetricsPort interface {
	JournalPosted(entryType string)
}

// maxPostAttempts bounds retries after optimistic write conflicts.
const maxPostAttempts = 3

// Service validates and persists balanced journal entries. A posting is
// all-or-nothing: the entry, its lines, every balance update, ledger row,
// cash book row, and the party-balance adjustment commit together.
type Service struct {
	repo    Repository
	poster  Poster
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

func NewService(repo Repository, poster Poster, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, poster: poster, audit: audit, metrics: metrics, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) List(ctx context.Context, limit int) ([]JournalEntry, error) {
	return s.repo.List(ctx, limit)
}

func (s *Service) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	return s.repo.Get(ctx, entryID)
}

// GetBySource finds the entry posted for a source document.
func (s *Service) GetBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) (JournalEntry, error) {
	return s.repo.GetBySource(ctx, sourceType, sourceID)
}

// PostEntry validates and posts a journal entry. Conflicting concurrent
// postings against the same accounts are retried a bounded number of times.
func (s *Service) PostEntry(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}

	var entry JournalEntry
	var err error
	for attempt := 0; attempt < maxPostAttempts; attempt++ {
		entry, err = s.postOnce(ctx, input)
		if err == nil || !errors.Is(err, shared.ErrConflict) {
			break
		}
	}
	if err != nil {
		return JournalEntry{}, err
	}

	s.recordPosted(ctx, entry, input.PostedBy)
	return entry, nil
}

func (s *Service) postOnce(ctx context.Context, input PostingInput) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := s.insertPosted(ctx, tx, input, nil)
		if err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// insertPosted persists and posts one entry within tx. reversalOf links a
// reversing entry back to its original.
func (s *Service) insertPosted(ctx context.Context, tx TxRepository, input PostingInput, reversalOf *int64) (JournalEntry, error) {
	// Lock referenced accounts in authored order and snapshot code/name.
	// Locking up front both validates the lines and fixes the lock order so
	// concurrent postings against the same accounts serialize cleanly.
	lines := make([]JournalLine, 0, len(input.Lines))
	for idx, in := range input.Lines {
		acct, err := tx.GetAccountForUpdate(ctx, in.AccountID)
		if err != nil {
			return JournalEntry{}, fmt.Errorf("accounting: line %d: %w", idx, err)
		}
		if !acct.IsActive {
			return JournalEntry{}, acctshared.ErrAccountInactive
		}
		lines = append(lines, JournalLine{
			LineNo:      idx + 1,
			AccountID:   acct.ID,
			AccountCode: acct.Code,
			AccountName: acct.Name,
			Debit:       in.Debit,
			Credit:      in.Credit,
			Party:       in.Party,
		})
	}

	prefix := input.Type.NumberPrefix()
	period := shared.Period(input.Date)
	seq, err := tx.NextSequence(ctx, prefix, period)
	if err != nil {
		return JournalEntry{}, err
	}
	number := shared.FormatNumber(prefix, period, seq)

	debit, credit := input.Totals()
	entry := JournalEntry{
		Number:       number,
		Type:         input.Type,
		Date:         input.Date,
		Narration:    input.Narration,
		TotalDebit:   debit,
		TotalCredit:  credit,
		SourceType:   input.Source.Type,
		SourceID:     input.Source.ID,
		SourceNumber: input.Source.Number,
		ReversalOf:   reversalOf,
		PostedBy:     input.PostedBy,
		PostedAt:     s.now(),
	}
	if input.PartyDelta != nil {
		entry.Party = input.PartyDelta.Party
		entry.PartyDelta = input.PartyDelta.Delta
	}

	entry.ID, err = tx.InsertEntry(ctx, entry)
	if err != nil {
		return JournalEntry{}, err
	}
	for i := range lines {
		lines[i].JournalID = entry.ID
	}
	if err := tx.InsertLines(ctx, entry.ID, lines); err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines

	description := input.Narration
	if description == "" {
		description = number
	}
	req := ledger.PostingRequest{
		JournalID:     entry.ID,
		JournalNumber: number,
		Date:          input.Date,
		Description:   description,
		SourceType:    input.Source.Type,
		SourceNumber:  input.Source.Number,
		Lines:         toPostingLines(input.Lines),
	}
	if err := s.poster.PostEntry(ctx, tx, req); err != nil {
		return JournalEntry{}, err
	}

	if input.PartyDelta != nil {
		if err := applyPartyDelta(ctx, tx, *input.PartyDelta); err != nil {
			return JournalEntry{}, err
		}
	}
	return entry, nil
}

// ReverseEntry posts a new entry with debits and credits swapped and links it
// to the original. The original is never edited.
func (s *Service) ReverseEntry(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, errors.New("accounting: entry id required")
	}

	var reversal JournalEntry
	var err error
	for attempt := 0; attempt < maxPostAttempts; attempt++ {
		reversal, err = s.reverseOnce(ctx, input)
		if err == nil || !errors.Is(err, shared.ErrConflict) {
			break
		}
	}
	if err != nil {
		return JournalEntry{}, err
	}

	s.recordPosted(ctx, reversal, input.ActorID)
	return reversal, nil
}

func (s *Service) reverseOnce(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryWithLines(ctx, input.EntryID)
		if err != nil {
			return err
		}
		if original.ReversedBy != nil {
			return acctshared.ErrAlreadyReversed
		}
		if original.Type == TypeReversal {
			return acctshared.ErrInvalidStatus
		}

		date := input.Date
		if date.IsZero() {
			date = original.Date
		}
		posting := PostingInput{
			Type:      TypeReversal,
			Date:      date,
			Narration: reversalMemo(input.Memo, original.Number),
			Lines:     swapLines(original.Lines),
			Source: SourceRef{
				Type:   original.SourceType + ":REVERSAL",
				ID:     uuid.New(),
				Number: original.Number,
			},
			PostedBy: input.ActorID,
		}
		if !original.Party.IsZero() {
			posting.PartyDelta = &PartyAdjustment{Party: original.Party, Delta: -original.PartyDelta}
		}

		inserted, err := s.insertPosted(ctx, tx, posting, &original.ID)
		if err != nil {
			return err
		}
		if err := tx.LinkReversal(ctx, original.ID, inserted.ID); err != nil {
			return err
		}
		reversal = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return reversal, nil
}

func (s *Service) recordPosted(ctx context.Context, entry JournalEntry, actorID int64) {
	if s.metrics != nil {
		s.metrics.JournalPosted(string(entry.Type))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "journal.post",
			Entity:   "journal_entry",
			EntityID: fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"number":      entry.Number,
				"type":        string(entry.Type),
				"source_type": entry.SourceType,
				"source_id":   entry.SourceID.String(),
			},
			At: s.now(),
		})
	}
}

func applyPartyDelta(ctx context.Context, tx TxRepository, adj PartyAdjustment) error {
	switch adj.Party.Kind {
	case shared.PartyCustomer:
		return tx.AdjustCustomerBalance(ctx, adj.Party.ID, adj.Delta)
	case shared.PartyVendor:
		return tx.AdjustVendorBalance(ctx, adj.Party.ID, adj.Delta)
	default:
		return errors.New("accounting: unknown party kind")
	}
}

func swapLines(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
			Party:     line.Party,
		})
	}
	return out
}

func reversalMemo(memo, number string) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of %s", number)
}

func toPostingLines(lines []LineInput) []ledger.PostingLine {
	out := make([]ledger.PostingLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, ledger.PostingLine{
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Party:     line.Party,
		})
	}
	return out
}
