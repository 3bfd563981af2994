package journals

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
	"github.com/meridian-dms/meridian/internal/accounting/ledger"
	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
	"github.com/meridian-dms/meridian/internal/shared"
)

// fakeStore is an in-memory stand-in for the posting transaction. It backs
// both the journals TxRepository and the embedded ledger.Tx so a test post
// exercises the real poster end to end.
type fakeStore struct {
	accounts  map[int64]*accounts.Account
	entries   map[int64]*JournalEntry
	lines     map[int64][]JournalLine
	ledgerLog []ledger.Entry
	cashBook  []ledger.CashBookEntry
	summaries map[string]ledger.DailySummary
	sequences map[string]int64
	customers map[int64]float64
	vendors   map[int64]float64

	nextEntryID  int64
	nextLedgerID int64

	// conflicts injects this many serialization failures before WithTx
	// invokes the callback.
	conflicts int
}

func newFakeStore(accts ...accounts.Account) *fakeStore {
	s := &fakeStore{
		accounts:  make(map[int64]*accounts.Account),
		entries:   make(map[int64]*JournalEntry),
		lines:     make(map[int64][]JournalLine),
		summaries: make(map[string]ledger.DailySummary),
		sequences: make(map[string]int64),
		customers: make(map[int64]float64),
		vendors:   make(map[int64]float64),
	}
	for i := range accts {
		a := accts[i]
		s.accounts[a.ID] = &a
	}
	return s
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if s.conflicts > 0 {
		s.conflicts--
		return fmt.Errorf("%w: injected", shared.ErrConflict)
	}
	return fn(ctx, s)
}

func (s *fakeStore) List(ctx context.Context, limit int) ([]JournalEntry, error) {
	out := make([]JournalEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (s *fakeStore) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	e, ok := s.entries[entryID]
	if !ok {
		return JournalEntry{}, acctshared.ErrJournalNotFound
	}
	copied := *e
	copied.Lines = s.lines[entryID]
	return copied, nil
}

func (s *fakeStore) GetBySource(ctx context.Context, sourceType string, sourceID uuid.UUID) (JournalEntry, error) {
	for _, e := range s.entries {
		if e.SourceType == sourceType && e.SourceID == sourceID {
			return *e, nil
		}
	}
	return JournalEntry{}, acctshared.ErrJournalNotFound
}

func (s *fakeStore) NextSequence(ctx context.Context, kind, period string) (int64, error) {
	key := kind + ":" + period
	s.sequences[key]++
	return s.sequences[key], nil
}

func (s *fakeStore) InsertEntry(ctx context.Context, e JournalEntry) (int64, error) {
	s.nextEntryID++
	e.ID = s.nextEntryID
	s.entries[e.ID] = &e
	return e.ID, nil
}

func (s *fakeStore) InsertLines(ctx context.Context, entryID int64, lines []JournalLine) error {
	s.lines[entryID] = append([]JournalLine(nil), lines...)
	return nil
}

func (s *fakeStore) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	return s.Get(ctx, entryID)
}

func (s *fakeStore) LinkReversal(ctx context.Context, originalID, reversalID int64) error {
	original, ok := s.entries[originalID]
	if !ok {
		return acctshared.ErrJournalNotFound
	}
	if original.ReversedBy != nil {
		return acctshared.ErrAlreadyReversed
	}
	original.ReversedBy = &reversalID
	return nil
}

func (s *fakeStore) AdjustCustomerBalance(ctx context.Context, customerID int64, delta float64) error {
	s.customers[customerID] += delta
	return nil
}

func (s *fakeStore) AdjustVendorBalance(ctx context.Context, vendorID int64, delta float64) error {
	s.vendors[vendorID] += delta
	return nil
}

func (s *fakeStore) GetAccountForUpdate(ctx context.Context, id int64) (accounts.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return accounts.Account{}, acctshared.ErrAccountNotFound
	}
	return *a, nil
}

func (s *fakeStore) UpdateAccountBalance(ctx context.Context, id int64, balance float64) error {
	s.accounts[id].Balance = balance
	return nil
}

func (s *fakeStore) InsertLedgerEntry(ctx context.Context, e ledger.Entry) (int64, error) {
	s.nextLedgerID++
	e.ID = s.nextLedgerID
	s.ledgerLog = append(s.ledgerLog, e)
	return e.ID, nil
}

func (s *fakeStore) InsertCashBookEntry(ctx context.Context, e ledger.CashBookEntry) error {
	s.cashBook = append(s.cashBook, e)
	return nil
}

func (s *fakeStore) CashBookDayTotals(ctx context.Context, accountID int64, day time.Time) (float64, float64, int64, error) {
	var in, out float64
	var count int64
	for _, e := range s.cashBook {
		if e.AccountID == accountID && ledger.Day(e.Date).Equal(ledger.Day(day)) {
			in += e.CashIn
			out += e.CashOut
			count++
		}
	}
	return in, out, count, nil
}

func (s *fakeStore) PriorDayClosing(ctx context.Context, accountID int64, day time.Time) (float64, error) {
	var closing float64
	var best time.Time
	for _, sum := range s.summaries {
		if sum.AccountID == accountID && sum.Day.Before(ledger.Day(day)) && sum.Day.After(best) {
			best = sum.Day
			closing = sum.Closing
		}
	}
	return closing, nil
}

func (s *fakeStore) UpsertDailySummary(ctx context.Context, sum ledger.DailySummary) error {
	key := fmt.Sprintf("%d:%s", sum.AccountID, sum.Day.Format("2006-01-02"))
	s.summaries[key] = sum
	return nil
}

func cashAccount(id int64) accounts.Account {
	return accounts.Account{ID: id, Code: "1000", Name: "Cash on Hand", Type: accounts.AccountTypeAsset,
		Subtype: accounts.SubtypeCash, NormalSide: accounts.NormalDebit, IsCash: true, IsActive: true}
}

func revenueAccount(id int64) accounts.Account {
	return accounts.Account{ID: id, Code: "4000", Name: "Sales Revenue", Type: accounts.AccountTypeIncome,
		Subtype: accounts.SubtypeSalesRevenue, NormalSide: accounts.NormalCredit, IsActive: true}
}

func receivableAccount(id int64) accounts.Account {
	return accounts.Account{ID: id, Code: "1100", Name: "Accounts Receivable", Type: accounts.AccountTypeAsset,
		Subtype: accounts.SubtypeReceivable, NormalSide: accounts.NormalDebit, IsActive: true}
}

func testService(store *fakeStore) *Service {
	svc := NewService(store, ledger.NewPoster(), nil, nil)
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) })
	return svc
}

func salesInput(amount float64) PostingInput {
	return PostingInput{
		Type: TypeSales,
		Date: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Lines: []LineInput{
			{AccountID: 1, Debit: amount},
			{AccountID: 2, Credit: amount},
		},
		Source:   SourceRef{Type: "INVOICE", ID: uuid.New(), Number: "INV-7"},
		PostedBy: 42,
	}
}

func TestPostEntryWritesLedgerAndCashBook(t *testing.T) {
	store := newFakeStore(cashAccount(1), revenueAccount(2))
	svc := testService(store)

	entry, err := svc.PostEntry(context.Background(), salesInput(250))
	require.NoError(t, err)

	assert.Equal(t, "SAL-202603-00001", entry.Number)
	assert.Equal(t, 250.0, entry.TotalDebit)
	assert.Equal(t, 250.0, entry.TotalCredit)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, "1000", entry.Lines[0].AccountCode)
	assert.Equal(t, 1, entry.Lines[0].LineNo)

	// Both balances grow: each account was hit on its normal side.
	assert.InDelta(t, 250, store.accounts[1].Balance, 0.001)
	assert.InDelta(t, 250, store.accounts[2].Balance, 0.001)

	require.Len(t, store.ledgerLog, 2)
	assert.Equal(t, 250.0, store.ledgerLog[0].RunningBalance)

	// Only the cash account reaches the cash book.
	require.Len(t, store.cashBook, 1)
	assert.Equal(t, int64(1), store.cashBook[0].AccountID)
	assert.Equal(t, 250.0, store.cashBook[0].CashIn)

	sum := store.summaries["1:2026-03-15"]
	assert.Equal(t, 0.0, sum.Opening)
	assert.Equal(t, 250.0, sum.TotalIn)
	assert.Equal(t, 250.0, sum.Closing)
	assert.Equal(t, int64(1), sum.TxCount)
}

func TestPostEntryUnbalancedRejected(t *testing.T) {
	store := newFakeStore(cashAccount(1), revenueAccount(2))
	svc := testService(store)

	input := salesInput(250)
	input.Lines[1].Credit = 249.90

	_, err := svc.PostEntry(context.Background(), input)
	require.ErrorIs(t, err, acctshared.ErrUnbalanced)
	assert.Empty(t, store.entries)
	assert.Empty(t, store.ledgerLog)
}

func TestPostEntryToleratesRoundingDrift(t *testing.T) {
	store := newFakeStore(cashAccount(1), revenueAccount(2))
	svc := testService(store)

	input := salesInput(100)
	input.Lines[1].Credit = 100.005

	_, err := svc.PostEntry(context.Background(), input)
	require.NoError(t, err)
}

func TestPostEntryTooFewLines(t *testing.T) {
	store := newFakeStore(cashAccount(1))
	svc := testService(store)

	input := salesInput(100)
	input.Lines = input.Lines[:1]

	_, err := svc.PostEntry(context.Background(), input)
	require.ErrorIs(t, err, acctshared.ErrTooFewLines)
}

func TestPostEntryInactiveAccountRejected(t *testing.T) {
	inactive := revenueAccount(2)
	inactive.IsActive = false
	store := newFakeStore(cashAccount(1), inactive)
	svc := testService(store)

	_, err := svc.PostEntry(context.Background(), salesInput(100))
	require.ErrorIs(t, err, acctshared.ErrAccountInactive)
}

func TestPostEntryUnknownAccountRejected(t *testing.T) {
	store := newFakeStore(cashAccount(1))
	svc := testService(store)

	_, err := svc.PostEntry(context.Background(), salesInput(100))
	require.ErrorIs(t, err, acctshared.ErrAccountNotFound)
}

func TestPostEntryAppliesPartyDelta(t *testing.T) {
	store := newFakeStore(receivableAccount(1), revenueAccount(2))
	svc := testService(store)

	input := salesInput(300)
	input.PartyDelta = &PartyAdjustment{
		Party: shared.PartyRef{Kind: shared.PartyCustomer, ID: 9},
		Delta: 300,
	}

	entry, err := svc.PostEntry(context.Background(), input)
	require.NoError(t, err)
	assert.InDelta(t, 300, store.customers[9], 0.001)
	assert.Equal(t, shared.PartyCustomer, entry.Party.Kind)
	assert.Equal(t, 300.0, entry.PartyDelta)
}

func TestPostEntrySequenceNumbersIncrement(t *testing.T) {
	store := newFakeStore(cashAccount(1), revenueAccount(2))
	svc := testService(store)

	first, err := svc.PostEntry(context.Background(), salesInput(10))
	require.NoError(t, err)
	second, err := svc.PostEntry(context.Background(), salesInput(20))
	require.NoError(t, err)

	assert.Equal(t, "SAL-202603-00001", first.Number)
	assert.Equal(t, "SAL-202603-00002", second.Number)
}

func TestPostEntryRetriesConflicts(t *testing.T) {
	store := newFakeStore(cashAccount(1), revenueAccount(2))
	store.conflicts = 2
	svc := testService(store)

	_, err := svc.PostEntry(context.Background(), salesInput(50))
	require.NoError(t, err)
}

func TestPostEntryGivesUpAfterRepeatedConflicts(t *testing.T) {
	store := newFakeStore(cashAccount(1), revenueAccount(2))
	store.conflicts = 3
	svc := testService(store)

	_, err := svc.PostEntry(context.Background(), salesInput(50))
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestReverseEntrySwapsLinesAndLinks(t *testing.T) {
	store := newFakeStore(receivableAccount(1), revenueAccount(2))
	svc := testService(store)

	input := salesInput(120)
	input.PartyDelta = &PartyAdjustment{
		Party: shared.PartyRef{Kind: shared.PartyCustomer, ID: 5},
		Delta: 120,
	}
	original, err := svc.PostEntry(context.Background(), input)
	require.NoError(t, err)

	reversal, err := svc.ReverseEntry(context.Background(), ReverseInput{EntryID: original.ID, ActorID: 7})
	require.NoError(t, err)

	assert.Equal(t, TypeReversal, reversal.Type)
	require.NotNil(t, reversal.ReversalOf)
	assert.Equal(t, original.ID, *reversal.ReversalOf)
	assert.Equal(t, "INVOICE:REVERSAL", reversal.SourceType)
	assert.Equal(t, original.Number, reversal.SourceNumber)

	// Debits and credits swapped line for line.
	require.Len(t, reversal.Lines, 2)
	assert.Equal(t, 0.0, reversal.Lines[0].Debit)
	assert.Equal(t, 120.0, reversal.Lines[0].Credit)
	assert.Equal(t, 120.0, reversal.Lines[1].Debit)

	// Account balances and customer balance cancel out.
	assert.InDelta(t, 0, store.accounts[1].Balance, 0.001)
	assert.InDelta(t, 0, store.accounts[2].Balance, 0.001)
	assert.InDelta(t, 0, store.customers[5], 0.001)

	// Original is marked reversed.
	require.NotNil(t, store.entries[original.ID].ReversedBy)
	assert.Equal(t, reversal.ID, *store.entries[original.ID].ReversedBy)
}

func TestReverseEntryTwiceRejected(t *testing.T) {
	store := newFakeStore(cashAccount(1), revenueAccount(2))
	svc := testService(store)

	original, err := svc.PostEntry(context.Background(), salesInput(80))
	require.NoError(t, err)

	_, err = svc.ReverseEntry(context.Background(), ReverseInput{EntryID: original.ID})
	require.NoError(t, err)

	_, err = svc.ReverseEntry(context.Background(), ReverseInput{EntryID: original.ID})
	require.ErrorIs(t, err, acctshared.ErrAlreadyReversed)
}

func TestReverseAReversalRejected(t *testing.T) {
	store := newFakeStore(cashAccount(1), revenueAccount(2))
	svc := testService(store)

	original, err := svc.PostEntry(context.Background(), salesInput(80))
	require.NoError(t, err)
	reversal, err := svc.ReverseEntry(context.Background(), ReverseInput{EntryID: original.ID})
	require.NoError(t, err)

	_, err = svc.ReverseEntry(context.Background(), ReverseInput{EntryID: reversal.ID})
	require.ErrorIs(t, err, acctshared.ErrInvalidStatus)
}

func TestValidateRejectsMixedLine(t *testing.T) {
	input := salesInput(100)
	input.Lines[0].Credit = 50

	err := input.Validate()
	require.Error(t, err)
}

func TestValidateRequiresSource(t *testing.T) {
	input := salesInput(100)
	input.Source.ID = uuid.Nil

	err := input.Validate()
	require.Error(t, err)
}
