package ap

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
	"github.com/meridian-dms/meridian/internal/accounting/journals"
	"github.com/meridian-dms/meridian/internal/accounting/ledger"
	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
	"github.com/meridian-dms/meridian/internal/shared"
)

type fakeVendors struct {
	vendors map[int64]Vendor
}

func (f fakeVendors) GetVendor(ctx context.Context, id int64) (Vendor, error) {
	v, ok := f.vendors[id]
	if !ok {
		return Vendor{}, shared.ErrNotFound
	}
	return v, nil
}

func (f fakeVendors) SumBalances(ctx context.Context) (float64, error) { return 0, nil }

type fakeAccounts struct {
	byID      map[int64]accounts.Account
	bySubtype map[string]accounts.Account
}

func (f fakeAccounts) Get(ctx context.Context, id int64) (accounts.Account, error) {
	a, ok := f.byID[id]
	if !ok {
		return accounts.Account{}, acctshared.ErrAccountNotFound
	}
	return a, nil
}

func (f fakeAccounts) GetBySubtype(ctx context.Context, subtype string) (accounts.Account, error) {
	a, ok := f.bySubtype[subtype]
	if !ok {
		return accounts.Account{}, accounts.MissingAccountError{Subtype: subtype}
	}
	return a, nil
}

type fakeJournal struct {
	posted []journals.PostingInput
}

func (f *fakeJournal) PostEntry(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error) {
	f.posted = append(f.posted, input)
	return journals.JournalEntry{ID: int64(len(f.posted)), Type: input.Type}, nil
}

type fakeStatements struct {
	queried []shared.PartyRef
}

func (f *fakeStatements) PartyStatement(ctx context.Context, party shared.PartyRef, from, to time.Time) ([]ledger.Entry, error) {
	f.queried = append(f.queried, party)
	return []ledger.Entry{{ID: 1}}, nil
}

func chart() fakeAccounts {
	return fakeAccounts{
		byID: map[int64]accounts.Account{
			10: {ID: 10, Code: "1000", IsCash: true, IsActive: true},
			60: {ID: 60, Code: "6000", Type: accounts.AccountTypeExpense, IsActive: true},
			40: {ID: 40, Code: "4000", Type: accounts.AccountTypeIncome, IsActive: true},
		},
		bySubtype: map[string]accounts.Account{
			accounts.SubtypeInventory: {ID: 5, Code: "1200"},
			accounts.SubtypePayable:   {ID: 6, Code: "2000"},
		},
	}
}

func newAPService(journal *fakeJournal) *Service {
	vendors := fakeVendors{vendors: map[int64]Vendor{
		3: {ID: 3, Code: "VEN-3", Name: "Delta Supply"},
	}}
	return NewService(vendors, chart(), journal, &fakeStatements{}, nil)
}

func TestPostPurchaseComposesLines(t *testing.T) {
	journal := &fakeJournal{}
	svc := newAPService(journal)

	entry, err := svc.PostPurchase(context.Background(), PurchaseInput{
		VendorID: 3, PurchaseID: uuid.New(), PurchaseNo: "PO-11", Amount: 800,
		Date: time.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, journals.TypePurchase, entry.Type)

	input := journal.posted[0]
	require.Len(t, input.Lines, 2)
	assert.Equal(t, int64(5), input.Lines[0].AccountID) // inventory
	assert.Equal(t, 800.0, input.Lines[0].Debit)
	assert.Equal(t, int64(6), input.Lines[1].AccountID) // payable
	assert.Equal(t, 800.0, input.Lines[1].Credit)
	assert.Equal(t, shared.PartyVendor, input.Lines[1].Party.Kind)

	require.NotNil(t, input.PartyDelta)
	assert.Equal(t, 800.0, input.PartyDelta.Delta)
	assert.Equal(t, "PURCHASE", input.Source.Type)
}

func TestPostPurchaseValidation(t *testing.T) {
	svc := newAPService(&fakeJournal{})
	ctx := context.Background()

	_, err := svc.PostPurchase(ctx, PurchaseInput{VendorID: 3, Amount: 0})
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.PostPurchase(ctx, PurchaseInput{VendorID: 404, Amount: 10})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPostPaymentComposesLines(t *testing.T) {
	journal := &fakeJournal{}
	svc := newAPService(journal)

	_, err := svc.PostPayment(context.Background(), PaymentInput{
		VendorID: 3, Amount: 300, CashAccountID: 10, Method: "CASH",
		PaymentNo: "PMT-5", Date: time.Now(),
	})
	require.NoError(t, err)

	input := journal.posted[0]
	require.Len(t, input.Lines, 2)
	assert.Equal(t, int64(6), input.Lines[0].AccountID) // payable debit
	assert.Equal(t, 300.0, input.Lines[0].Debit)
	assert.Equal(t, int64(10), input.Lines[1].AccountID) // cash credit
	assert.Equal(t, 300.0, input.Lines[1].Credit)
	assert.Equal(t, -300.0, input.PartyDelta.Delta)
	assert.Equal(t, "PMT-5", input.Source.Number)
}

func TestPostPaymentRequiresCashAccount(t *testing.T) {
	svc := newAPService(&fakeJournal{})

	_, err := svc.PostPayment(context.Background(), PaymentInput{
		VendorID: 3, Amount: 100, CashAccountID: 60, Date: time.Now(),
	})
	require.ErrorIs(t, err, acctshared.ErrNotCashAccount)
}

func TestPostExpenseCashSettled(t *testing.T) {
	journal := &fakeJournal{}
	svc := newAPService(journal)

	_, err := svc.PostExpense(context.Background(), ExpenseInput{
		ExpenseAccountID: 60, CashAccountID: 10, ExpenseID: uuid.New(),
		ExpenseNo: "EXP-2", Amount: 150, Date: time.Now(),
	})
	require.NoError(t, err)

	input := journal.posted[0]
	require.Len(t, input.Lines, 2)
	assert.Equal(t, int64(60), input.Lines[0].AccountID)
	assert.Equal(t, 150.0, input.Lines[0].Debit)
	assert.Equal(t, int64(10), input.Lines[1].AccountID)
	assert.Equal(t, 150.0, input.Lines[1].Credit)
	assert.Nil(t, input.PartyDelta)
}

func TestPostExpenseAccruedOnVendor(t *testing.T) {
	journal := &fakeJournal{}
	svc := newAPService(journal)

	_, err := svc.PostExpense(context.Background(), ExpenseInput{
		ExpenseAccountID: 60, VendorID: 3, ExpenseID: uuid.New(),
		ExpenseNo: "EXP-3", Amount: 220, Date: time.Now(),
	})
	require.NoError(t, err)

	input := journal.posted[0]
	require.Len(t, input.Lines, 2)
	assert.Equal(t, int64(6), input.Lines[1].AccountID) // payable credit
	require.NotNil(t, input.PartyDelta)
	assert.Equal(t, 220.0, input.PartyDelta.Delta)
}

func TestPostExpenseSettlementChoice(t *testing.T) {
	svc := newAPService(&fakeJournal{})
	ctx := context.Background()
	base := ExpenseInput{ExpenseAccountID: 60, ExpenseID: uuid.New(), Amount: 50, Date: time.Now()}

	// Neither cash account nor vendor.
	_, err := svc.PostExpense(ctx, base)
	require.ErrorIs(t, err, ErrSettlementChoice)

	// Both at once.
	both := base
	both.CashAccountID = 10
	both.VendorID = 3
	_, err = svc.PostExpense(ctx, both)
	require.ErrorIs(t, err, ErrSettlementChoice)
}

func TestPostExpenseRejectsNonExpenseAccount(t *testing.T) {
	svc := newAPService(&fakeJournal{})

	_, err := svc.PostExpense(context.Background(), ExpenseInput{
		ExpenseAccountID: 40, CashAccountID: 10, ExpenseID: uuid.New(),
		Amount: 50, Date: time.Now(),
	})
	require.ErrorIs(t, err, ErrNotExpenseAccount)
}

func TestStatementQueriesVendorParty(t *testing.T) {
	statements := &fakeStatements{}
	vendors := fakeVendors{vendors: map[int64]Vendor{3: {ID: 3}}}
	svc := NewService(vendors, chart(), &fakeJournal{}, statements, nil)

	entries, err := svc.Statement(context.Background(), 3, time.Now().AddDate(0, -1, 0), time.Now())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	require.Len(t, statements.queried, 1)
	assert.Equal(t, shared.PartyVendor, statements.queried[0].Kind)
}
