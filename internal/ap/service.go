package ap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
	"github.com/meridian-dms/meridian/internal/accounting/journals"
	"github.com/meridian-dms/meridian/internal/accounting/ledger"
	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
	"github.com/meridian-dms/meridian/internal/shared"
)

// AccountsPort resolves chart-of-accounts entries for line recipes.
type AccountsPort interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
	GetBySubtype(ctx context.Context, subtype string) (accounts.Account, error)
}

// JournalPort posts composed entries.
type JournalPort interface {
	PostEntry(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error)
}

// StatementPort reads subsidiary ledger activity.
type StatementPort interface {
	PartyStatement(ctx context.Context, party shared.PartyRef, from, to time.Time) ([]ledger.Entry, error)
}

// NumberPort hands out payment numbers when the caller supplies none.
type NumberPort interface {
	NextNumber(ctx context.Context, kind string, at time.Time) (string, error)
}

// Service composes payable-side journal entries: purchases, vendor payments,
// and expenses. Posting and the vendor balance adjustment are one atomic unit.
type Service struct {
	vendors  Repository
	accounts AccountsPort
	journal  JournalPort
	ledger   StatementPort
	numbers  NumberPort
}

// NewService builds Service.
func NewService(vendors Repository, accountsPort AccountsPort, journal JournalPort, statements StatementPort, numbers NumberPort) *Service {
	return &Service{vendors: vendors, accounts: accountsPort, journal: journal, ledger: statements, numbers: numbers}
}

// PostPurchase records received goods on account: Dr Inventory / Cr Payable.
// Vendor balance grows by the purchase amount.
func (s *Service) PostPurchase(ctx context.Context, input PurchaseInput) (journals.JournalEntry, error) {
	if input.Amount <= 0 {
		return journals.JournalEntry{}, ErrInvalidAmount
	}
	vendor, err := s.vendors.GetVendor(ctx, input.VendorID)
	if err != nil {
		return journals.JournalEntry{}, fmt.Errorf("ap: vendor %d: %w", input.VendorID, err)
	}

	inventory, err := s.accounts.GetBySubtype(ctx, accounts.SubtypeInventory)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	payable, err := s.accounts.GetBySubtype(ctx, accounts.SubtypePayable)
	if err != nil {
		return journals.JournalEntry{}, err
	}

	party := shared.PartyRef{Kind: shared.PartyVendor, ID: vendor.ID}
	lines := []journals.LineInput{
		{AccountID: inventory.ID, Debit: input.Amount},
		{AccountID: payable.ID, Credit: input.Amount, Party: party},
	}

	return s.journal.PostEntry(ctx, journals.PostingInput{
		Type:      journals.TypePurchase,
		Date:      input.Date,
		Narration: fmt.Sprintf("Purchase %s - %s", input.PurchaseNo, vendor.Name),
		Lines:     lines,
		Source:    journals.SourceRef{Type: "PURCHASE", ID: input.PurchaseID, Number: input.PurchaseNo},
		PostedBy:  input.ActorID,
		PartyDelta: &journals.PartyAdjustment{
			Party: party,
			Delta: input.Amount,
		},
	})
}

// PostPayment records cash paid to a vendor from the nominated cash/bank
// account: Dr Payable / Cr Cash. Vendor balance shrinks.
func (s *Service) PostPayment(ctx context.Context, input PaymentInput) (journals.JournalEntry, error) {
	if input.Amount <= 0 {
		return journals.JournalEntry{}, ErrInvalidAmount
	}
	vendor, err := s.vendors.GetVendor(ctx, input.VendorID)
	if err != nil {
		return journals.JournalEntry{}, fmt.Errorf("ap: vendor %d: %w", input.VendorID, err)
	}

	cashAccount, err := s.accounts.Get(ctx, input.CashAccountID)
	if err != nil {
		return journals.JournalEntry{}, fmt.Errorf("ap: cash account %d: %w", input.CashAccountID, err)
	}
	if !cashAccount.IsCash && !cashAccount.IsBank {
		return journals.JournalEntry{}, acctshared.ErrNotCashAccount
	}
	payable, err := s.accounts.GetBySubtype(ctx, accounts.SubtypePayable)
	if err != nil {
		return journals.JournalEntry{}, err
	}

	number := input.PaymentNo
	if number == "" && s.numbers != nil {
		if number, err = s.numbers.NextNumber(ctx, "PMT", input.Date); err != nil {
			return journals.JournalEntry{}, err
		}
	}
	paymentID := input.PaymentID
	if paymentID == uuid.Nil {
		paymentID = uuid.New()
	}

	party := shared.PartyRef{Kind: shared.PartyVendor, ID: vendor.ID}
	lines := []journals.LineInput{
		{AccountID: payable.ID, Debit: input.Amount, Party: party},
		{AccountID: cashAccount.ID, Credit: input.Amount, Party: party},
	}

	return s.journal.PostEntry(ctx, journals.PostingInput{
		Type:      journals.TypePayment,
		Date:      input.Date,
		Narration: fmt.Sprintf("Payment %s to %s (%s)", number, vendor.Name, input.Method),
		Lines:     lines,
		Source:    journals.SourceRef{Type: "PAYMENT", ID: paymentID, Number: number},
		PostedBy:  input.ActorID,
		PartyDelta: &journals.PartyAdjustment{
			Party: party,
			Delta: -input.Amount,
		},
	})
}

// PostExpense records an approved operating expense. With a cash account it
// is settled immediately (Dr Expense / Cr Cash); with a vendor it accrues
// onto the payable (Dr Expense / Cr Payable).
func (s *Service) PostExpense(ctx context.Context, input ExpenseInput) (journals.JournalEntry, error) {
	if input.Amount <= 0 {
		return journals.JournalEntry{}, ErrInvalidAmount
	}
	if (input.CashAccountID == 0) == (input.VendorID == 0) {
		return journals.JournalEntry{}, ErrSettlementChoice
	}

	expense, err := s.accounts.Get(ctx, input.ExpenseAccountID)
	if err != nil {
		return journals.JournalEntry{}, fmt.Errorf("ap: expense account %d: %w", input.ExpenseAccountID, err)
	}
	if expense.Type != accounts.AccountTypeExpense {
		return journals.JournalEntry{}, ErrNotExpenseAccount
	}

	posting := journals.PostingInput{
		Type:     journals.TypeExpense,
		Date:     input.Date,
		Source:   journals.SourceRef{Type: "EXPENSE", ID: input.ExpenseID, Number: input.ExpenseNo},
		PostedBy: input.ActorID,
	}

	if input.CashAccountID != 0 {
		cashAccount, err := s.accounts.Get(ctx, input.CashAccountID)
		if err != nil {
			return journals.JournalEntry{}, fmt.Errorf("ap: cash account %d: %w", input.CashAccountID, err)
		}
		if !cashAccount.IsCash && !cashAccount.IsBank {
			return journals.JournalEntry{}, acctshared.ErrNotCashAccount
		}
		posting.Narration = narrationOr(input.Narration, fmt.Sprintf("Expense %s", input.ExpenseNo))
		posting.Lines = []journals.LineInput{
			{AccountID: expense.ID, Debit: input.Amount},
			{AccountID: cashAccount.ID, Credit: input.Amount},
		}
		return s.journal.PostEntry(ctx, posting)
	}

	vendor, err := s.vendors.GetVendor(ctx, input.VendorID)
	if err != nil {
		return journals.JournalEntry{}, fmt.Errorf("ap: vendor %d: %w", input.VendorID, err)
	}
	payable, err := s.accounts.GetBySubtype(ctx, accounts.SubtypePayable)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	party := shared.PartyRef{Kind: shared.PartyVendor, ID: vendor.ID}
	posting.Narration = narrationOr(input.Narration, fmt.Sprintf("Expense %s - %s", input.ExpenseNo, vendor.Name))
	posting.Lines = []journals.LineInput{
		{AccountID: expense.ID, Debit: input.Amount},
		{AccountID: payable.ID, Credit: input.Amount, Party: party},
	}
	posting.PartyDelta = &journals.PartyAdjustment{Party: party, Delta: input.Amount}
	return s.journal.PostEntry(ctx, posting)
}

// Statement lists a vendor's subsidiary ledger activity.
func (s *Service) Statement(ctx context.Context, vendorID int64, from, to time.Time) ([]ledger.Entry, error) {
	if _, err := s.vendors.GetVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	return s.ledger.PartyStatement(ctx, shared.PartyRef{Kind: shared.PartyVendor, ID: vendorID}, from, to)
}

func narrationOr(narration, fallback string) string {
	if narration != "" {
		return narration
	}
	return fallback
}
