package ar

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

// NumberPort hands out receipt numbers when the caller supplies none.
type NumberPort interface {
	NextNumber(ctx context.Context, kind string, at time.Time) (string, error)
}

// DefaultReturnCostRatio estimates COGS on returns as a share of the sale
// amount when the true average cost is unavailable. A business heuristic,
// kept configurable on purpose.
const DefaultReturnCostRatio = 0.70

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	ReturnCostRatio float64
}

// Service composes receivable-side journal entries: sales, sales returns,
// and customer receipts. The journal posting and the customer balance
// adjustment are one atomic unit.
type Service struct {
	customers Repository
	accounts  AccountsPort
	journal   JournalPort
	ledger    StatementPort
	numbers   NumberPort
	costRatio float64
}

// NewService builds Service.
func NewService(customers Repository, accountsPort AccountsPort, journal JournalPort, statements StatementPort, numbers NumberPort, cfg ServiceConfig) *Service {
	ratio := cfg.ReturnCostRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = DefaultReturnCostRatio
	}
	return &Service{
		customers: customers,
		accounts:  accountsPort,
		journal:   journal,
		ledger:    statements,
		numbers:   numbers,
		costRatio: ratio,
	}
}

// PostSale records an issued invoice: Dr Receivable / Cr Sales Revenue, plus
// Dr COGS / Cr Inventory when the cost is known. Customer balance grows by
// the invoice amount.
func (s *Service) PostSale(ctx context.Context, input SaleInput) (journals.JournalEntry, error) {
	if input.Amount <= 0 {
		return journals.JournalEntry{}, ErrInvalidAmount
	}
	if input.CostOfGoodsSold < 0 {
		return journals.JournalEntry{}, ErrNegativeCost
	}
	customer, err := s.customers.GetCustomer(ctx, input.CustomerID)
	if err != nil {
		return journals.JournalEntry{}, fmt.Errorf("ar: customer %d: %w", input.CustomerID, err)
	}

	receivable, err := s.accounts.GetBySubtype(ctx, accounts.SubtypeReceivable)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	revenue, err := s.accounts.GetBySubtype(ctx, accounts.SubtypeSalesRevenue)
	if err != nil {
		return journals.JournalEntry{}, err
	}

	party := shared.PartyRef{Kind: shared.PartyCustomer, ID: customer.ID}
	lines := []journals.LineInput{
		{AccountID: receivable.ID, Debit: input.Amount, Party: party},
		{AccountID: revenue.ID, Credit: input.Amount},
	}
	if input.CostOfGoodsSold > 0 {
		cogs, err := s.accounts.GetBySubtype(ctx, accounts.SubtypeCOGS)
		if err != nil {
			return journals.JournalEntry{}, err
		}
		inventory, err := s.accounts.GetBySubtype(ctx, accounts.SubtypeInventory)
		if err != nil {
			return journals.JournalEntry{}, err
		}
		lines = append(lines,
			journals.LineInput{AccountID: cogs.ID, Debit: input.CostOfGoodsSold},
			journals.LineInput{AccountID: inventory.ID, Credit: input.CostOfGoodsSold},
		)
	}

	return s.journal.PostEntry(ctx, journals.PostingInput{
		Type:      journals.TypeSales,
		Date:      input.Date,
		Narration: fmt.Sprintf("Invoice %s - %s", input.InvoiceNo, customer.Name),
		Lines:     lines,
		Source:    journals.SourceRef{Type: "INVOICE", ID: input.InvoiceID, Number: input.InvoiceNo},
		PostedBy:  input.ActorID,
		PartyDelta: &journals.PartyAdjustment{
			Party: party,
			Delta: input.Amount,
		},
	})
}

// PostReturn records a sales return: Dr Sales Returns / Cr Receivable, with
// an estimated inventory/COGS reversal. Customer balance shrinks.
func (s *Service) PostReturn(ctx context.Context, input ReturnInput) (journals.JournalEntry, error) {
	if input.Amount <= 0 {
		return journals.JournalEntry{}, ErrInvalidAmount
	}
	customer, err := s.customers.GetCustomer(ctx, input.CustomerID)
	if err != nil {
		return journals.JournalEntry{}, fmt.Errorf("ar: customer %d: %w", input.CustomerID, err)
	}

	returns, err := s.accounts.GetBySubtype(ctx, accounts.SubtypeSalesReturns)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	receivable, err := s.accounts.GetBySubtype(ctx, accounts.SubtypeReceivable)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	inventory, err := s.accounts.GetBySubtype(ctx, accounts.SubtypeInventory)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	cogs, err := s.accounts.GetBySubtype(ctx, accounts.SubtypeCOGS)
	if err != nil {
		return journals.JournalEntry{}, err
	}

	party := shared.PartyRef{Kind: shared.PartyCustomer, ID: customer.ID}
	// True average cost is unknown at return time; estimate it as a fixed
	// share of the sale price.
	estimatedCost := input.Amount * s.costRatio
	lines := []journals.LineInput{
		{AccountID: returns.ID, Debit: input.Amount},
		{AccountID: receivable.ID, Credit: input.Amount, Party: party},
		{AccountID: inventory.ID, Debit: estimatedCost},
		{AccountID: cogs.ID, Credit: estimatedCost},
	}

	return s.journal.PostEntry(ctx, journals.PostingInput{
		Type:      journals.TypeReturn,
		Date:      input.Date,
		Narration: fmt.Sprintf("Sales return %s - %s", input.OrderNo, customer.Name),
		Lines:     lines,
		Source:    journals.SourceRef{Type: "SALES_RETURN", ID: input.OrderID, Number: input.OrderNo},
		PostedBy:  input.ActorID,
		PartyDelta: &journals.PartyAdjustment{
			Party: party,
			Delta: -input.Amount,
		},
	})
}

// PostReceipt records cash received from a customer into the nominated
// cash/bank account: Dr Cash / Cr Receivable.
func (s *Service) PostReceipt(ctx context.Context, input ReceiptInput) (journals.JournalEntry, error) {
	if input.Amount <= 0 {
		return journals.JournalEntry{}, ErrInvalidAmount
	}
	customer, err := s.customers.GetCustomer(ctx, input.CustomerID)
	if err != nil {
		return journals.JournalEntry{}, fmt.Errorf("ar: customer %d: %w", input.CustomerID, err)
	}

	cashAccount, err := s.accounts.Get(ctx, input.CashAccountID)
	if err != nil {
		return journals.JournalEntry{}, fmt.Errorf("ar: cash account %d: %w", input.CashAccountID, err)
	}
	if !cashAccount.IsCash && !cashAccount.IsBank {
		return journals.JournalEntry{}, acctshared.ErrNotCashAccount
	}
	receivable, err := s.accounts.GetBySubtype(ctx, accounts.SubtypeReceivable)
	if err != nil {
		return journals.JournalEntry{}, err
	}

	number := input.PaymentNo
	if number == "" && s.numbers != nil {
		if number, err = s.numbers.NextNumber(ctx, "RCP", input.Date); err != nil {
			return journals.JournalEntry{}, err
		}
	}
	paymentID := input.PaymentID
	if paymentID == uuid.Nil {
		paymentID = uuid.New()
	}

	party := shared.PartyRef{Kind: shared.PartyCustomer, ID: customer.ID}
	lines := []journals.LineInput{
		{AccountID: cashAccount.ID, Debit: input.Amount, Party: party},
		{AccountID: receivable.ID, Credit: input.Amount, Party: party},
	}

	return s.journal.PostEntry(ctx, journals.PostingInput{
		Type:      journals.TypeReceipt,
		Date:      input.Date,
		Narration: fmt.Sprintf("Receipt %s from %s (%s)", number, customer.Name, input.Method),
		Lines:     lines,
		Source:    journals.SourceRef{Type: "RECEIPT", ID: paymentID, Number: number},
		PostedBy:  input.ActorID,
		PartyDelta: &journals.PartyAdjustment{
			Party: party,
			Delta: -input.Amount,
		},
	})
}

// Statement lists a customer's subsidiary ledger activity.
func (s *Service) Statement(ctx context.Context, customerID int64, from, to time.Time) ([]ledger.Entry, error) {
	if _, err := s.customers.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.ledger.PartyStatement(ctx, shared.PartyRef{Kind: shared.PartyCustomer, ID: customerID}, from, to)
}
