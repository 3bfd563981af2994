package ap

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidAmount indicates a non-positive document amount.
	ErrInvalidAmount = errors.New("ap: amount must be positive")
	// ErrSettlementChoice indicates an expense with neither or both of a
	// cash account and a vendor.
	ErrSettlementChoice = errors.New("ap: expense needs exactly one of cash account or vendor")
	// ErrNotExpenseAccount indicates a non-expense account on an expense.
	ErrNotExpenseAccount = errors.New("ap: account is not an expense account")
)

// Vendor is the external supplier record whose cached balance this core
// maintains alongside the payable ledger.
type Vendor struct {
	ID        int64
	Code      string
	Name      string
	Balance   float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PurchaseInput posts a received purchase.
type PurchaseInput struct {
	VendorID   int64
	PurchaseID uuid.UUID
	PurchaseNo string
	Amount     float64
	Date       time.Time
	ActorID    int64
}

// PaymentInput posts cash paid to a vendor.
type PaymentInput struct {
	VendorID      int64
	PaymentID     uuid.UUID
	PaymentNo     string
	Amount        float64
	Method        string
	CashAccountID int64
	Date          time.Time
	ActorID       int64
}

// ExpenseInput posts an approved operating expense, settled from a cash/bank
// account or accrued against a vendor.
type ExpenseInput struct {
	ExpenseAccountID int64
	VendorID         int64
	CashAccountID    int64
	ExpenseID        uuid.UUID
	ExpenseNo        string
	Amount           float64
	Narration        string
	Date             time.Time
	ActorID          int64
}
