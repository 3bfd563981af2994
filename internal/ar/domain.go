package ar

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidAmount indicates a non-positive document amount.
	ErrInvalidAmount = errors.New("ar: amount must be positive")
	// ErrNegativeCost indicates a negative cost of goods sold.
	ErrNegativeCost = errors.New("ar: cost cannot be negative")
)

// Customer is the external customer record this core reads for name/code and
// whose cached balance it maintains. The receivable ledger remains the source
// of truth; the balance is a fast-path cache.
type Customer struct {
	ID        int64
	Code      string
	Name      string
	Balance   float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SaleInput posts an issued invoice.
type SaleInput struct {
	CustomerID int64
	InvoiceID  uuid.UUID
	InvoiceNo  string
	Amount     float64
	// CostOfGoodsSold is the frozen cost captured from the inventory engine
	// at removal time. Zero means cost unknown; no COGS lines are posted.
	CostOfGoodsSold float64
	Date            time.Time
	ActorID         int64
}

// ReturnInput posts a sales return against a customer.
type ReturnInput struct {
	CustomerID int64
	OrderID    uuid.UUID
	OrderNo    string
	Amount     float64
	Date       time.Time
	ActorID    int64
}

// ReceiptInput posts cash received from a customer.
type ReceiptInput struct {
	CustomerID    int64
	PaymentID     uuid.UUID
	PaymentNo     string
	Amount        float64
	Method        string
	CashAccountID int64
	Date          time.Time
	ActorID       int64
}
