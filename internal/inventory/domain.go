package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TransactionType enumerates stock movement causes.
type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "PURCHASE"
	TransactionTypeSale       TransactionType = "SALE"
	TransactionTypeReturn     TransactionType = "RETURN"
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
)

// Transaction is one immutable row in the stock movement log. The valuation
// is fully reconstructible by replaying these rows in order.
type Transaction struct {
	ID           int64
	ProductID    int64
	Type         TransactionType
	QtyIn        float64
	QtyOut       float64
	UnitCost     float64
	BalanceAfter float64
	SourceType   string
	SourceID     uuid.UUID
	SourceNumber string
	Reason       string
	ActorID      int64
	CreatedAt    time.Time
}

// Valuation summarises one product's stock position under weighted-average
// costing. TotalValue stays equal to Qty times AvgCost within rounding.
type Valuation struct {
	ProductID  int64
	Qty        float64
	AvgCost    float64
	TotalValue float64
	UpdatedAt  time.Time
}

// SourceRef ties a movement to its originating document.
type SourceRef struct {
	Type   string
	ID     uuid.UUID
	Number string
}

// AddStockInput describes an inbound movement.
type AddStockInput struct {
	ProductID int64
	Qty       float64
	UnitCost  float64
	Type      TransactionType
	Source    SourceRef
	ActorID   int64
}

// RemoveStockInput describes an outbound movement.
type RemoveStockInput struct {
	ProductID int64
	Qty       float64
	Type      TransactionType
	Source    SourceRef
	ActorID   int64
}

// AdjustStockInput sets the on-hand quantity directly.
type AdjustStockInput struct {
	ProductID int64
	NewQty    float64
	Reason    string
	ActorID   int64
}

// AddStockResult reports the movement and the refreshed valuation.
type AddStockResult struct {
	Transaction Transaction
	NewQty      float64
	AvgCost     float64
}

// RemoveStockResult freezes the cost used at the moment of removal. Callers
// must persist CostAtRemoval/TotalCost onto the originating document line so
// later average-cost changes cannot drift it.
type RemoveStockResult struct {
	Transaction   Transaction
	NewQty        float64
	CostAtRemoval float64
	TotalCost     float64
}

// AdjustStockResult reports the correction applied.
type AdjustStockResult struct {
	Transaction Transaction
	OldQty      float64
	NewQty      float64
}

// InsufficientStockError reports a removal exceeding quantity on hand. The
// request is rejected, never clamped.
type InsufficientStockError struct {
	ProductID int64
	Available float64
	Requested float64
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: product %d has %.2f on hand, %.2f requested", e.ProductID, e.Available, e.Requested)
}

var (
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = errors.New("inventory: unit cost must be >= 0")
	// ErrValuationNotFound indicates a missing valuation row.
	ErrValuationNotFound = errors.New("inventory: valuation not found")
)
