package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-dms/meridian/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetValuation(ctx context.Context, productID int64) (Valuation, error)
	ListTransactions(ctx context.Context, productID int64, limit int) ([]Transaction, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts stock movements.
type MetricsPort interface {
	StockMovement(txType string)
}

const maxMoveAttempts = 3

// Service maintains weighted-average cost and quantity on hand per product.
// Every movement appends an immutable transaction row; the per-product
// valuation row is locked for the duration of the movement so concurrent
// sales cannot oversell.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics, now: time.Now}
}

// AddStock records an inbound movement and blends its cost into the running
// average: newAvg = (qty*avg + inQty*inCost) / (qty + inQty).
func (s *Service) AddStock(ctx context.Context, input AddStockInput) (AddStockResult, error) {
	if input.ProductID == 0 {
		return AddStockResult{}, errors.New("inventory: product required")
	}
	if input.Qty <= 0 {
		return AddStockResult{}, ErrInvalidQuantity
	}
	if input.UnitCost < 0 {
		return AddStockResult{}, ErrInvalidUnitCost
	}
	txType := input.Type
	if txType == "" {
		txType = TransactionTypePurchase
	}

	var result AddStockResult
	err := s.withRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		val, err := tx.GetValuationForUpdate(ctx, input.ProductID)
		if err != nil && !errors.Is(err, ErrValuationNotFound) {
			return err
		}

		newQty := val.Qty + input.Qty
		newAvg := val.AvgCost
		if newQty > 0 {
			newAvg = (val.Qty*val.AvgCost + input.Qty*input.UnitCost) / newQty
		}

		movement := Transaction{
			ProductID:    input.ProductID,
			Type:         txType,
			QtyIn:        input.Qty,
			UnitCost:     input.UnitCost,
			BalanceAfter: newQty,
			SourceType:   input.Source.Type,
			SourceID:     input.Source.ID,
			SourceNumber: input.Source.Number,
			ActorID:      input.ActorID,
		}
		inserted, err := tx.InsertTransaction(ctx, movement)
		if err != nil {
			return err
		}
		if err := s.writeValuation(ctx, tx, input.ProductID, newQty, newAvg); err != nil {
			return err
		}
		result = AddStockResult{Transaction: inserted, NewQty: newQty, AvgCost: newAvg}
		return nil
	})
	if err != nil {
		return AddStockResult{}, err
	}
	s.recordMovement(ctx, result.Transaction)
	return result, nil
}

// RemoveStock records an outbound movement at the current average cost. The
// average is not revalued by removals; the cost returned here is frozen for
// the originating document line.
func (s *Service) RemoveStock(ctx context.Context, input RemoveStockInput) (RemoveStockResult, error) {
	if input.ProductID == 0 {
		return RemoveStockResult{}, errors.New("inventory: product required")
	}
	if input.Qty <= 0 {
		return RemoveStockResult{}, ErrInvalidQuantity
	}
	txType := input.Type
	if txType == "" {
		txType = TransactionTypeSale
	}

	var result RemoveStockResult
	err := s.withRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		val, err := tx.GetValuationForUpdate(ctx, input.ProductID)
		if err != nil && !errors.Is(err, ErrValuationNotFound) {
			return err
		}
		if input.Qty > val.Qty {
			return InsufficientStockError{ProductID: input.ProductID, Available: val.Qty, Requested: input.Qty}
		}

		newQty := val.Qty - input.Qty
		movement := Transaction{
			ProductID:    input.ProductID,
			Type:         txType,
			QtyOut:       input.Qty,
			UnitCost:     val.AvgCost,
			BalanceAfter: newQty,
			SourceType:   input.Source.Type,
			SourceID:     input.Source.ID,
			SourceNumber: input.Source.Number,
			ActorID:      input.ActorID,
		}
		inserted, err := tx.InsertTransaction(ctx, movement)
		if err != nil {
			return err
		}
		if err := s.writeValuation(ctx, tx, input.ProductID, newQty, val.AvgCost); err != nil {
			return err
		}
		result = RemoveStockResult{
			Transaction:   inserted,
			NewQty:        newQty,
			CostAtRemoval: val.AvgCost,
			TotalCost:     val.AvgCost * input.Qty,
		}
		return nil
	})
	if err != nil {
		return RemoveStockResult{}, err
	}
	s.recordMovement(ctx, result.Transaction)
	return result, nil
}

// AdjustStock sets the on-hand quantity directly, logging the signed
// difference. Average cost is unchanged.
func (s *Service) AdjustStock(ctx context.Context, input AdjustStockInput) (AdjustStockResult, error) {
	if input.ProductID == 0 {
		return AdjustStockResult{}, errors.New("inventory: product required")
	}
	if input.NewQty < 0 {
		return AdjustStockResult{}, ErrInvalidQuantity
	}

	var result AdjustStockResult
	err := s.withRetry(ctx, func(ctx context.Context, tx TxRepository) error {
		val, err := tx.GetValuationForUpdate(ctx, input.ProductID)
		if err != nil && !errors.Is(err, ErrValuationNotFound) {
			return err
		}

		diff := input.NewQty - val.Qty
		movement := Transaction{
			ProductID:    input.ProductID,
			Type:         TransactionTypeAdjustment,
			UnitCost:     val.AvgCost,
			BalanceAfter: input.NewQty,
			Reason:       input.Reason,
			ActorID:      input.ActorID,
		}
		if diff >= 0 {
			movement.QtyIn = diff
		} else {
			movement.QtyOut = -diff
		}
		inserted, err := tx.InsertTransaction(ctx, movement)
		if err != nil {
			return err
		}
		if err := s.writeValuation(ctx, tx, input.ProductID, input.NewQty, val.AvgCost); err != nil {
			return err
		}
		result = AdjustStockResult{Transaction: inserted, OldQty: val.Qty, NewQty: input.NewQty}
		return nil
	})
	if err != nil {
		return AdjustStockResult{}, err
	}
	s.recordMovement(ctx, result.Transaction)
	return result, nil
}

// GetValuation reads the current position for a product.
func (s *Service) GetValuation(ctx context.Context, productID int64) (Valuation, error) {
	return s.repo.GetValuation(ctx, productID)
}

// StockCard lists a product's movement log.
func (s *Service) StockCard(ctx context.Context, productID int64, limit int) ([]Transaction, error) {
	if productID == 0 {
		return nil, errors.New("inventory: product required")
	}
	return s.repo.ListTransactions(ctx, productID, limit)
}

func (s *Service) withRetry(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	var err error
	for attempt := 0; attempt < maxMoveAttempts; attempt++ {
		err = s.repo.WithTx(ctx, fn)
		if err == nil || !errors.Is(err, shared.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *Service) writeValuation(ctx context.Context, tx TxRepository, productID int64, qty, avgCost float64) error {
	if err := tx.UpsertValuation(ctx, Valuation{
		ProductID:  productID,
		Qty:        qty,
		AvgCost:    avgCost,
		TotalValue: qty * avgCost,
	}); err != nil {
		return err
	}
	return tx.UpdateProductStock(ctx, productID, qty)
}

func (s *Service) recordMovement(ctx context.Context, movement Transaction) {
	if s.metrics != nil {
		s.metrics.StockMovement(string(movement.Type))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  movement.ActorID,
			Action:   fmt.Sprintf("inventory.%s", movement.Type),
			Entity:   "inventory_tx",
			EntityID: fmt.Sprintf("%d", movement.ID),
			Meta: map[string]any{
				"product_id":    movement.ProductID,
				"qty_in":        movement.QtyIn,
				"qty_out":       movement.QtyOut,
				"balance_after": movement.BalanceAfter,
			},
			At: s.now(),
		})
	}
}
