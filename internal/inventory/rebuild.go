package inventory

import (
	"context"
	"errors"
	"math"
)

// RebuildPort is the repository surface the valuation rebuild needs.
type RebuildPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ProductIDs(ctx context.Context) ([]int64, error)
	AllTransactions(ctx context.Context, productID int64) ([]Transaction, error)
}

// RebuildResult reports one product's replayed position against the stored
// valuation row.
type RebuildResult struct {
	ProductID int64
	Qty       float64
	AvgCost   float64
	Drifted   bool
}

// driftTolerance below which a replayed figure counts as matching.
const driftTolerance = 0.01

// Rebuilder recomputes valuations by replaying the immutable movement log.
// The log is the source of truth; the valuation row is a derived snapshot.
type Rebuilder struct {
	repo RebuildPort
}

// NewRebuilder builds Rebuilder.
func NewRebuilder(repo RebuildPort) *Rebuilder {
	return &Rebuilder{repo: repo}
}

// RebuildProduct replays a single product's movements and rewrites its
// valuation row when the replayed result drifted from the stored one.
func (r *Rebuilder) RebuildProduct(ctx context.Context, productID int64) (RebuildResult, error) {
	movements, err := r.repo.AllTransactions(ctx, productID)
	if err != nil {
		return RebuildResult{}, err
	}
	qty, avg := Replay(movements)

	result := RebuildResult{ProductID: productID, Qty: qty, AvgCost: avg}
	err = r.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetValuationForUpdate(ctx, productID)
		if err != nil && !errors.Is(err, ErrValuationNotFound) {
			return err
		}
		if math.Abs(current.Qty-qty) < driftTolerance && math.Abs(current.AvgCost-avg) < driftTolerance {
			return nil
		}
		result.Drifted = true
		if err := tx.UpsertValuation(ctx, Valuation{
			ProductID:  productID,
			Qty:        qty,
			AvgCost:    avg,
			TotalValue: qty * avg,
		}); err != nil {
			return err
		}
		return tx.UpdateProductStock(ctx, productID, qty)
	})
	if err != nil {
		return RebuildResult{}, err
	}
	return result, nil
}

// RebuildAll replays every product with a valuation row.
func (r *Rebuilder) RebuildAll(ctx context.Context) ([]RebuildResult, error) {
	ids, err := r.repo.ProductIDs(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]RebuildResult, 0, len(ids))
	for _, id := range ids {
		res, err := r.RebuildProduct(ctx, id)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Replay folds a movement log into quantity on hand and weighted-average
// cost. Inbound movements blend cost; outbound movements consume at the
// running average; adjustments shift quantity without revaluing.
func Replay(movements []Transaction) (qty, avg float64) {
	for _, m := range movements {
		switch {
		case m.Type == TransactionTypeAdjustment:
			qty += m.QtyIn - m.QtyOut
		case m.QtyIn > 0:
			newQty := qty + m.QtyIn
			if newQty > 0 {
				avg = (qty*avg + m.QtyIn*m.UnitCost) / newQty
			}
			qty = newQty
		case m.QtyOut > 0:
			qty -= m.QtyOut
		}
	}
	if qty < 0 {
		qty = 0
	}
	return qty, avg
}
