package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-dms/meridian/internal/shared"
)

type fakeInventoryRepo struct {
	valuations   map[int64]Valuation
	transactions []Transaction
	productStock map[int64]float64
	nextTxID     int64

	conflicts int
	insertErr error
	upsertErr error
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{
		valuations:   make(map[int64]Valuation),
		productStock: make(map[int64]float64),
	}
}

func (r *fakeInventoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.conflicts > 0 {
		r.conflicts--
		return shared.ErrConflict
	}
	snapshot := len(r.transactions)
	vals := make(map[int64]Valuation, len(r.valuations))
	for k, v := range r.valuations {
		vals[k] = v
	}
	if err := fn(ctx, r); err != nil {
		r.transactions = r.transactions[:snapshot]
		r.valuations = vals
		return err
	}
	return nil
}

func (r *fakeInventoryRepo) GetValuation(ctx context.Context, productID int64) (Valuation, error) {
	v, ok := r.valuations[productID]
	if !ok {
		return Valuation{}, ErrValuationNotFound
	}
	return v, nil
}

func (r *fakeInventoryRepo) ListTransactions(ctx context.Context, productID int64, limit int) ([]Transaction, error) {
	return r.AllTransactions(ctx, productID)
}

func (r *fakeInventoryRepo) GetValuationForUpdate(ctx context.Context, productID int64) (Valuation, error) {
	return r.GetValuation(ctx, productID)
}

func (r *fakeInventoryRepo) UpsertValuation(ctx context.Context, v Valuation) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.valuations[v.ProductID] = v
	return nil
}

func (r *fakeInventoryRepo) InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	if r.insertErr != nil {
		return Transaction{}, r.insertErr
	}
	r.nextTxID++
	tx.ID = r.nextTxID
	r.transactions = append(r.transactions, tx)
	return tx, nil
}

func (r *fakeInventoryRepo) UpdateProductStock(ctx context.Context, productID int64, qty float64) error {
	r.productStock[productID] = qty
	return nil
}

func (r *fakeInventoryRepo) ProductIDs(ctx context.Context) ([]int64, error) {
	ids := make([]int64, 0, len(r.valuations))
	for id := range r.valuations {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *fakeInventoryRepo) AllTransactions(ctx context.Context, productID int64) ([]Transaction, error) {
	var out []Transaction
	for _, t := range r.transactions {
		if t.ProductID == productID {
			out = append(out, t)
		}
	}
	return out, nil
}

func TestAddStockBlendsAverageCost(t *testing.T) {
	repo := newFakeInventoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	first, err := svc.AddStock(ctx, AddStockInput{ProductID: 1, Qty: 10, UnitCost: 100})
	require.NoError(t, err)
	assert.InDelta(t, 10, first.NewQty, 0.001)
	assert.InDelta(t, 100, first.AvgCost, 0.001)

	second, err := svc.AddStock(ctx, AddStockInput{ProductID: 1, Qty: 10, UnitCost: 200})
	require.NoError(t, err)
	assert.InDelta(t, 20, second.NewQty, 0.001)
	assert.InDelta(t, 150, second.AvgCost, 0.001)

	val := repo.valuations[1]
	assert.InDelta(t, 20*150, val.TotalValue, 0.001)
	assert.InDelta(t, 20, repo.productStock[1], 0.001)
	assert.Equal(t, TransactionTypePurchase, repo.transactions[0].Type)
}

func TestAddStockRejectsBadInput(t *testing.T) {
	repo := newFakeInventoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: 1, Qty: 0, UnitCost: 10})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddStock(ctx, AddStockInput{ProductID: 1, Qty: 5, UnitCost: -1})
	require.ErrorIs(t, err, ErrInvalidUnitCost)

	assert.Empty(t, repo.transactions)
}

func TestRemoveStockFreezesCostAtRemoval(t *testing.T) {
	repo := newFakeInventoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: 1, Qty: 10, UnitCost: 100})
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, AddStockInput{ProductID: 1, Qty: 10, UnitCost: 200})
	require.NoError(t, err)

	res, err := svc.RemoveStock(ctx, RemoveStockInput{ProductID: 1, Qty: 5})
	require.NoError(t, err)
	assert.InDelta(t, 15, res.NewQty, 0.001)
	assert.InDelta(t, 150, res.CostAtRemoval, 0.001)
	assert.InDelta(t, 750, res.TotalCost, 0.001)

	// Removal does not revalue the remainder.
	assert.InDelta(t, 150, repo.valuations[1].AvgCost, 0.001)
	assert.Equal(t, TransactionTypeSale, res.Transaction.Type)
}

func TestRemoveStockInsufficientRejectedWithoutWrites(t *testing.T) {
	repo := newFakeInventoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: 1, Qty: 3, UnitCost: 50})
	require.NoError(t, err)
	movements := len(repo.transactions)

	_, err = svc.RemoveStock(ctx, RemoveStockInput{ProductID: 1, Qty: 5})
	var insufficient InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(1), insufficient.ProductID)
	assert.InDelta(t, 3, insufficient.Available, 0.001)
	assert.InDelta(t, 5, insufficient.Requested, 0.001)

	assert.Len(t, repo.transactions, movements)
	assert.InDelta(t, 3, repo.valuations[1].Qty, 0.001)
}

func TestRemoveStockUnknownProductInsufficient(t *testing.T) {
	repo := newFakeInventoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.RemoveStock(context.Background(), RemoveStockInput{ProductID: 99, Qty: 1})
	var insufficient InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.InDelta(t, 0, insufficient.Available, 0.001)
}

func TestAdjustStockLogsSignedDifference(t *testing.T) {
	repo := newFakeInventoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: 1, Qty: 10, UnitCost: 80})
	require.NoError(t, err)

	down, err := svc.AdjustStock(ctx, AdjustStockInput{ProductID: 1, NewQty: 7, Reason: "stock take"})
	require.NoError(t, err)
	assert.InDelta(t, 10, down.OldQty, 0.001)
	assert.InDelta(t, 7, down.NewQty, 0.001)
	assert.InDelta(t, 3, down.Transaction.QtyOut, 0.001)
	assert.InDelta(t, 0, down.Transaction.QtyIn, 0.001)

	up, err := svc.AdjustStock(ctx, AdjustStockInput{ProductID: 1, NewQty: 9})
	require.NoError(t, err)
	assert.InDelta(t, 2, up.Transaction.QtyIn, 0.001)

	// Adjustments never touch the running average.
	assert.InDelta(t, 80, repo.valuations[1].AvgCost, 0.001)
	assert.InDelta(t, 9, repo.valuations[1].Qty, 0.001)
}

func TestAdjustStockNegativeRejected(t *testing.T) {
	repo := newFakeInventoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.AdjustStock(context.Background(), AdjustStockInput{ProductID: 1, NewQty: -1})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestMovementRetriesConflicts(t *testing.T) {
	repo := newFakeInventoryRepo()
	repo.conflicts = 2
	svc := NewService(repo, nil, nil)

	_, err := svc.AddStock(context.Background(), AddStockInput{ProductID: 1, Qty: 4, UnitCost: 25})
	require.NoError(t, err)

	repo.conflicts = 3
	_, err = svc.AddStock(context.Background(), AddStockInput{ProductID: 1, Qty: 4, UnitCost: 25})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestMovementInsertFailureSurfaces(t *testing.T) {
	repo := newFakeInventoryRepo()
	repo.insertErr = errors.New("insert failed")
	svc := NewService(repo, nil, nil)

	_, err := svc.AddStock(context.Background(), AddStockInput{ProductID: 1, Qty: 1, UnitCost: 1})
	require.ErrorContains(t, err, "insert failed")
	assert.Empty(t, repo.valuations)
}

func TestReplayReconstructsValuation(t *testing.T) {
	movements := []Transaction{
		{Type: TransactionTypePurchase, QtyIn: 10, UnitCost: 100},
		{Type: TransactionTypePurchase, QtyIn: 10, UnitCost: 200},
		{Type: TransactionTypeSale, QtyOut: 5, UnitCost: 150},
		{Type: TransactionTypeAdjustment, QtyOut: 2},
		{Type: TransactionTypeReturn, QtyIn: 1, UnitCost: 150},
	}

	qty, avg := Replay(movements)
	assert.InDelta(t, 14, qty, 0.001)
	assert.InDelta(t, 150, avg, 0.001)
}

func TestReplayClampsNegativeQuantity(t *testing.T) {
	movements := []Transaction{
		{Type: TransactionTypePurchase, QtyIn: 2, UnitCost: 10},
		{Type: TransactionTypeSale, QtyOut: 5, UnitCost: 10},
	}

	qty, _ := Replay(movements)
	assert.Equal(t, 0.0, qty)
}

func TestRebuildProductFixesDrift(t *testing.T) {
	repo := newFakeInventoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: 1, Qty: 10, UnitCost: 100})
	require.NoError(t, err)
	_, err = svc.RemoveStock(ctx, RemoveStockInput{ProductID: 1, Qty: 4})
	require.NoError(t, err)

	// Corrupt the snapshot; the movement log stays authoritative.
	repo.valuations[1] = Valuation{ProductID: 1, Qty: 42, AvgCost: 9}

	rebuilder := NewRebuilder(repo)
	res, err := rebuilder.RebuildProduct(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Drifted)
	assert.InDelta(t, 6, res.Qty, 0.001)
	assert.InDelta(t, 100, res.AvgCost, 0.001)
	assert.InDelta(t, 6, repo.valuations[1].Qty, 0.001)
	assert.InDelta(t, 6, repo.productStock[1], 0.001)
}

func TestRebuildProductLeavesMatchingRowAlone(t *testing.T) {
	repo := newFakeInventoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: 1, Qty: 5, UnitCost: 20})
	require.NoError(t, err)

	rebuilder := NewRebuilder(repo)
	res, err := rebuilder.RebuildProduct(ctx, 1)
	require.NoError(t, err)
	assert.False(t, res.Drifted)
}

func TestRebuildAllCoversEveryProduct(t *testing.T) {
	repo := newFakeInventoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockInput{ProductID: 1, Qty: 5, UnitCost: 20})
	require.NoError(t, err)
	_, err = svc.AddStock(ctx, AddStockInput{ProductID: 2, Qty: 3, UnitCost: 40})
	require.NoError(t, err)

	rebuilder := NewRebuilder(repo)
	results, err := rebuilder.RebuildAll(ctx)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
