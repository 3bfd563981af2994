package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
)

type fakeRepo struct {
	accounts map[int64]Account
	nextID   int64
	creates  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{accounts: make(map[int64]Account)}
}

func (r *fakeRepo) List(ctx context.Context) ([]Account, error) {
	out := make([]Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (r *fakeRepo) ListActive(ctx context.Context) ([]Account, error) {
	var out []Account
	for _, a := range r.accounts {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) Get(ctx context.Context, id int64) (Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, acctshared.ErrAccountNotFound
	}
	return a, nil
}

func (r *fakeRepo) GetBySubtype(ctx context.Context, subtype string) (Account, error) {
	for _, a := range r.accounts {
		if a.Subtype == subtype && a.IsActive {
			return a, nil
		}
	}
	return Account{}, MissingAccountError{Subtype: subtype}
}

func (r *fakeRepo) Create(ctx context.Context, in Account) (Account, error) {
	r.nextID++
	r.creates++
	in.ID = r.nextID
	in.IsActive = true
	r.accounts[in.ID] = in
	return in, nil
}

func (r *fakeRepo) Deactivate(ctx context.Context, id int64) error {
	a, ok := r.accounts[id]
	if !ok {
		return acctshared.ErrAccountNotFound
	}
	a.IsActive = false
	r.accounts[id] = a
	return nil
}

func (r *fakeRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(r.accounts)), nil
}

func TestCreateValidatesAndDefaultsNormalSide(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, Account{Code: "6100", Name: "Rent", Type: AccountTypeExpense})
	require.NoError(t, err)
	assert.Equal(t, NormalDebit, created.NormalSide)

	created, err = svc.Create(ctx, Account{Code: "2100", Name: "Loans", Type: AccountTypeLiability})
	require.NoError(t, err)
	assert.Equal(t, NormalCredit, created.NormalSide)

	_, err = svc.Create(ctx, Account{Name: "No Code", Type: AccountTypeAsset})
	require.Error(t, err)

	_, err = svc.Create(ctx, Account{Code: "9000", Name: "Weird", Type: "CONTRA"})
	require.Error(t, err)
}

func TestSeedInstallsDefaultChartOnce(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	require.NoError(t, svc.Seed(ctx))
	assert.Equal(t, len(DefaultChart()), repo.creates)

	// Idempotent: a populated table is left alone.
	require.NoError(t, svc.Seed(ctx))
	assert.Equal(t, len(DefaultChart()), repo.creates)
}

func TestDefaultChartCoversControlSubtypes(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	require.NoError(t, svc.Seed(context.Background()))

	for _, subtype := range []string{
		SubtypeCash, SubtypeBank, SubtypeReceivable, SubtypePayable,
		SubtypeInventory, SubtypeSalesRevenue, SubtypeSalesReturns,
		SubtypeCOGS, SubtypeRetained,
	} {
		_, err := repo.GetBySubtype(context.Background(), subtype)
		require.NoError(t, err, "subtype %s missing from default chart", subtype)
	}
}

func TestDeactivateKeepsRecord(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, Account{Code: "1000", Name: "Cash", Type: AccountTypeAsset})
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, created.ID))
	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}
