package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
)

// AccountsPort supplies current balances.
type AccountsPort interface {
	ListActive(ctx context.Context) ([]accounts.Account, error)
}

// SubsidiaryPort supplies the live totals substituted for control accounts.
type SubsidiaryPort interface {
	SumBalances(ctx context.Context) (float64, error)
}

// InventoryPort supplies the aggregate valuation.
type InventoryPort interface {
	TotalValue(ctx context.Context) (float64, error)
}

// Service derives the financial reports. Reports never fail on data shape:
// missing subsidiary figures degrade to zero and imbalance is flagged, not
// raised. Concurrent requests for the same uncached report share one build.
type Service struct {
	accounts  AccountsPort
	customers SubsidiaryPort
	vendors   SubsidiaryPort
	inventory InventoryPort
	docs      *Repository
	cache     *Cache
	logger    *slog.Logger
	builds    singleflight.Group
}

// NewService builds Service.
func NewService(accountsPort AccountsPort, customers, vendors SubsidiaryPort, inventory InventoryPort, docs *Repository, cache *Cache, logger *slog.Logger) *Service {
	return &Service{
		accounts:  accountsPort,
		customers: customers,
		vendors:   vendors,
		inventory: inventory,
		docs:      docs,
		cache:     cache,
		logger:    logger,
	}
}

// TrialBalance classifies every active account's current balance.
func (s *Service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	var tb TrialBalance
	if s.cache.Get(ctx, "reports:tb", &tb) {
		return tb, nil
	}
	built, err, _ := s.builds.Do("reports:tb", func() (any, error) {
		accts, err := s.accounts.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		tb := BuildTrialBalance(accts)
		s.cache.Set(ctx, "reports:tb", tb)
		return tb, nil
	})
	if err != nil {
		return TrialBalance{}, err
	}
	return built.(TrialBalance), nil
}

// ProfitAndLoss aggregates sales documents and expense postings over [from, to).
func (s *Service) ProfitAndLoss(ctx context.Context, from, to time.Time) (ProfitAndLoss, error) {
	key := fmt.Sprintf("reports:pl:%s:%s", from.Format("20060102"), to.Format("20060102"))
	var pl ProfitAndLoss
	if s.cache.Get(ctx, key, &pl) {
		return pl, nil
	}
	built, err, _ := s.builds.Do(key, func() (any, error) {
		var sales SalesTotals
		var expenses []ExpenseRow
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			sales, err = s.docs.SalesTotals(gctx, from, to)
			return err
		})
		g.Go(func() error {
			var err error
			expenses, err = s.docs.ExpenseRows(gctx, from, to)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		pl := BuildProfitAndLoss(sales, expenses)
		s.cache.Set(ctx, key, pl)
		return pl, nil
	})
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return built.(ProfitAndLoss), nil
}

// BalanceSheet groups active accounts by type, substituting live subsidiary
// totals for the receivable/payable/inventory control accounts. The account
// list and the three subsidiary aggregates load in parallel.
func (s *Service) BalanceSheet(ctx context.Context) (BalanceSheet, error) {
	var bs BalanceSheet
	if s.cache.Get(ctx, "reports:bs", &bs) {
		return bs, nil
	}
	built, err, _ := s.builds.Do("reports:bs", func() (any, error) {
		var accts []accounts.Account
		var subs SubsidiaryTotals

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			accts, err = s.accounts.ListActive(gctx)
			return err
		})
		g.Go(func() error {
			subs.Receivable = s.subsidiaryTotal(gctx, "receivable", s.customers.SumBalances)
			return nil
		})
		g.Go(func() error {
			subs.Payable = s.subsidiaryTotal(gctx, "payable", s.vendors.SumBalances)
			return nil
		})
		g.Go(func() error {
			subs.InventoryValue = s.subsidiaryTotal(gctx, "inventory", s.inventory.TotalValue)
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		bs := BuildBalanceSheet(accts, subs)
		s.cache.Set(ctx, "reports:bs", bs)
		return bs, nil
	})
	if err != nil {
		return BalanceSheet{}, err
	}
	return built.(BalanceSheet), nil
}

// subsidiaryTotal degrades a failed aggregate to zero rather than failing
// the whole report.
func (s *Service) subsidiaryTotal(ctx context.Context, name string, fetch func(context.Context) (float64, error)) float64 {
	total, err := fetch(ctx)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("subsidiary total unavailable", slog.String("subsidiary", name), slog.Any("error", err))
		}
		return 0
	}
	return total
}
