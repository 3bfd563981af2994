package accounts

import (
	"context"
	"errors"
	"log/slog"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, in Account) (Account, error) {
	if in.Code == "" || in.Name == "" {
		return Account{}, errors.New("accounts: code and name required")
	}
	switch in.Type {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
	default:
		return Account{}, errors.New("accounts: unknown account type")
	}
	if in.NormalSide == "" {
		in.NormalSide = defaultNormalSide(in.Type)
	}
	return s.repo.Create(ctx, in)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}

// Seed installs the default chart of accounts when the table is empty.
func (s *Service) Seed(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for _, acc := range DefaultChart() {
		if _, err := s.repo.Create(ctx, acc); err != nil {
			return err
		}
	}
	if s.logger != nil {
		s.logger.Info("seeded default chart of accounts", slog.Int("accounts", len(DefaultChart())))
	}
	return nil
}

func defaultNormalSide(t AccountType) NormalSide {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalDebit
	default:
		return NormalCredit
	}
}

// DefaultChart lists the accounts a fresh installation starts with.
func DefaultChart() []Account {
	return []Account{
		{Code: "1000", Name: "Cash on Hand", Type: AccountTypeAsset, Subtype: SubtypeCash, NormalSide: NormalDebit, IsCash: true},
		{Code: "1010", Name: "Bank Account", Type: AccountTypeAsset, Subtype: SubtypeBank, NormalSide: NormalDebit, IsBank: true},
		{Code: "1100", Name: "Accounts Receivable", Type: AccountTypeAsset, Subtype: SubtypeReceivable, NormalSide: NormalDebit},
		{Code: "1200", Name: "Inventory", Type: AccountTypeAsset, Subtype: SubtypeInventory, NormalSide: NormalDebit},
		{Code: "2000", Name: "Accounts Payable", Type: AccountTypeLiability, Subtype: SubtypePayable, NormalSide: NormalCredit},
		{Code: "3000", Name: "Retained Earnings", Type: AccountTypeEquity, Subtype: SubtypeRetained, NormalSide: NormalCredit},
		{Code: "4000", Name: "Sales Revenue", Type: AccountTypeIncome, Subtype: SubtypeSalesRevenue, NormalSide: NormalCredit},
		{Code: "4100", Name: "Sales Returns", Type: AccountTypeIncome, Subtype: SubtypeSalesReturns, NormalSide: NormalDebit},
		{Code: "5000", Name: "Cost of Goods Sold", Type: AccountTypeExpense, Subtype: SubtypeCOGS, NormalSide: NormalDebit},
		{Code: "6000", Name: "Operating Expenses", Type: AccountTypeExpense, Subtype: "operating_expense", NormalSide: NormalDebit},
	}
}
