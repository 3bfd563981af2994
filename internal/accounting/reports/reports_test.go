package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
)

func acct(code, name string, typ accounts.AccountType, subtype string, normal accounts.NormalSide, balance float64) accounts.Account {
	return accounts.Account{
		Code: code, Name: name, Type: typ, Subtype: subtype,
		NormalSide: normal, Balance: balance, IsActive: true,
	}
}

func TestBuildTrialBalanceColumns(t *testing.T) {
	tb := BuildTrialBalance([]accounts.Account{
		acct("1000", "Cash", accounts.AccountTypeAsset, accounts.SubtypeCash, accounts.NormalDebit, 500),
		acct("4000", "Revenue", accounts.AccountTypeIncome, accounts.SubtypeSalesRevenue, accounts.NormalCredit, 500),
	})

	require.Len(t, tb.Rows, 2)
	assert.Equal(t, "1000", tb.Rows[0].Code)
	assert.InDelta(t, 500, tb.Rows[0].Debit, 0.001)
	assert.InDelta(t, 0, tb.Rows[0].Credit, 0.001)
	assert.InDelta(t, 500, tb.Rows[1].Credit, 0.001)
	assert.InDelta(t, 500, tb.TotalDebit, 0.001)
	assert.InDelta(t, 500, tb.TotalCredit, 0.001)
	assert.True(t, tb.IsBalanced)
}

func TestBuildTrialBalanceNegativeFlipsColumn(t *testing.T) {
	tb := BuildTrialBalance([]accounts.Account{
		acct("1000", "Cash", accounts.AccountTypeAsset, accounts.SubtypeCash, accounts.NormalDebit, -120),
	})

	require.Len(t, tb.Rows, 1)
	assert.InDelta(t, 0, tb.Rows[0].Debit, 0.001)
	assert.InDelta(t, 120, tb.Rows[0].Credit, 0.001)
	assert.False(t, tb.IsBalanced)
}

func TestBuildTrialBalanceSkipsInactive(t *testing.T) {
	inactive := acct("9999", "Old", accounts.AccountTypeAsset, "", accounts.NormalDebit, 50)
	inactive.IsActive = false

	tb := BuildTrialBalance([]accounts.Account{inactive})
	assert.Empty(t, tb.Rows)
}

func TestBuildProfitAndLoss(t *testing.T) {
	pl := BuildProfitAndLoss(
		SalesTotals{Revenue: 10000, Returns: 500, COGS: 6000},
		[]ExpenseRow{
			{Code: "6100", Name: "Rent", Amount: 1200},
			{Code: "6000", Name: "Salaries", Amount: 1800},
			{Code: "6200", Name: "Unused", Amount: 0},
		},
	)

	assert.InDelta(t, 9500, pl.NetSales, 0.001)
	assert.InDelta(t, 3500, pl.GrossProfit, 0.001)
	assert.InDelta(t, 3000, pl.OperatingExpenses, 0.001)
	assert.InDelta(t, 500, pl.OperatingProfit, 0.001)

	// Zero rows dropped, remainder sorted by code.
	require.Len(t, pl.Expenses, 2)
	assert.Equal(t, "6000", pl.Expenses[0].Code)
	assert.Equal(t, "6100", pl.Expenses[1].Code)
}

func TestBuildBalanceSheetSubstitutesSubsidiaries(t *testing.T) {
	bs := BuildBalanceSheet([]accounts.Account{
		acct("1000", "Cash", accounts.AccountTypeAsset, accounts.SubtypeCash, accounts.NormalDebit, 1000),
		acct("1100", "Receivable", accounts.AccountTypeAsset, accounts.SubtypeReceivable, accounts.NormalDebit, 999),
		acct("1200", "Inventory", accounts.AccountTypeAsset, accounts.SubtypeInventory, accounts.NormalDebit, 999),
		acct("2000", "Payable", accounts.AccountTypeLiability, accounts.SubtypePayable, accounts.NormalCredit, 999),
		acct("3000", "Capital", accounts.AccountTypeEquity, "", accounts.NormalCredit, 500),
		acct("3100", "Retained Earnings", accounts.AccountTypeEquity, accounts.SubtypeRetained, accounts.NormalCredit, 0),
	}, SubsidiaryTotals{Receivable: 400, Payable: 300, InventoryValue: 600})

	// Control accounts carry the live subsidiary totals, not their cached balances.
	require.Len(t, bs.Assets.Accounts, 3)
	assert.InDelta(t, 400, bs.Assets.Accounts[1].Balance, 0.001)
	assert.InDelta(t, 600, bs.Assets.Accounts[2].Balance, 0.001)
	assert.InDelta(t, 2000, bs.Assets.Total, 0.001)
	assert.InDelta(t, 300, bs.Liabilities.Total, 0.001)

	// Residual plugged into retained earnings: 2000 - 300 - 500 = 1200.
	assert.InDelta(t, 1200, bs.RetainedEarningsPlug, 0.001)
	assert.InDelta(t, 1700, bs.Equity.Total, 0.001)
	assert.True(t, bs.IsBalanced)
}

func TestBuildBalanceSheetSynthesizesRetainedRow(t *testing.T) {
	bs := BuildBalanceSheet([]accounts.Account{
		acct("1000", "Cash", accounts.AccountTypeAsset, accounts.SubtypeCash, accounts.NormalDebit, 700),
	}, SubsidiaryTotals{})

	require.Len(t, bs.Equity.Accounts, 1)
	assert.Equal(t, "Retained Earnings", bs.Equity.Accounts[0].Name)
	assert.InDelta(t, 700, bs.Equity.Accounts[0].Balance, 0.001)
	assert.True(t, bs.IsBalanced)
}

type fakeAccountsPort struct {
	accounts []accounts.Account
	err      error
}

func (f fakeAccountsPort) ListActive(ctx context.Context) ([]accounts.Account, error) {
	return f.accounts, f.err
}

type fakeSubsidiary struct {
	total float64
	err   error
}

func (f fakeSubsidiary) SumBalances(ctx context.Context) (float64, error) { return f.total, f.err }
func (f fakeSubsidiary) TotalValue(ctx context.Context) (float64, error)  { return f.total, f.err }

func TestServiceTrialBalance(t *testing.T) {
	svc := NewService(fakeAccountsPort{accounts: []accounts.Account{
		acct("1000", "Cash", accounts.AccountTypeAsset, accounts.SubtypeCash, accounts.NormalDebit, 250),
		acct("4000", "Revenue", accounts.AccountTypeIncome, accounts.SubtypeSalesRevenue, accounts.NormalCredit, 250),
	}}, fakeSubsidiary{}, fakeSubsidiary{}, fakeSubsidiary{}, nil, nil, nil)

	tb, err := svc.TrialBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, tb.IsBalanced)
	assert.Len(t, tb.Rows, 2)
}

func TestServiceBalanceSheetDegradesSubsidiaryFailure(t *testing.T) {
	svc := NewService(fakeAccountsPort{accounts: []accounts.Account{
		acct("1100", "Receivable", accounts.AccountTypeAsset, accounts.SubtypeReceivable, accounts.NormalDebit, 999),
	}},
		fakeSubsidiary{err: errors.New("down")},
		fakeSubsidiary{total: 50},
		fakeSubsidiary{total: 75},
		nil, nil, nil)

	bs, err := svc.BalanceSheet(context.Background())
	require.NoError(t, err)

	// Receivable degrades to zero rather than failing the report.
	require.Len(t, bs.Assets.Accounts, 1)
	assert.InDelta(t, 0, bs.Assets.Accounts[0].Balance, 0.001)
}

func TestServiceTrialBalanceAccountsError(t *testing.T) {
	svc := NewService(fakeAccountsPort{err: errors.New("db down")},
		fakeSubsidiary{}, fakeSubsidiary{}, fakeSubsidiary{}, nil, nil, nil)

	_, err := svc.TrialBalance(context.Background())
	require.Error(t, err)
}
