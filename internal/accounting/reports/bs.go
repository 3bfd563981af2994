package reports

import (
	"sort"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
)

// SubsidiaryTotals carries the live aggregated figures substituted for the
// receivable/payable/inventory control accounts, so the report reflects the
// true subsidiary totals rather than the cached account balance.
type SubsidiaryTotals struct {
	Receivable     float64
	Payable        float64
	InventoryValue float64
}

// BalanceSheetRow summarises one account.
type BalanceSheetRow struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

// BalanceSheetSection groups rows for a classification.
type BalanceSheetSection struct {
	Label    string            `json:"label"`
	Accounts []BalanceSheetRow `json:"accounts"`
	Total    float64           `json:"total"`
}

// BalanceSheet is the structured report output. RetainedEarningsPlug is the
// residual folded into retained earnings so Assets = Liabilities + Equity
// holds by construction.
type BalanceSheet struct {
	Assets               BalanceSheetSection `json:"assets"`
	Liabilities          BalanceSheetSection `json:"liabilities"`
	Equity               BalanceSheetSection `json:"equity"`
	RetainedEarningsPlug float64             `json:"retainedEarningsPlug"`
	IsBalanced           bool                `json:"isBalanced"`
}

// BuildBalanceSheet groups active accounts by type, substituting subsidiary
// totals for their control accounts.
func BuildBalanceSheet(accts []accounts.Account, subs SubsidiaryTotals) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}

	retainedIdx := -1
	for _, acc := range accts {
		if !acc.IsActive {
			continue
		}
		balance := acc.Balance
		switch acc.Subtype {
		case accounts.SubtypeReceivable:
			balance = subs.Receivable
		case accounts.SubtypePayable:
			balance = subs.Payable
		case accounts.SubtypeInventory:
			balance = subs.InventoryValue
		}
		row := BalanceSheetRow{Code: acc.Code, Name: acc.Name, Balance: balance}
		switch acc.Type {
		case accounts.AccountTypeAsset:
			assets.Accounts = append(assets.Accounts, row)
			assets.Total += balance
		case accounts.AccountTypeLiability:
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total += balance
		case accounts.AccountTypeEquity:
			equity.Accounts = append(equity.Accounts, row)
			equity.Total += balance
			if acc.Subtype == accounts.SubtypeRetained {
				retainedIdx = len(equity.Accounts) - 1
			}
		}
	}

	// Fold the residual into retained earnings so the statement balances by
	// construction even when subsidiary substitution moved the totals.
	plug := assets.Total - liabilities.Total - equity.Total
	if retainedIdx >= 0 {
		equity.Accounts[retainedIdx].Balance += plug
	} else {
		equity.Accounts = append(equity.Accounts, BalanceSheetRow{Code: "", Name: "Retained Earnings", Balance: plug})
	}
	equity.Total += plug

	sortSection(&assets)
	sortSection(&liabilities)
	sortSection(&equity)

	return BalanceSheet{
		Assets:               assets,
		Liabilities:          liabilities,
		Equity:               equity,
		RetainedEarningsPlug: plug,
		IsBalanced:           acctshared.Balanced(assets.Total, liabilities.Total+equity.Total),
	}
}

func sortSection(s *BalanceSheetSection) {
	sort.Slice(s.Accounts, func(i, j int) bool { return s.Accounts[i].Code < s.Accounts[j].Code })
}
