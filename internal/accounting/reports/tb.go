package reports

import (
	"sort"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
	acctshared "github.com/meridian-dms/meridian/internal/accounting/shared"
)

// TrialBalanceRow classifies one account's balance into a debit or credit
// column according to its normal side and sign.
type TrialBalanceRow struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Debit  float64 `json:"debit"`
	Credit float64 `json:"credit"`
}

// TrialBalance is the structured report output.
type TrialBalance struct {
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  float64           `json:"totalDebit"`
	TotalCredit float64           `json:"totalCredit"`
	IsBalanced  bool              `json:"isBalanced"`
}

// BuildTrialBalance converts current account balances into the two-column
// report. A debit-normal account with a negative balance lands in the credit
// column, and vice versa.
func BuildTrialBalance(accts []accounts.Account) TrialBalance {
	var tb TrialBalance
	for _, acc := range accts {
		if !acc.IsActive {
			continue
		}
		row := TrialBalanceRow{Code: acc.Code, Name: acc.Name, Type: string(acc.Type)}
		debitSide := acc.NormalSide == accounts.NormalDebit
		if acc.Balance < 0 {
			debitSide = !debitSide
		}
		amount := acc.Balance
		if amount < 0 {
			amount = -amount
		}
		if debitSide {
			row.Debit = amount
		} else {
			row.Credit = amount
		}
		tb.Rows = append(tb.Rows, row)
		tb.TotalDebit += row.Debit
		tb.TotalCredit += row.Credit
	}
	sort.Slice(tb.Rows, func(i, j int) bool { return tb.Rows[i].Code < tb.Rows[j].Code })
	tb.IsBalanced = acctshared.Balanced(tb.TotalDebit, tb.TotalCredit)
	return tb
}
