package reports

import "sort"

// SalesTotals aggregates issued sales documents over the report range.
type SalesTotals struct {
	Revenue float64
	Returns float64
	COGS    float64
}

// ExpenseRow is one operating-expense account's activity over the range.
type ExpenseRow struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// ProfitAndLoss is the structured report output.
type ProfitAndLoss struct {
	GrossSales        float64      `json:"grossSales"`
	SalesReturns      float64      `json:"salesReturns"`
	NetSales          float64      `json:"netSales"`
	CostOfGoodsSold   float64      `json:"costOfGoodsSold"`
	GrossProfit       float64      `json:"grossProfit"`
	Expenses          []ExpenseRow `json:"expenses"`
	OperatingExpenses float64      `json:"operatingExpenses"`
	OperatingProfit   float64      `json:"operatingProfit"`
}

// BuildProfitAndLoss combines document-level sales totals with approved
// expense postings. Gross profit = net sales - COGS; operating profit =
// gross profit - operating expenses.
func BuildProfitAndLoss(sales SalesTotals, expenses []ExpenseRow) ProfitAndLoss {
	pl := ProfitAndLoss{
		GrossSales:      sales.Revenue,
		SalesReturns:    sales.Returns,
		NetSales:        sales.Revenue - sales.Returns,
		CostOfGoodsSold: sales.COGS,
	}
	pl.GrossProfit = pl.NetSales - pl.CostOfGoodsSold

	for _, row := range expenses {
		if row.Amount == 0 {
			continue
		}
		pl.Expenses = append(pl.Expenses, row)
		pl.OperatingExpenses += row.Amount
	}
	sort.Slice(pl.Expenses, func(i, j int) bool { return pl.Expenses[i].Code < pl.Expenses[j].Code })

	pl.OperatingProfit = pl.GrossProfit - pl.OperatingExpenses
	return pl
}
