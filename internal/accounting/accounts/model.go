package accounts

import (
	"fmt"
	"time"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeIncome    AccountType = "INCOME"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// NormalSide is the side on which an account's balance grows.
type NormalSide string

const (
	NormalDebit  NormalSide = "DEBIT"
	NormalCredit NormalSide = "CREDIT"
)

// Subtype keys used by composers to resolve control accounts.
const (
	SubtypeReceivable   = "accounts_receivable"
	SubtypePayable      = "accounts_payable"
	SubtypeInventory    = "inventory"
	SubtypeSalesRevenue = "sales_revenue"
	SubtypeSalesReturns = "sales_returns"
	SubtypeCOGS         = "cogs"
	SubtypeCash         = "cash"
	SubtypeBank         = "bank"
	SubtypeRetained     = "retained_earnings"
)

// Account models a chart of accounts node. Balances are mutated only by the
// ledger poster; accounts are deactivated, never deleted.
type Account struct {
	ID         int64
	Code       string
	Name       string
	Type       AccountType
	Subtype    string
	NormalSide NormalSide
	Balance    float64
	IsCash     bool
	IsBank     bool
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MissingAccountError reports an absent control account required by a
// composer. Requires operator setup, not a retry.
type MissingAccountError struct {
	Subtype string
}

func (e MissingAccountError) Error() string {
	return fmt.Sprintf("accounting: no active account with subtype %q", e.Subtype)
}
