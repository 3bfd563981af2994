package shared

import "errors"

// Epsilon is the balance tolerance for debit/credit comparisons. Amounts are
// float64 currency units, so 0.01 absorbs rounding; an integer-cents port
// should set this to zero.
const Epsilon = 0.01

var (
	// ErrUnbalanced indicates total debit != total credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrAccountNotFound indicates a line references an unknown account.
	ErrAccountNotFound = errors.New("accounting: account not found")
	// ErrAccountInactive indicates a line references a deactivated account.
	ErrAccountInactive = errors.New("accounting: account is inactive")
	// ErrNotCashAccount indicates the nominated settlement account is neither cash nor bank.
	ErrNotCashAccount = errors.New("accounting: account is not a cash or bank account")
	// ErrInvalidStatus indicates the action cannot proceed from the entry's state.
	ErrInvalidStatus = errors.New("accounting: invalid status transition")
	// ErrAlreadyReversed indicates the entry has a reversal linked already.
	ErrAlreadyReversed = errors.New("accounting: entry already reversed")
)

// Balanced reports whether debit and credit totals match within Epsilon.
func Balanced(debit, credit float64) bool {
	diff := debit - credit
	if diff < 0 {
		diff = -diff
	}
	return diff <= Epsilon
}
