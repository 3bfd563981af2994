package shared

// PartyKind tags the subsidiary a ledger line belongs to.
type PartyKind string

const (
	PartyNone     PartyKind = ""
	PartyCustomer PartyKind = "CUSTOMER"
	PartyVendor   PartyKind = "VENDOR"
)

// PartyRef identifies a customer or vendor on a journal or ledger line.
// The zero value means the line has no subsidiary party.
type PartyRef struct {
	Kind PartyKind
	ID   int64
}

// IsZero reports whether the reference points at no party.
func (p PartyRef) IsZero() bool {
	return p.Kind == PartyNone || p.ID == 0
}
