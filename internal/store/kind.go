// Package store persists whole collections of records. A save always
// rewrites the full collection; there is no incremental append.
package store

import "fmt"

// Kind names one persisted collection.
type Kind string

const (
	KindInvoices  Kind = "invoices"
	KindProducts  Kind = "products"
	KindCompanies Kind = "companies"
)

// SchemaVersion is the envelope/item schema written by this build. The
// migration runner brings older data up to it.
const SchemaVersion = 3

// AllKinds lists every collection kind in a fixed order.
func AllKinds() []Kind {
	return []Kind{KindCompanies, KindProducts, KindInvoices}
}

// ParseKind validates a kind name.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindInvoices, KindProducts, KindCompanies:
		return Kind(raw), nil
	default:
		return "", fmt.Errorf("unknown collection kind %q", raw)
	}
}
