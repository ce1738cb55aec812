// Package partition scopes records to a company. All functions are pure:
// the active company is always passed in, never read from global state.
package partition

import (
	"strings"

	companydomain "github.com/smallbiznis/folio/internal/company/domain"
)

// Owned is a record that may belong to a company. An empty owner means the
// record predates multi-company support and belongs to the primary company.
type Owned interface {
	OwnerCompanyID() string
}

// ResolvePrimary returns the flagged primary company, else the first one.
func ResolvePrimary(companies []companydomain.Company) (companydomain.Company, bool) {
	if len(companies) == 0 {
		return companydomain.Company{}, false
	}
	for _, c := range companies {
		if c.IsPrimary {
			return c, true
		}
	}
	return companies[0], true
}

// ResolveActive returns the company named by requestedID when it exists,
// else the one flagged active, else the primary.
func ResolveActive(companies []companydomain.Company, requestedID string) (companydomain.Company, bool) {
	if id := strings.TrimSpace(requestedID); id != "" {
		for _, c := range companies {
			if c.ID == id {
				return c, true
			}
		}
	}
	for _, c := range companies {
		if c.IsActive {
			return c, true
		}
	}
	return ResolvePrimary(companies)
}

// OwnerOf returns the effective owner of r.
func OwnerOf(r Owned, primaryID string) string {
	if owner := strings.TrimSpace(r.OwnerCompanyID()); owner != "" {
		return owner
	}
	return primaryID
}

// RecordsForCompany returns the records owned by companyID, in input order.
// Records without an owner are attributed to primaryID.
func RecordsForCompany[T Owned](records []T, companyID, primaryID string) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if OwnerOf(r, primaryID) == companyID {
			out = append(out, r)
		}
	}
	return out
}

// GroupByCompany splits records by effective owner.
func GroupByCompany[T Owned](records []T, primaryID string) map[string][]T {
	out := make(map[string][]T)
	for _, r := range records {
		owner := OwnerOf(r, primaryID)
		out[owner] = append(out[owner], r)
	}
	return out
}
