package calc

import (
	"fmt"
	"time"

	invoicedomain "github.com/smallbiznis/folio/internal/invoice/domain"
	"github.com/smallbiznis/folio/internal/invoice/format"
)

// NextInvoiceNumber returns "YYYY-NNN" where NNN is the number of existing
// invoices issued in year plus one. Callers must serialize calls and pass
// the invoices of a single company.
func NextInvoiceNumber(existing []invoicedomain.Invoice, year int) (string, error) {
	count := 0
	for _, inv := range existing {
		if inv.IssueDate.Year() == year {
			count++
		}
	}
	return formatYear(year, int64(count+1))
}

// ResolveNumberCollision returns candidate when no existing invoice uses it,
// otherwise the next free "YYYY-NNN" above the highest sequence in year.
// Deletions make count+1 collide with a surviving number; this fixes that up
// at save time.
func ResolveNumberCollision(existing []invoicedomain.Invoice, year int, candidate string) (string, error) {
	used := make(map[string]struct{}, len(existing))
	var highest int64
	for _, inv := range existing {
		used[inv.Number] = struct{}{}
		if y, seq, ok := format.ParseYearSequence(inv.Number); ok && y == year && seq > highest {
			highest = seq
		}
	}
	if _, taken := used[candidate]; !taken {
		return candidate, nil
	}

	for seq := highest + 1; ; seq++ {
		number, err := formatYear(year, seq)
		if err != nil {
			return "", err
		}
		if _, taken := used[number]; !taken {
			return number, nil
		}
	}
}

// NumberInUse reports whether another invoice (different id) already uses number.
func NumberInUse(existing []invoicedomain.Invoice, number, exceptID string) bool {
	for _, inv := range existing {
		if inv.Number == number && inv.ID != exceptID {
			return true
		}
	}
	return false
}

func formatYear(year int, seq int64) (string, error) {
	if year < 1 || year > 9999 {
		return "", fmt.Errorf("invalid invoice year: %d", year)
	}
	return format.FormatInvoiceNumber(format.DefaultInvoiceNumberTemplate, yearDate(year), seq)
}

func yearDate(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}
