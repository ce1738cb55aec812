package migration

import (
	"strings"

	"github.com/smallbiznis/folio/internal/store"
)

// Registered returns the built-in migrations in version order.
func Registered() []Migration {
	return []Migration{
		{Version: 1, Name: "baseline", Apply: func(Dataset, Env) error { return nil }},
		{Version: 2, Name: "backfill_ids", Apply: backfillIDs},
		{Version: 3, Name: "link_line_items_to_products", Apply: linkLineItemsToProducts},
	}
}

// backfillIDs gives every record and line item without an id a fresh one.
// Records decoded before ids were persisted would otherwise get a new
// identity on every load.
func backfillIDs(data Dataset, env Env) error {
	for _, kind := range store.AllKinds() {
		for _, item := range data[kind] {
			ensureID(item, env)
			if kind != store.KindInvoices {
				continue
			}
			for _, line := range lineItems(item) {
				ensureID(line, env)
			}
		}
	}
	return nil
}

// linkLineItemsToProducts sets productId on line items whose description
// matches the name of a product owned by the same company.
func linkLineItemsToProducts(data Dataset, _ Env) error {
	primaryID := primaryCompanyID(data[store.KindCompanies])

	byOwner := map[string]map[string]string{}
	for _, p := range data[store.KindProducts] {
		name := normalizeName(stringField(p, "name"))
		id := stringField(p, "id")
		if name == "" || id == "" {
			continue
		}
		owner := ownerOf(p, primaryID)
		if byOwner[owner] == nil {
			byOwner[owner] = map[string]string{}
		}
		if _, dup := byOwner[owner][name]; !dup {
			byOwner[owner][name] = id
		}
	}

	for _, inv := range data[store.KindInvoices] {
		products := byOwner[ownerOf(inv, primaryID)]
		if len(products) == 0 {
			continue
		}
		for _, line := range lineItems(inv) {
			if stringField(line, "productId") != "" {
				continue
			}
			if id, ok := products[normalizeName(stringField(line, "description"))]; ok {
				line["productId"] = id
			}
		}
	}
	return nil
}

func ensureID(item Item, env Env) {
	if stringField(item, "id") != "" {
		return
	}
	if id := env.NewID(); id != "" {
		item["id"] = id
	}
}

func lineItems(inv Item) []Item {
	raw, ok := inv["lineItems"].([]any)
	if !ok {
		return nil
	}
	out := make([]Item, 0, len(raw))
	for _, l := range raw {
		if m, ok := l.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func primaryCompanyID(companies []Item) string {
	for _, c := range companies {
		if flag, _ := c["isPrimary"].(bool); flag {
			return stringField(c, "id")
		}
	}
	if len(companies) > 0 {
		return stringField(companies[0], "id")
	}
	return ""
}

func ownerOf(item Item, primaryID string) string {
	if owner := stringField(item, "companyId"); owner != "" {
		return owner
	}
	return primaryID
}

func stringField(item Item, key string) string {
	s, _ := item[key].(string)
	return strings.TrimSpace(s)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
