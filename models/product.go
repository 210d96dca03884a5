package models

import "strings"

// Product is one of the fixed products staff must offer during the window.
type Product string

const (
	ProductF2025 Product = "F2025"
	ProductF2026 Product = "F2026"
	ProductHL    Product = "HL"
)

// DefaultProducts is the enumerated product set, in column order.
var DefaultProducts = []Product{ProductF2025, ProductF2026, ProductHL}

// Wire marks used by the record store for product columns.
const (
	MarkConfirmed    = "✔"
	MarkNotConfirmed = "❌"
)

// ParseProduct matches a product name against the known set.
func ParseProduct(s string, known []Product) (Product, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, p := range known {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// ProductFlags maps each product to whether it was offered and confirmed.
type ProductFlags map[Product]bool

// Clone returns an independent copy.
func (f ProductFlags) Clone() ProductFlags {
	out := make(ProductFlags, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Count returns how many of products are confirmed and how many are not.
// Products absent from the map count as not confirmed.
func (f ProductFlags) Count(products []Product) (confirmed, missing int) {
	for _, p := range products {
		if f[p] {
			confirmed++
		} else {
			missing++
		}
	}
	return confirmed, missing
}

// Mark renders a flag the way the record store expects it.
func Mark(v bool) string {
	if v {
		return MarkConfirmed
	}
	return MarkNotConfirmed
}
