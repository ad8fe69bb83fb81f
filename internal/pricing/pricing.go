// Package pricing computes totals and signed cost deltas for test
// configuration changes. All functions are pure: they price explicit
// snapshots and never read shared state, so a caller can compute a delta
// before committing the configuration it was computed from.
package pricing

import (
	"math"

	"github.com/agrolab/sample-engine/internal/catalog"
)

// Selection is a configuration snapshot to price. Package and add-on
// references may be catalog ids or display names; historical records are
// name-keyed and both resolve through the same catalog index.
type Selection struct {
	Package string
	AddOns  []string
}

// Breakdown itemizes a priced selection.
type Breakdown struct {
	PackagePrice float64
	AddOnPrices  map[string]float64
	Total        float64
}

// TotalPrice returns package price plus the sum of selected add-on prices.
// An unresolvable reference fails with ErrUnknownCatalogEntry; nothing is
// silently priced at zero.
func TotalPrice(cat *catalog.Catalog, sel Selection) (float64, error) {
	breakdown, err := Price(cat, sel)
	if err != nil {
		return 0, err
	}
	return breakdown.Total, nil
}

// Price returns the full itemized breakdown for a selection.
func Price(cat *catalog.Catalog, sel Selection) (Breakdown, error) {
	pkg, err := cat.PackageByRef(sel.Package)
	if err != nil {
		return Breakdown{}, err
	}

	breakdown := Breakdown{
		PackagePrice: pkg.Price,
		AddOnPrices:  make(map[string]float64, len(sel.AddOns)),
	}

	total := pkg.Price
	for _, ref := range sel.AddOns {
		addOn, err := cat.AddOnByRef(ref)
		if err != nil {
			return Breakdown{}, err
		}
		breakdown.AddOnPrices[addOn.ID] = addOn.Price
		total += addOn.Price
	}

	breakdown.Total = roundCents(total)
	return breakdown, nil
}

// CostDelta returns proposed total minus current total. Positive means the
// owner owes the difference, negative is a credit, zero has no billing
// impact.
func CostDelta(cat *catalog.Catalog, current, proposed Selection) (float64, error) {
	currentTotal, err := TotalPrice(cat, current)
	if err != nil {
		return 0, err
	}
	proposedTotal, err := TotalPrice(cat, proposed)
	if err != nil {
		return 0, err
	}
	return roundCents(proposedTotal - currentTotal), nil
}

// LooseTotal prices a selection treating unresolvable references as zero.
// This mirrors how historical name-keyed records were priced before the
// strict resolver existed; it exists for read-only display of old records
// and must never feed a billing decision.
func LooseTotal(cat *catalog.Catalog, sel Selection) float64 {
	total := 0.0
	if pkg, err := cat.PackageByRef(sel.Package); err == nil {
		total += pkg.Price
	}
	for _, ref := range sel.AddOns {
		if addOn, err := cat.AddOnByRef(ref); err == nil {
			total += addOn.Price
		}
	}
	return roundCents(total)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
