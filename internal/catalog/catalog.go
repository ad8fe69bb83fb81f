// Package catalog holds the mode-scoped reference data for test packages and
// add-ons. Catalogs are immutable and built once per process; historical
// records are keyed by display name while current configurations use ids, so
// every lookup resolves through a dual id/name index.
package catalog

import (
	"fmt"

	"github.com/agrolab/sample-engine/internal/domain"
)

// TestPackage is a named bundle of analytes offered at a fixed price.
type TestPackage struct {
	ID       string
	Name     string
	Price    float64
	Analytes []string
}

// AddOn is an optional analyte or analyte group purchasable on top of a
// test package.
type AddOn struct {
	ID          string
	Name        string
	Price       float64
	Description string
	Analytes    []string
}

// Catalog is the immutable package/add-on reference set for one mode.
type Catalog struct {
	mode     domain.Mode
	packages []TestPackage
	addOns   []AddOn

	packagesByRef map[string]*TestPackage
	addOnsByRef   map[string]*AddOn
}

func newCatalog(mode domain.Mode, packages []TestPackage, addOns []AddOn) *Catalog {
	c := &Catalog{
		mode:          mode,
		packages:      packages,
		addOns:        addOns,
		packagesByRef: make(map[string]*TestPackage, len(packages)*2),
		addOnsByRef:   make(map[string]*AddOn, len(addOns)*2),
	}
	for i := range packages {
		c.packagesByRef[packages[i].ID] = &packages[i]
		c.packagesByRef[packages[i].Name] = &packages[i]
	}
	for i := range addOns {
		c.addOnsByRef[addOns[i].ID] = &addOns[i]
		c.addOnsByRef[addOns[i].Name] = &addOns[i]
	}
	return c
}

// ForMode returns the catalog for a mode.
func ForMode(mode domain.Mode) (*Catalog, error) {
	switch mode {
	case domain.ModeFeeds:
		return feedsCatalog, nil
	case domain.ModeSoil:
		return soilCatalog, nil
	}
	return nil, fmt.Errorf("%w: no catalog for mode %q", domain.ErrNotFound, mode)
}

func (c *Catalog) Mode() domain.Mode { return c.mode }

// Packages returns the package list in catalog order.
func (c *Catalog) Packages() []TestPackage {
	out := make([]TestPackage, len(c.packages))
	copy(out, c.packages)
	return out
}

// AddOns returns the add-on list in catalog order.
func (c *Catalog) AddOns() []AddOn {
	out := make([]AddOn, len(c.addOns))
	copy(out, c.addOns)
	return out
}

// PackageByRef resolves a package by id or display name.
func (c *Catalog) PackageByRef(ref string) (TestPackage, error) {
	if p, ok := c.packagesByRef[ref]; ok {
		return *p, nil
	}
	return TestPackage{}, fmt.Errorf("%w: test package %q (%s)", domain.ErrUnknownCatalogEntry, ref, c.mode)
}

// AddOnByRef resolves an add-on by id or display name.
func (c *Catalog) AddOnByRef(ref string) (AddOn, error) {
	if a, ok := c.addOnsByRef[ref]; ok {
		return *a, nil
	}
	return AddOn{}, fmt.Errorf("%w: add-on %q (%s)", domain.ErrUnknownCatalogEntry, ref, c.mode)
}

// Analytes returns the union of analytes covered by a package and add-on
// selection, package analytes first, without duplicates.
func (c *Catalog) Analytes(packageRef string, addOnRefs []string) ([]string, error) {
	pkg, err := c.PackageByRef(packageRef)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(pkg.Analytes))
	analytes := make([]string, 0, len(pkg.Analytes))
	for _, analyte := range pkg.Analytes {
		if _, ok := seen[analyte]; ok {
			continue
		}
		seen[analyte] = struct{}{}
		analytes = append(analytes, analyte)
	}

	for _, ref := range addOnRefs {
		addOn, err := c.AddOnByRef(ref)
		if err != nil {
			return nil, err
		}
		for _, analyte := range addOn.Analytes {
			if _, ok := seen[analyte]; ok {
				continue
			}
			seen[analyte] = struct{}{}
			analytes = append(analytes, analyte)
		}
	}

	return analytes, nil
}
