package catalog

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Inclusion holds the per-tier inclusion flags of a feature.
type Inclusion struct {
	Basic    bool `yaml:"basic" json:"basic"`
	Standard bool `yaml:"standard" json:"standard"`
	Premium  bool `yaml:"premium" json:"premium"`
}

// For returns the flag for the given tier. Unknown tiers are never included.
func (i Inclusion) For(plan PlanType) bool {
	switch plan {
	case PlanBasic:
		return i.Basic
	case PlanStandard:
		return i.Standard
	case PlanPremium:
		return i.Premium
	default:
		return false
	}
}

// PlanFeature maps a gated feature to the tiers it is included in.
type PlanFeature struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	IncludedIn  Inclusion `yaml:"included_in" json:"included_in"`
}

// Catalog is the closed, immutable set of gated features.
// Lookups for names that are not in the catalog always fail.
// Safe for concurrent use since it is never mutated after construction.
type Catalog struct {
	features map[string]PlanFeature
}

// New builds a catalog from the given features.
// Every name must be unique and non-empty, and inclusion must respect tier
// ordering: a feature in basic must also be in standard and premium.
func New(features ...PlanFeature) (*Catalog, error) {
	c := &Catalog{features: make(map[string]PlanFeature, len(features))}
	for _, f := range features {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return nil, errors.Join(ErrInvalidCatalog, errors.New("feature name is empty"))
		}
		if _, exists := c.features[name]; exists {
			return nil, errors.Join(ErrInvalidCatalog, fmt.Errorf("%w: %s", ErrDuplicateFeature, name))
		}
		if (f.IncludedIn.Basic && !f.IncludedIn.Standard) || (f.IncludedIn.Standard && !f.IncludedIn.Premium) {
			return nil, errors.Join(ErrInvalidCatalog,
				fmt.Errorf("feature %s breaks tier ordering: %+v", name, f.IncludedIn))
		}
		f.Name = name
		c.features[name] = f
	}
	return c, nil
}

// MustNew is like New but panics on invalid input.
func MustNew(features ...PlanFeature) *Catalog {
	c, err := New(features...)
	if err != nil {
		panic(err)
	}
	return c
}

// Has reports whether the feature exists in the catalog.
func (c *Catalog) Has(name string) bool {
	if c == nil {
		return false
	}
	_, ok := c.features[name]
	return ok
}

// Lookup returns the feature definition.
func (c *Catalog) Lookup(name string) (PlanFeature, error) {
	if c == nil {
		return PlanFeature{}, ErrFeatureNotFound
	}
	f, ok := c.features[name]
	if !ok {
		return PlanFeature{}, ErrFeatureNotFound
	}
	return f, nil
}

// Includes reports whether the plan includes the feature.
// Unknown features and unknown plans are never included.
func (c *Catalog) Includes(name string, plan PlanType) bool {
	f, err := c.Lookup(name)
	if err != nil {
		return false
	}
	return f.IncludedIn.For(plan)
}

// Names returns all feature names in sorted order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(c.features))
}

// Features returns all feature definitions sorted by name.
func (c *Catalog) Features() []PlanFeature {
	names := c.Names()
	out := make([]PlanFeature, 0, len(names))
	for _, n := range names {
		out = append(out, c.features[n])
	}
	return out
}

// FeaturesFor returns the names of all features included in the plan.
func (c *Catalog) FeaturesFor(plan PlanType) []string {
	var out []string
	for _, n := range c.Names() {
		if c.features[n].IncludedIn.For(plan) {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of features.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.features)
}
