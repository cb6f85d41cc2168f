// Package catalog defines the closed set of gated features and the plan tiers
// that include them.
//
// The catalog is fail-closed: a feature name that is not in the catalog is never
// included in any plan. Tiers are ordered (basic < standard < premium) and
// New rejects catalogs where a lower tier includes a feature a higher one lacks.
//
//	cat := catalog.MustNew(
//		catalog.PlanFeature{Name: "ai_chat", IncludedIn: catalog.Inclusion{Standard: true, Premium: true}},
//	)
//	cat.Includes("ai_chat", catalog.PlanStandard) // true
//	cat.Includes("unknown", catalog.PlanPremium)  // false
//
// A catalog can also be loaded from YAML with LoadYAML or LoadFile; Default
// returns the catalog embedded in the binary.
package catalog
