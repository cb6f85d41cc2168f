package catalog

// PlanType identifies a paid subscription tier.
// Tiers are ordered: premium includes everything in standard, standard everything in basic.
type PlanType string

const (
	PlanBasic    PlanType = "basic"
	PlanStandard PlanType = "standard"
	PlanPremium  PlanType = "premium"
)

// Plans lists all tiers from lowest to highest.
var Plans = []PlanType{PlanBasic, PlanStandard, PlanPremium}

// Valid reports whether p is one of the known tiers.
func (p PlanType) Valid() bool {
	return p.Rank() > 0
}

// Rank returns the tier position (1 for basic) or 0 for unknown values.
func (p PlanType) Rank() int {
	switch p {
	case PlanBasic:
		return 1
	case PlanStandard:
		return 2
	case PlanPremium:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether p is the same tier as other or higher.
func (p PlanType) AtLeast(other PlanType) bool {
	return p.Valid() && p.Rank() >= other.Rank()
}

// ParsePlanType converts a raw value into a PlanType.
func ParsePlanType(s string) (PlanType, error) {
	p := PlanType(s)
	if !p.Valid() {
		return "", ErrUnknownPlan
	}
	return p, nil
}
