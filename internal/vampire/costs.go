package vampire

import (
	"fmt"
	"strconv"
)

// Purchase identifies something XP can be spent on. The values are the
// display names used on the cost listing.
type Purchase string

const (
	PurchaseAttribute           Purchase = "Attribute"
	PurchaseInClanDiscipline    Purchase = "In-clan discipline"
	PurchaseRegainHumanity      Purchase = "Regain lost humanity"
	PurchaseMerit               Purchase = "Merit"
	PurchaseRitual              Purchase = "Ritual"
	PurchaseBackground          Purchase = "Background"
	PurchaseSkill               Purchase = "Skill"
	PurchaseOutOfClanDiscipline Purchase = "Out-of-clan discipline"
	PurchaseTechnique           Purchase = "Technique"
	PurchaseInClanElderPower    Purchase = "In-clan elder power"
	PurchaseOutOfClanElderPower Purchase = "Out-of-clan elder power"
)

type costKind int

const (
	costFlat costKind = iota
	costPerLevel
	costPerRating
	costNotAllowed
)

// Cost is a tagged purchase cost: a flat amount, a per-new-level multiplier,
// a rating multiple, or not purchasable at all.
type Cost struct {
	kind   costKind
	amount int
	note   string
}

func flatCost(amount int) Cost        { return Cost{kind: costFlat, amount: amount} }
func perLevelCost(mult int) Cost      { return Cost{kind: costPerLevel, amount: mult} }
func perRatingCost(mult int) Cost     { return Cost{kind: costPerRating, amount: mult} }
func notAllowed() Cost                { return Cost{kind: costNotAllowed} }
func (c Cost) withNote(n string) Cost { c.note = n; return c }

// Flat returns the fixed price, if this cost is a flat amount.
func (c Cost) Flat() (int, bool) {
	return c.amount, c.kind == costFlat
}

// Multiplier returns the per-new-level multiplier, if this cost scales with
// the level being bought.
func (c Cost) Multiplier() (int, bool) {
	return c.amount, c.kind == costPerLevel
}

// RatingMultiplier returns the per-rating multiplier, if this cost scales
// with the rating of the thing bought.
func (c Cost) RatingMultiplier() (int, bool) {
	return c.amount, c.kind == costPerRating
}

// Allowed reports whether the purchase is possible at all.
func (c Cost) Allowed() bool {
	return c.kind != costNotAllowed
}

// String renders the cost as shown on the sheet's cost listing.
func (c Cost) String() string {
	var display string
	switch c.kind {
	case costFlat:
		display = strconv.Itoa(c.amount)
	case costPerLevel:
		display = fmt.Sprintf("new level x %d", c.amount)
	case costPerRating:
		if c.amount == 1 {
			display = "rating"
		} else {
			display = fmt.Sprintf("rating x %d", c.amount)
		}
	default:
		return "Not allowed"
	}
	if c.note != "" {
		return c.note + " " + display
	}
	return display
}

// XPCostTable returns the purchase cost table for a generation tier.
// Generation 0 (not yet set) and 2 share the baseline table; tiers 1, 3, 4,
// and 5 override specific entries.
func XPCostTable(generation int) map[Purchase]Cost {
	costs := map[Purchase]Cost{
		PurchaseAttribute:           flatCost(3),
		PurchaseInClanDiscipline:    perLevelCost(3),
		PurchaseRegainHumanity:      flatCost(10),
		PurchaseMerit:               perRatingCost(1),
		PurchaseRitual:              perRatingCost(2),
		PurchaseBackground:          perLevelCost(2),
		PurchaseSkill:               perLevelCost(2),
		PurchaseOutOfClanDiscipline: perLevelCost(4),
		PurchaseTechnique:           flatCost(12),
		PurchaseInClanElderPower:    notAllowed(),
		PurchaseOutOfClanElderPower: notAllowed(),
	}

	switch generation {
	case 1:
		costs[PurchaseBackground] = perLevelCost(1)
		costs[PurchaseSkill] = perLevelCost(1)
	case 3:
		costs[PurchaseTechnique] = flatCost(20)
		costs[PurchaseInClanElderPower] = flatCost(18).
			withNote("(max one in/out-of-clan elder power)")
		costs[PurchaseOutOfClanElderPower] = flatCost(24).
			withNote("(max one in/out-of-clan elder power)")
	case 4:
		costs[PurchaseTechnique] = notAllowed()
		costs[PurchaseInClanElderPower] = flatCost(18)
		costs[PurchaseOutOfClanElderPower] = flatCost(24)
	case 5:
		costs[PurchaseTechnique] = notAllowed()
		costs[PurchaseInClanElderPower] = flatCost(18)
		costs[PurchaseOutOfClanElderPower] = flatCost(30)
		costs[PurchaseOutOfClanDiscipline] = perLevelCost(5)
	}

	return costs
}
