package models

import (
	"fmt"
	"strings"
)

// Tier is a seat category.
type Tier string

const (
	TierGeneral   Tier = "GENERAL"
	TierVIP       Tier = "VIP"
	TierBackstage Tier = "BACKSTAGE"
)

// Tiers lists every sellable tier.
var Tiers = []Tier{TierGeneral, TierVIP, TierBackstage}

var tierMultipliers = map[Tier]float64{
	TierGeneral:   1.0,
	TierVIP:       2.5,
	TierBackstage: 4.0,
}

// Multiplier returns the price multiplier for the tier. Unknown tiers price
// like GENERAL.
func (t Tier) Multiplier() float64 {
	if m, ok := tierMultipliers[t]; ok {
		return m
	}
	return 1.0
}

func (t Tier) Valid() bool {
	_, ok := tierMultipliers[t]
	return ok
}

// ParseTier accepts a tier name in any case.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown seat tier %q", ErrInvalidArgument, s)
	}
	return t, nil
}
