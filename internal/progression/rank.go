// Package progression holds the deterministic XP rules: the rank table, the
// derived UserProgress view, and quiz scoring with tiered XP awards.
package progression

import (
	"math"
	"sort"
)

// Unbounded is reported as MaxXP of the top tier.
const Unbounded = math.MaxInt

// RankTier is one row of the rank table. Bounds are inclusive.
type RankTier struct {
	Label string `json:"label"`
	MinXP int    `json:"minXp"`
	MaxXP int    `json:"maxXp"`
}

// tiers is ordered and contiguous: tiers[i].MaxXP+1 == tiers[i+1].MinXP.
var tiers = []RankTier{
	{Label: "🥚 Egghead", MinXP: 0, MaxXP: 99},
	{Label: "🐣 Curious Chick", MinXP: 100, MaxXP: 299},
	{Label: "🐥 Quick Learner", MinXP: 300, MaxXP: 699},
	{Label: "🦉 Wise Owl", MinXP: 700, MaxXP: 1499},
	{Label: "🦊 Clever Fox", MinXP: 1500, MaxXP: 2999},
	{Label: "🐬 Brainy Dolphin", MinXP: 3000, MaxXP: 5999},
	{Label: "🦁 Quiz Lion", MinXP: 6000, MaxXP: 9999},
	{Label: "🐉 Knowledge Dragon", MinXP: 10000, MaxXP: 19999},
	{Label: "👑 Kwikly Legend", MinXP: 20000, MaxXP: Unbounded},
}

// Tiers returns a copy of the rank table.
func Tiers() []RankTier {
	return append([]RankTier(nil), tiers...)
}

// TierFor returns the tier containing xp and its index. Negative xp counts as 0;
// anything past the last finite bound lands in the top tier.
func TierFor(xp int) (RankTier, int) {
	if xp < 0 {
		xp = 0
	}
	// first tier whose MaxXP >= xp; the top tier is unbounded so i is always in range
	i := sort.Search(len(tiers), func(i int) bool { return tiers[i].MaxXP >= xp })
	if i == len(tiers) {
		i = len(tiers) - 1
	}
	return tiers[i], i
}

// RankFor maps an XP value to its rank label.
func RankFor(xp int) string {
	tier, _ := TierFor(xp)
	return tier.Label
}

// XPToNextTier is the XP still needed to reach the next tier, 0 in the top tier.
func XPToNextTier(xp int) int {
	if xp < 0 {
		xp = 0
	}
	_, i := TierFor(xp)
	if i == len(tiers)-1 {
		return 0
	}
	return tiers[i+1].MinXP - xp
}
