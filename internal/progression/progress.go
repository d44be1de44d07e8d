package progression

// UserProgress is a read-only view derived from raw XP. It is never persisted;
// build it with NewUserProgress whenever XP changes.
type UserProgress struct {
	XP        int    `json:"xp"`
	Rank      string `json:"rank"`
	XPToNext  int    `json:"xpToNext"`
	TierMinXP int    `json:"tierMinXp"`
	// TierMaxXP is omitted for the top tier.
	TierMaxXP *int `json:"tierMaxXp,omitempty"`
}

func NewUserProgress(xp int) UserProgress {
	if xp < 0 {
		xp = 0
	}
	tier, _ := TierFor(xp)
	p := UserProgress{
		XP:        xp,
		Rank:      tier.Label,
		XPToNext:  XPToNextTier(xp),
		TierMinXP: tier.MinXP,
	}
	if tier.MaxXP != Unbounded {
		top := tier.MaxXP
		p.TierMaxXP = &top
	}
	return p
}

// Award returns the progress after adding delta XP and whether the rank label changed.
func (p UserProgress) Award(delta int) (UserProgress, bool) {
	if delta <= 0 {
		return p, false
	}
	next := NewUserProgress(p.XP + delta)
	return next, next.Rank != p.Rank
}
