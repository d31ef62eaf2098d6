package journey

const (
	MinScore = 0
	MaxScore = 100

	unsetScore = 10
)

var baseScores = map[Stage]int{
	StageProspecting:  20,
	StageOnboarding:   50,
	StageRelationship: 80,
}

var substageBonus = map[Substage]int{
	SubstageProposalSent:   15,
	SubstageImplementation: 20,
}

// Score derives the 0-100 score from an already resolved stage and substage.
func Score(stage Stage, sub Substage) int {
	base, ok := baseScores[stage]
	if !ok {
		return unsetScore
	}
	if stage.Has(sub) {
		base += substageBonus[sub]
	}
	return clamp(base, MinScore, MaxScore)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
