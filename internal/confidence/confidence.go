// Package confidence scores how much evidence backs a business case.
package confidence

import (
	"fmt"

	"github.com/crowdwant/pulse/internal/domain"
)

// Additive scoring caps. Pricing data is scarcer than raw signals, so each
// price point is worth twice a signal but the pricing bonus tops out lower.
const (
	signalPoints   = 2
	signalCap      = 60
	pricePoints    = 4
	priceBonusCap  = 40
	mediumFloor    = 25
	highFloor      = 55
	veryHighFloor  = 80
)

// Score derives the data quality section from sample sizes. The score is
// monotone in both inputs and clamped to [0, 100].
func Score(totalSignals, priceCeilingPoints int) domain.DataQuality {
	base := totalSignals * signalPoints
	if base > signalCap {
		base = signalCap
	}
	bonus := priceCeilingPoints * pricePoints
	if bonus > priceBonusCap {
		bonus = priceBonusCap
	}

	score := base + bonus
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	level := levelFor(score)
	return domain.DataQuality{
		ConfidenceScore: score,
		ConfidenceLevel: level,
		DataSufficiency: fmt.Sprintf("Based on %d demand signals and %d price points: %s confidence.",
			totalSignals, priceCeilingPoints, level),
	}
}

func levelFor(score int) domain.ConfidenceLevel {
	switch {
	case score < mediumFloor:
		return domain.ConfidenceLow
	case score < highFloor:
		return domain.ConfidenceMedium
	case score < veryHighFloor:
		return domain.ConfidenceHigh
	default:
		return domain.ConfidenceVeryHigh
	}
}
