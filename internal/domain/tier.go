package domain

import "strconv"

// Tier is a display-only bucketing of a numeric score.
type Tier string

// Score tiers, highest first.
const (
	TierHigh Tier = "high"
	TierMed  Tier = "med"
	TierLow  Tier = "low"
)

// Tier thresholds. A score at a threshold belongs to the higher tier.
const (
	HighThreshold = 70.0
	MedThreshold  = 40.0
)

// TierFor maps a score to its tier. First match wins; NaN falls through to
// low.
func TierFor(score float64) Tier {
	switch {
	case score >= HighThreshold:
		return TierHigh
	case score >= MedThreshold:
		return TierMed
	default:
		return TierLow
	}
}

// FormatScore renders a score with the shortest exact decimal form, so 70
// prints as "70" and 82.5 as "82.5".
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}
