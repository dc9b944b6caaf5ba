package analyzer

import "math"

// Category weights for the overall page score. Single-page and multi-page
// audits must derive overall scores from the same coefficients so a page
// scores identically regardless of analysis mode.
const (
	WeightVisibility    = 0.25
	WeightTechnical     = 0.20
	WeightContent       = 0.25
	WeightAccessibility = 0.10
	WeightAuthority     = 0.20
)

// OverallScore combines the five category sub-scores into a single 0-100
// value. Rounding is half away from zero: (80,60,70,90,50) -> 69.
func OverallScore(c CategoryScores) int {
	weighted := float64(c.Visibility)*WeightVisibility +
		float64(c.Technical)*WeightTechnical +
		float64(c.Content)*WeightContent +
		float64(c.Accessibility)*WeightAccessibility +
		float64(c.Authority)*WeightAuthority
	return int(math.Round(weighted))
}

// RoundMean returns the rounded arithmetic mean of two scores.
func RoundMean(a, b int) int {
	return int(math.Round(float64(a+b) / 2))
}
