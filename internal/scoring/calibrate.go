// Package scoring turns key/student answer similarity into integer scores.
package scoring

import (
	"math"

	"github.com/hyperjump/essayscore/pkg/utils"
)

// Calibrate maps a similarity to an integer score out of maxScore using a
// piecewise-linear curve fitted to human grading. The curve is continuous at
// every breakpoint. The percentage is clamped to [0, 1] and the score is
// rounded half up, so Calibrate(0.55, 1) == 1. Calibrate is total: NaN and
// out-of-range similarities are accepted and maxScore <= 0 yields 0.
func Calibrate(similarity float64, maxScore int) int {
	if maxScore <= 0 {
		return 0
	}
	pct := utils.Clamp(percentage(similarity), 0, 1)
	// pct*maxScore is non-negative, where math.Round's half-away-from-zero is half-up.
	return int(math.Round(pct * float64(maxScore)))
}

func percentage(s float64) float64 {
	switch {
	case s >= 0.85:
		return 0.90 + (s-0.85)*0.67
	case s >= 0.70:
		return 0.70 + (s-0.70)*1.33
	case s >= 0.55:
		return 0.50 + (s-0.55)*1.33
	case s >= 0.40:
		return 0.30 + (s-0.40)*1.33
	default:
		return s * 0.75
	}
}
