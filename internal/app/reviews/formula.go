package reviews

import (
	"fmt"
	"math"
)

// Formula computes a podcast rating from a newly applied rating r and the
// ratings of the podcast's other reviews.
type Formula func(r int, existing []int) int

// Mean averages r with every rating-bearing prior review (rating > 0). With no
// prior ratings the result is r.
func Mean(r int, existing []int) int {
	sum, count := 0, 0
	for _, rating := range existing {
		if rating > 0 {
			sum += rating
			count++
		}
	}
	if count == 0 {
		return r
	}
	return roundHalfUp(float64(r+sum) / float64(count+1))
}

// Literal divides r plus the sum of all existing ratings by the number of
// existing reviews. With no existing reviews the result is r. The result is
// clamped to the rating range.
func Literal(r int, existing []int) int {
	if len(existing) == 0 {
		return r
	}
	sum := r
	for _, rating := range existing {
		sum += rating
	}
	return clamp(roundHalfUp(float64(sum)/float64(len(existing))), 0, 5)
}

// FormulaByName maps a configuration value to its Formula.
func FormulaByName(name string) (Formula, error) {
	switch name {
	case "", "mean":
		return Mean, nil
	case "literal":
		return Literal, nil
	default:
		return nil, fmt.Errorf("unknown rating formula %q", name)
	}
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
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
