package searchadapter

import "math/rand"

// epsilonRoll reports whether a biased coin of weight epsilon (0..1) comes
// up true, used to implement best_action's optional ε-greedy noise
// (spec.md §4.1).
func epsilonRoll(epsilon float64) bool {
	return rand.Float64() < epsilon
}

func epsilonIndex(n int) int {
	return rand.Intn(n)
}
