package beam

import (
	"math"
	"sort"
)

var negativeInfinity = math.Inf(-1)

// logadd returns log(sum(exp(a))) computed with the standard max-shift
// trick, treating every -Inf argument as a zero-probability term.
func logadd(args ...float64) float64 {
	allNegInf := true
	for _, a := range args {
		if a != negativeInfinity {
			allNegInf = false
			break
		}
	}
	if allNegInf {
		return negativeInfinity
	}

	max := args[0]
	for _, a := range args[1:] {
		if a > max {
			max = a
		}
	}
	sum := 0.0
	for _, a := range args {
		sum += math.Exp(a - max)
	}
	return max + math.Log(sum)
}

type scoredIndex struct {
	index int
	value float64
}

// topNIndices returns the indices of the n largest values in items.
func topNIndices(items []float64, n int) map[int]struct{} {
	scoredItems := make([]scoredIndex, len(items))
	for i, v := range items {
		scoredItems[i] = scoredIndex{i, v}
	}
	sort.SliceStable(scoredItems, func(i, j int) bool {
		return scoredItems[i].value > scoredItems[j].value
	})
	if n > len(scoredItems) {
		n = len(scoredItems)
	}
	out := make(map[int]struct{}, n)
	for _, s := range scoredItems[:n] {
		out[s.index] = struct{}{}
	}
	return out
}
