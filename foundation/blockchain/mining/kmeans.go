package mining

import (
	"math"
	"slices"
)

// Thresholds for recomputing the start nonce.
const (
	kmeansMinHistory = 15
	kmeansEvery      = 5
	kmeansClusters   = 3
	kmeansIterations = 100
)

// KMeans derives the start nonce by clustering the history into three
// groups. Once at least 15 nonces exist, and only when the count is a
// multiple of 5, the start is the midpoint between the lowest cluster
// centroid and the smallest nonce ever found.
type KMeans struct{}

// StartNonce implements the StartNoncer interface.
func (KMeans) StartNonce(history []uint64) (uint64, bool) {
	n := len(history)
	if n < kmeansMinHistory || n%kmeansEvery != 0 {
		return 0, false
	}

	sorted := slices.Clone(history)
	slices.Sort(sorted)

	centroids := cluster(sorted, kmeansClusters)
	lowest := slices.Min(centroids)
	minimum := float64(sorted[0])

	return uint64((lowest + minimum) / 2), true
}

// cluster runs Lloyd's algorithm in one dimension over sorted values and
// returns the centroids. Centroids are seeded at evenly spaced quantiles so
// the result is deterministic.
func cluster(sorted []uint64, k int) []float64 {
	centroids := make([]float64, k)
	for i := range centroids {
		centroids[i] = float64(sorted[(2*i+1)*len(sorted)/(2*k)])
	}

	assign := make([]int, len(sorted))
	for range kmeansIterations {
		changed := false

		for i, v := range sorted {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				if d := math.Abs(float64(v) - centroid); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}

		sums := make([]float64, k)
		counts := make([]int, k)
		for i, v := range sorted {
			sums[assign[i]] += float64(v)
			counts[assign[i]]++
		}

		for c := range centroids {
			if counts[c] > 0 {
				centroids[c] = sums[c] / float64(counts[c])
			}
		}

		if !changed {
			break
		}
	}

	return centroids
}
