// Package segment partitions encoded subscribers with k-means.
package segment

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KMeans partitions rows into K clusters by Lloyd iterations over squared
// Euclidean distance, seeded with k-means++.
type KMeans struct {
	K       int
	Seed    int64
	MaxIter int
	// NInit is the number of seeded restarts; the lowest inertia wins.
	NInit int
	// Tol stops iterating once no centroid moves more than Tol (squared distance).
	Tol float64
}

// Result is a partition. Labels[i] belongs to input row i.
type Result struct {
	Labels     []int
	Centroids  [][]float64
	Inertia    float64
	Iterations int
	// Converged is false when MaxIter was reached first; the partition is
	// still the best one found.
	Converged bool
}

// New returns a KMeans with the default iteration budget.
func New(k int, seed int64) *KMeans {
	return &KMeans{K: k, Seed: seed, MaxIter: 300, NInit: 1, Tol: 1e-8}
}

// Fit clusters the rows of X. The same X, K and Seed always give the same labels.
func (m *KMeans) Fit(X mat.Matrix) (*Result, error) {
	if X == nil {
		return nil, errors.New("input data cannot be empty")
	}
	n, _ := X.Dims()
	if n == 0 {
		return nil, errors.New("input data cannot be empty")
	}
	if m.K < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d", m.K)
	}
	if n < m.K {
		return nil, fmt.Errorf("number of rows (%d) is less than k (%d)", n, m.K)
	}
	maxIter := m.MaxIter
	if maxIter <= 0 {
		maxIter = 300
	}
	nInit := m.NInit
	if nInit <= 0 {
		nInit = 1
	}

	points := make([][]float64, n)
	for i := range points {
		points[i] = mat.Row(nil, i, X)
	}

	rng := rand.New(rand.NewSource(m.Seed))
	var best *Result
	for run := 0; run < nInit; run++ {
		res := m.lloyd(points, m.initCenters(points, rng), maxIter)
		if best == nil || res.Inertia < best.Inertia {
			best = res
		}
	}
	return best, nil
}

func (m *KMeans) lloyd(points, centroids [][]float64, maxIter int) *Result {
	res := &Result{Labels: make([]int, len(points)), Centroids: centroids}
	for i := range res.Labels {
		res.Labels[i] = -1
	}
	for it := 0; it < maxIter; it++ {
		res.Iterations = it + 1
		if !assign(points, res.Centroids, res.Labels) {
			res.Converged = true
			break
		}
		if shift := m.update(points, res.Centroids, res.Labels); shift <= m.Tol {
			assign(points, res.Centroids, res.Labels)
			res.Converged = true
			break
		}
	}
	if !res.Converged {
		// Labels lag the last centroid update by one step.
		assign(points, res.Centroids, res.Labels)
	}
	for i, p := range points {
		res.Inertia += sqDist(p, res.Centroids[res.Labels[i]])
	}
	return res
}

// assign moves every point to its nearest centroid and reports whether any
// label changed. Ties go to the lowest cluster index.
func assign(points, centroids [][]float64, labels []int) bool {
	changed := false
	for i, p := range points {
		best, bestD := 0, math.Inf(1)
		for k, c := range centroids {
			if d := sqDist(p, c); d < bestD {
				best, bestD = k, d
			}
		}
		if labels[i] != best {
			labels[i] = best
			changed = true
		}
	}
	return changed
}

// update recomputes centroids as cluster means and returns the largest
// squared centroid shift. An empty cluster takes over the point farthest
// from its own centroid.
func (m *KMeans) update(points, centroids [][]float64, labels []int) float64 {
	k, p := len(centroids), len(points[0])
	counts := make([]int, k)
	for _, l := range labels {
		counts[l]++
	}
	for c := 0; c < k; c++ {
		if counts[c] > 0 {
			continue
		}
		far, farD := -1, -1.0
		for i, pt := range points {
			if counts[labels[i]] < 2 {
				continue
			}
			if d := sqDist(pt, centroids[labels[i]]); d > farD {
				far, farD = i, d
			}
		}
		if far < 0 {
			continue
		}
		counts[labels[far]]--
		labels[far] = c
		counts[c]++
	}

	sums := make([][]float64, k)
	for c := range sums {
		sums[c] = make([]float64, p)
	}
	for i, pt := range points {
		floats.Add(sums[labels[i]], pt)
	}
	shift := 0.0
	for c := range centroids {
		if counts[c] == 0 {
			continue
		}
		floats.Scale(1/float64(counts[c]), sums[c])
		if d := sqDist(sums[c], centroids[c]); d > shift {
			shift = d
		}
		centroids[c] = sums[c]
	}
	return shift
}

// initCenters picks K starting centroids with k-means++ (D² sampling).
func (m *KMeans) initCenters(points [][]float64, rng *rand.Rand) [][]float64 {
	n := len(points)
	centroids := make([][]float64, 0, m.K)
	centroids = append(centroids, clone(points[rng.Intn(n)]))

	minD := make([]float64, n)
	for i, p := range points {
		minD[i] = sqDist(p, centroids[0])
	}
	for len(centroids) < m.K {
		total := floats.Sum(minD)
		next := n - 1
		if total == 0 {
			next = rng.Intn(n)
		} else {
			r := rng.Float64() * total
			cum := 0.0
			for i, d := range minD {
				cum += d
				if cum >= r && d > 0 {
					next = i
					break
				}
			}
		}
		c := clone(points[next])
		centroids = append(centroids, c)
		for i, p := range points {
			if d := sqDist(p, c); d < minD[i] {
				minD[i] = d
			}
		}
	}
	return centroids
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// CoMembership reports whether two labelings group the same rows together,
// regardless of label numbering.
func CoMembership(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	fwd, rev := map[int]int{}, map[int]int{}
	for i := range a {
		if x, ok := fwd[a[i]]; ok && x != b[i] {
			return false
		}
		if y, ok := rev[b[i]]; ok && y != a[i] {
			return false
		}
		fwd[a[i]], rev[b[i]] = b[i], a[i]
	}
	return true
}
