package segment

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// blobs returns n points around each center, interleaved so that row order
// does not reveal the grouping.
func blobs(centers [][]float64, n int, spread float64, seed int64) (*mat.Dense, []int) {
	rng := rand.New(rand.NewSource(seed))
	dim := len(centers[0])
	X := mat.NewDense(n*len(centers), dim, nil)
	truth := make([]int, 0, n*len(centers))
	row := 0
	for i := 0; i < n; i++ {
		for c, ctr := range centers {
			for j := 0; j < dim; j++ {
				X.Set(row, j, ctr[j]+(rng.Float64()*2-1)*spread)
			}
			truth = append(truth, c)
			row++
		}
	}
	return X, truth
}

var fiveCenters = [][]float64{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}, {0, 0, 10}, {10, 10, 10}}

func TestFitRecoversSeparatedBlobs(t *testing.T) {
	X, truth := blobs(fiveCenters, 20, 0.5, 1)
	km := New(5, 23)
	km.NInit = 10
	res, err := km.Fit(X)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.True(t, CoMembership(truth, res.Labels), "partition should match generating blobs")
	for _, l := range res.Labels {
		assert.GreaterOrEqual(t, l, 0)
		assert.Less(t, l, 5)
	}
	assert.Len(t, res.Centroids, 5)
}

func TestFitIsDeterministicForSeed(t *testing.T) {
	X, _ := blobs([][]float64{{0, 0}, {1, 1}, {2, 0}, {0, 2}, {1.5, 1.5}}, 30, 1.2, 7)
	a, err := New(5, 23).Fit(X)
	require.NoError(t, err)
	b, err := New(5, 23).Fit(X)
	require.NoError(t, err)
	assert.True(t, CoMembership(a.Labels, b.Labels))
	assert.Equal(t, a.Labels, b.Labels)
	assert.Equal(t, a.Inertia, b.Inertia)
}

func TestFitSingleCluster(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{-1, 1, 0, -1, 1, 0})
	res, err := New(1, 23).Fit(X)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0, 0}, res.Labels)
	assert.InDeltaSlice(t, []float64{0, 0}, res.Centroids[0], 1e-12)
}

func TestFitNonConvergenceReturnsPartition(t *testing.T) {
	X, _ := blobs(fiveCenters, 20, 3, 3)
	km := New(5, 23)
	km.MaxIter = 1
	res, err := km.Fit(X)
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
	r, _ := X.Dims()
	assert.Len(t, res.Labels, r)
}

func TestFitMultipleInitsNeverWorse(t *testing.T) {
	X, _ := blobs(fiveCenters, 15, 4, 5)
	one, err := New(5, 23).Fit(X)
	require.NoError(t, err)
	km := New(5, 23)
	km.NInit = 5
	many, err := km.Fit(X)
	require.NoError(t, err)
	assert.LessOrEqual(t, many.Inertia, one.Inertia+1e-9)
}

func TestFitDuplicatePointsDoNotPanic(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	res, err := New(2, 23).Fit(X)
	require.NoError(t, err)
	assert.Len(t, res.Labels, 4)
	assert.Equal(t, 0.0, res.Inertia)
}

func TestFitErrors(t *testing.T) {
	_, err := New(5, 23).Fit(mat.NewDense(3, 2, nil))
	assert.Error(t, err, "fewer rows than k")
	_, err = New(0, 23).Fit(mat.NewDense(3, 2, nil))
	assert.Error(t, err)
	_, err = New(1, 23).Fit(nil)
	assert.Error(t, err)
}

func TestCoMembership(t *testing.T) {
	assert.True(t, CoMembership([]int{0, 0, 1, 2}, []int{4, 4, 0, 1}))
	assert.False(t, CoMembership([]int{0, 0, 1}, []int{1, 2, 1}))
	assert.False(t, CoMembership([]int{0, 1, 1}, []int{0, 0, 1}))
	assert.False(t, CoMembership([]int{0}, []int{0, 0}))
}
