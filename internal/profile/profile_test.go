package profile

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/subseg-cli/internal/dataset"
	"github.com/KaramelBytes/subseg-cli/internal/features"
)

func row(id, age int, balance int64, edu int) features.Row {
	return features.Row{
		Record:       dataset.Record{RowID: id, Age: age, Balance: balance, Target: true},
		EducationOrd: edu,
	}
}

func fixture() ([]features.Row, Assignment) {
	rows := []features.Row{
		row(10, 25, 100, 2),
		row(11, 35, -300, 1),
		row(12, 45, 900, 0),
		row(13, 55, 0, -1),
		row(14, 65, 5000, 2),
		row(15, 30, 200, 1),
	}
	labels := Assignment{10: 0, 11: 1, 12: 2, 13: 3, 14: 4, 15: 0}
	return rows, labels
}

func TestAggregateProfilesAndPopulation(t *testing.T) {
	rows, labels := fixture()
	s, err := Aggregate(rows, labels, 5)
	require.NoError(t, err)
	require.Len(t, s.Profiles, 6)

	assert.Equal(t, ClusterProfile{Cluster: 0, Size: 2, AvgAge: 27.5, AvgBalance: 150, AvgEducationOrd: 1.5}, s.Profiles[0])
	assert.Equal(t, ClusterProfile{Cluster: 3, Size: 1, AvgAge: 55, AvgBalance: 0, AvgEducationOrd: -1}, s.Profiles[3])

	pop := s.Population()
	assert.Equal(t, PopulationLabel, pop.Cluster)
	assert.Equal(t, 6, pop.Size)
	assert.Equal(t, 42.5, pop.AvgAge)
	assert.Equal(t, 983.33, pop.AvgBalance)
	assert.Equal(t, 0.83, pop.AvgEducationOrd)

	for i, lr := range s.Rows {
		assert.Equal(t, rows[i].RowID, lr.RowID)
		assert.Equal(t, labels[lr.RowID], lr.Cluster)
	}
}

func TestRadarNormalizationSpansUnitInterval(t *testing.T) {
	rows, labels := fixture()
	s, err := Aggregate(rows, labels, 5)
	require.NoError(t, err)
	require.Len(t, s.Radar, 18)

	for _, m := range Metrics {
		lo, hi := 2.0, -1.0
		for _, r := range s.Radar {
			if r.Metric != m {
				continue
			}
			assert.GreaterOrEqual(t, r.NormValue, 0.0)
			assert.LessOrEqual(t, r.NormValue, 1.0)
			lo = min(lo, r.NormValue)
			hi = max(hi, r.NormValue)
		}
		assert.Equal(t, 0.0, lo, m)
		assert.Equal(t, 1.0, hi, m)
	}
}

func TestRadarIsMetricMajorWithPopulationLast(t *testing.T) {
	rows, labels := fixture()
	s, err := Aggregate(rows, labels, 5)
	require.NoError(t, err)
	var order []int
	for _, r := range s.Radar[:6] {
		assert.Equal(t, AvgAge, r.Metric)
		order = append(order, r.Cluster)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4, -1}, order)
	assert.Equal(t, AvgBalance, s.Radar[6].Metric)
	assert.Equal(t, AvgEducationOrd, s.Radar[17].Metric)
	assert.Equal(t, 42.5, s.Radar[5].AbsValue)
}

func TestConstantMetricNormalizesToZero(t *testing.T) {
	rows := []features.Row{row(1, 40, 10, 1), row(2, 40, 20, 1), row(3, 40, 30, 1)}
	s, err := Aggregate(rows, Assignment{1: 0, 2: 1, 3: 1}, 2)
	require.NoError(t, err)
	for _, r := range s.Radar {
		switch r.Metric {
		case AvgAge, AvgEducationOrd:
			assert.Equal(t, 0.0, r.NormValue, "constant %s", r.Metric)
		case AvgBalance:
			assert.False(t, r.NormValue != r.NormValue, "NaN")
		}
	}
}

func TestSingleClusterScenario(t *testing.T) {
	rows := []features.Row{row(1, 30, 100, 0), row(2, 40, -50, 1), row(3, 50, 0, -1)}
	s, err := Aggregate(rows, Assignment{1: 0, 2: 0, 3: 0}, 1)
	require.NoError(t, err)
	require.Len(t, s.Profiles, 2)
	assert.Equal(t, 40.0, s.Profiles[0].AvgAge)
	assert.Equal(t, 40.0, s.Population().AvgAge)
	for _, r := range s.Radar {
		assert.Equal(t, 0.0, r.NormValue)
	}
}

func TestEmptyClusterReportedWithZeroSize(t *testing.T) {
	rows := []features.Row{row(1, 30, 100, 0), row(2, 40, -50, 1)}
	s, err := Aggregate(rows, Assignment{1: 0, 2: 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Profiles[2].Size)
	assert.Len(t, s.Radar, 12)
}

func TestAggregateJoinErrors(t *testing.T) {
	rows, labels := fixture()
	delete(labels, 12)
	_, err := Aggregate(rows, labels, 5)
	assert.True(t, errors.Is(err, ErrUnlabeled))

	rows, labels = fixture()
	labels[12] = 7
	_, err = Aggregate(rows, labels, 5)
	assert.Error(t, err)
}

func TestNewAssignmentKeysByRowID(t *testing.T) {
	rows, _ := fixture()
	a, err := NewAssignment(rows, []int{4, 3, 2, 1, 0, 4})
	require.NoError(t, err)
	assert.Equal(t, Assignment{10: 4, 11: 3, 12: 2, 13: 1, 14: 0, 15: 4}, a)

	_, err = NewAssignment(rows, []int{0})
	assert.Error(t, err)
}
