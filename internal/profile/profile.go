// Package profile joins cluster labels onto the enriched table and derives
// per-cluster and population profiles plus the long-form radar table.
package profile

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/subseg-cli/internal/features"
)

// PopulationLabel is the synthetic cluster standing for all subscribers.
const PopulationLabel = -1

// Metric names a radar axis.
type Metric string

const (
	AvgAge          Metric = "avg_age"
	AvgBalance      Metric = "avg_balance"
	AvgEducationOrd Metric = "avg_education_ord"
)

// Metrics is the radar axis order.
var Metrics = []Metric{AvgAge, AvgBalance, AvgEducationOrd}

// Assignment maps RowID to cluster label.
type Assignment map[int]int

// ErrUnlabeled is returned when a row has no cluster label.
var ErrUnlabeled = errors.New("row has no cluster label")

// NewAssignment keys positional segmenter output by RowID. labels[i] must
// belong to rows[i], the row order of the matrix that was clustered.
func NewAssignment(rows []features.Row, labels []int) (Assignment, error) {
	if len(rows) != len(labels) {
		return nil, fmt.Errorf("label count %d does not match row count %d", len(labels), len(rows))
	}
	a := make(Assignment, len(rows))
	for i, r := range rows {
		if _, dup := a[r.RowID]; dup {
			return nil, fmt.Errorf("duplicate row id %d", r.RowID)
		}
		a[r.RowID] = labels[i]
	}
	return a, nil
}

// LabeledRow is an enriched row with its cluster attached.
type LabeledRow struct {
	features.Row
	Cluster int
}

// ClusterProfile holds the rounded means of one cluster or of the population.
type ClusterProfile struct {
	Cluster         int
	Size            int
	AvgAge          float64
	AvgBalance      float64
	AvgEducationOrd float64
}

// Value returns the profile value for a metric.
func (p ClusterProfile) Value(m Metric) float64 {
	switch m {
	case AvgAge:
		return p.AvgAge
	case AvgBalance:
		return p.AvgBalance
	case AvgEducationOrd:
		return p.AvgEducationOrd
	}
	return math.NaN()
}

// RadarRow is one (cluster, metric) point of the overlay chart.
type RadarRow struct {
	Cluster   int
	Metric    Metric
	AbsValue  float64
	NormValue float64
}

// Summary is the aggregator output.
type Summary struct {
	Rows []LabeledRow
	// Profiles holds clusters 0..k-1 followed by the population row.
	Profiles []ClusterProfile
	Radar    []RadarRow
}

// Aggregate joins labels onto rows by RowID and computes profiles and the
// radar table. The population row is always present.
func Aggregate(rows []features.Row, labels Assignment, k int) (*Summary, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d", k)
	}
	if len(rows) == 0 {
		return nil, errors.New("no rows to aggregate")
	}
	type acc struct {
		n                 int
		age, balance, edu float64
	}
	accs := make([]acc, k+1) // last slot is the population
	out := &Summary{Rows: make([]LabeledRow, len(rows))}
	for i, r := range rows {
		c, ok := labels[r.RowID]
		if !ok {
			return nil, fmt.Errorf("%w: row %d", ErrUnlabeled, r.RowID)
		}
		if c < 0 || c >= k {
			return nil, fmt.Errorf("row %d: label %d outside [0, %d)", r.RowID, c, k)
		}
		out.Rows[i] = LabeledRow{Row: r, Cluster: c}
		for _, j := range []int{c, k} {
			accs[j].n++
			accs[j].age += float64(r.Age)
			accs[j].balance += float64(r.Balance)
			accs[j].edu += float64(r.EducationOrd)
		}
	}

	out.Profiles = make([]ClusterProfile, k+1)
	for j, a := range accs {
		p := ClusterProfile{Cluster: j, Size: a.n}
		if j == k {
			p.Cluster = PopulationLabel
		}
		if a.n > 0 {
			p.AvgAge = round2(a.age / float64(a.n))
			p.AvgBalance = round2(a.balance / float64(a.n))
			p.AvgEducationOrd = round2(a.edu / float64(a.n))
		}
		out.Profiles[j] = p
	}
	out.Radar = Normalize(out.Profiles)
	return out, nil
}

// Normalize min-max scales each metric jointly over all profiles and
// returns the long form, metric-major in profile order. A metric that is
// constant across profiles normalizes to 0.
func Normalize(profiles []ClusterProfile) []RadarRow {
	out := make([]RadarRow, 0, len(profiles)*len(Metrics))
	vals := make([]float64, len(profiles))
	for _, m := range Metrics {
		for i, p := range profiles {
			vals[i] = p.Value(m)
		}
		lo, hi := floats.Min(vals), floats.Max(vals)
		for i, p := range profiles {
			norm := 0.0
			if hi > lo {
				norm = (vals[i] - lo) / (hi - lo)
			}
			out = append(out, RadarRow{Cluster: p.Cluster, Metric: m, AbsValue: vals[i], NormValue: norm})
		}
	}
	return out
}

// Population returns the population profile.
func (s *Summary) Population() ClusterProfile {
	return s.Profiles[len(s.Profiles)-1]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
