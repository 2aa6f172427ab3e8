package artifact

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/KaramelBytes/subseg-cli/internal/dataset"
)

// DashboardRow is one subscriber as read back from the dashboard table.
type DashboardRow struct {
	RowID      int
	Age        int
	Job        string
	Marital    string
	Education  string
	HasDefault bool
	Balance    int64
	HasHousing bool
	HasLoan    bool
	// Encoded holds every derived numeric column by name.
	Encoded map[string]float64
	Cluster int
}

// Dashboard is a dashboard table read from disk.
type Dashboard struct {
	Columns []string
	Rows    []DashboardRow
}

var dashboardRequired = []string{
	"row_id", "age", "job", "marital", "education", "has_default", "balance", "has_housing", "has_loan", ClusterColumn,
}

// ReadDashboard reads a table written by WriteDashboard. Columns between
// has_loan and cluster_k5 are loaded as encoded numeric features.
func ReadDashboard(path string) (*Dashboard, error) {
	header, recs, err := readAll(path)
	if err != nil {
		return nil, err
	}
	idx, err := indexColumns(header, dashboardRequired)
	if err != nil {
		return nil, err
	}
	var encoded []string
	for _, h := range header {
		if !slices.Contains(dashboardRequired, h) {
			encoded = append(encoded, h)
		}
	}

	d := &Dashboard{Columns: header, Rows: make([]DashboardRow, 0, len(recs))}
	for n, rec := range recs {
		line := n + 1
		r := DashboardRow{
			Job:       rec[idx["job"]],
			Marital:   rec[idx["marital"]],
			Education: rec[idx["education"]],
			Encoded:   make(map[string]float64, len(encoded)),
		}
		ints := []struct {
			col string
			dst *int
		}{{"row_id", &r.RowID}, {"age", &r.Age}, {ClusterColumn, &r.Cluster}}
		for _, f := range ints {
			v, err := strconv.Atoi(rec[idx[f.col]])
			if err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", line, f.col, err)
			}
			*f.dst = v
		}
		if r.Balance, err = strconv.ParseInt(rec[idx["balance"]], 10, 64); err != nil {
			return nil, fmt.Errorf("row %d: balance: %w", line, err)
		}
		flags := []struct {
			col string
			dst *bool
		}{{"has_default", &r.HasDefault}, {"has_housing", &r.HasHousing}, {"has_loan", &r.HasLoan}}
		for _, f := range flags {
			v, err := dataset.ParseFlag(rec[idx[f.col]])
			if err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", line, f.col, err)
			}
			*f.dst = v
		}
		for _, col := range encoded {
			v, err := strconv.ParseFloat(rec[idx[col]], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: %s: %w", line, col, err)
			}
			r.Encoded[col] = v
		}
		d.Rows = append(d.Rows, r)
	}
	return d, nil
}

// Select returns the rows whose cluster is in clusters. An empty selection
// returns every row.
func (d *Dashboard) Select(clusters []int) []DashboardRow {
	if len(clusters) == 0 {
		return d.Rows
	}
	want := make(map[int]struct{}, len(clusters))
	for _, c := range clusters {
		want[c] = struct{}{}
	}
	var out []DashboardRow
	for _, r := range d.Rows {
		if _, ok := want[r.Cluster]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Clusters returns the distinct labels in ascending order.
func (d *Dashboard) Clusters() []int {
	seen := map[int]struct{}{}
	var out []int
	for _, r := range d.Rows {
		if _, ok := seen[r.Cluster]; !ok {
			seen[r.Cluster] = struct{}{}
			out = append(out, r.Cluster)
		}
	}
	slices.Sort(out)
	return out
}
