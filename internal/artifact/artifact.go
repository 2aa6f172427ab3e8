// Package artifact writes and reads the two flat output files of a run:
// the per-subscriber dashboard table and the long-form radar table.
package artifact

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/KaramelBytes/subseg-cli/internal/dataset"
	"github.com/KaramelBytes/subseg-cli/internal/features"
	"github.com/KaramelBytes/subseg-cli/internal/profile"
	"github.com/KaramelBytes/subseg-cli/internal/utils"
)

// Default file names, matching what the dashboard reads.
const (
	DashboardFile = "dashboard_base_k5.csv"
	RadarFile     = "radar_linearchart.csv"
)

// ClusterColumn is the label column shared by both artifacts.
const ClusterColumn = "cluster_k5"

// RadarColumns is the radar table header.
var RadarColumns = []string{ClusterColumn, "metric_type", "abs_value", "norm_value"}

// DashboardColumns returns the dashboard header for a schema.
func DashboardColumns(s dataset.Schema) []string {
	cols := []string{"row_id", "age", "job", "marital", "education", "has_default", "balance", "has_housing", "has_loan"}
	cols = append(cols, features.EncodedColumns(s)...)
	return append(cols, ClusterColumn)
}

// FormatFloat renders the shortest representation that parses back to the same bits.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteDashboard overwrites path with one row per subscriber.
func WriteDashboard(path string, s dataset.Schema, rows []profile.LabeledRow) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(DashboardColumns(s)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.RowID),
			strconv.Itoa(r.Age),
			r.Job,
			r.Marital,
			r.Education,
			dataset.FormatFlag(r.HasDefault),
			strconv.FormatInt(r.Balance, 10),
			dataset.FormatFlag(r.HasHousing),
			dataset.FormatFlag(r.HasLoan),
		}
		for _, v := range r.Vector() {
			rec = append(rec, FormatFloat(v))
		}
		rec = append(rec, strconv.Itoa(r.TargetBin), strconv.Itoa(r.Cluster))
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row %d: %w", r.RowID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// WriteRadar overwrites path with the long-form radar table.
func WriteRadar(path string, rows []profile.RadarRow) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(RadarColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write([]string{
			strconv.Itoa(r.Cluster), string(r.Metric), FormatFloat(r.AbsValue), FormatFloat(r.NormValue),
		}); err != nil {
			return fmt.Errorf("write radar row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}

// ReadRadar reads a radar table written by WriteRadar.
func ReadRadar(path string) ([]profile.RadarRow, error) {
	header, recs, err := readAll(path)
	if err != nil {
		return nil, err
	}
	idx, err := indexColumns(header, RadarColumns)
	if err != nil {
		return nil, err
	}
	out := make([]profile.RadarRow, 0, len(recs))
	for n, rec := range recs {
		var r profile.RadarRow
		if r.Cluster, err = strconv.Atoi(rec[idx[ClusterColumn]]); err != nil {
			return nil, fmt.Errorf("row %d: %s: %w", n+1, ClusterColumn, err)
		}
		r.Metric = profile.Metric(rec[idx["metric_type"]])
		if r.AbsValue, err = strconv.ParseFloat(rec[idx["abs_value"]], 64); err != nil {
			return nil, fmt.Errorf("row %d: abs_value: %w", n+1, err)
		}
		if r.NormValue, err = strconv.ParseFloat(rec[idx["norm_value"]], 64); err != nil {
			return nil, fmt.Errorf("row %d: norm_value: %w", n+1, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func readAll(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("read header %s: empty file", path)
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	recs, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read rows: %w", err)
	}
	return header, recs, nil
}

func indexColumns(header, required []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: %s", dataset.ErrMissingColumn, c)
		}
	}
	return idx, nil
}
