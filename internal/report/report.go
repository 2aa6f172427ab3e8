// Package report summarizes selected clusters of a dashboard table against
// the whole subscriber population.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/subseg-cli/internal/artifact"
	"github.com/KaramelBytes/subseg-cli/internal/profile"
)

// Count is a value with its number of occurrences.
type Count struct {
	Value string
	Count int
}

// CategoryCount compares the selection with the population for one value.
type CategoryCount struct {
	Value      string
	Selected   int
	Population int
}

// FlagShare is the yes/no split of a boolean attribute, in percent.
type FlagShare struct {
	Name string
	Yes  float64
	No   float64
}

// Report is the profile of a cluster selection.
type Report struct {
	Name       string
	Clusters   []int
	Size       int
	Population int
	// Share is Size/Population in percent.
	Share         float64
	AvgBalance    int64
	AvgAge        int
	ModeEducation string
	// Population reference values, shown next to the selection's.
	PopAvgBalance    int64
	PopAvgAge        int
	PopModeEducation string
	// Jobs and Marital list every value seen in the population, ordered by
	// population count descending then by value.
	Jobs    []CategoryCount
	Marital []CategoryCount
	Flags   []FlagShare
	Radar   []profile.RadarRow
}

// Build profiles the rows of d whose cluster is in clusters (all rows when
// clusters is empty). radar may be nil; otherwise the rows for the selected
// clusters and the population are kept.
func Build(d *artifact.Dashboard, clusters []int, radar []profile.RadarRow) (*Report, error) {
	sel := d.Select(clusters)
	if len(sel) == 0 {
		return nil, fmt.Errorf("no subscribers in clusters %v", clusters)
	}
	r := &Report{
		Clusters:   clusters,
		Size:       len(sel),
		Population: len(d.Rows),
	}
	if len(clusters) == 0 {
		r.Clusters = d.Clusters()
	}
	r.Share = float64(r.Size) * 100 / float64(r.Population)

	r.AvgBalance, r.AvgAge = averages(sel)
	r.PopAvgBalance, r.PopAvgAge = averages(d.Rows)
	education := func(x artifact.DashboardRow) string { return x.Education }
	r.ModeEducation = mode(sel, education)
	r.PopModeEducation = mode(d.Rows, education)
	r.Jobs = compare(sel, d.Rows, func(x artifact.DashboardRow) string { return x.Job })
	r.Marital = compare(sel, d.Rows, func(x artifact.DashboardRow) string { return x.Marital })

	flags := []struct {
		name string
		get  func(artifact.DashboardRow) bool
	}{
		{"has_default", func(x artifact.DashboardRow) bool { return x.HasDefault }},
		{"has_loan", func(x artifact.DashboardRow) bool { return x.HasLoan }},
		{"has_housing", func(x artifact.DashboardRow) bool { return x.HasHousing }},
	}
	for _, f := range flags {
		yes := 0
		for _, row := range sel {
			if f.get(row) {
				yes++
			}
		}
		y := float64(yes) * 100 / float64(r.Size)
		r.Flags = append(r.Flags, FlagShare{Name: f.name, Yes: y, No: 100 - y})
	}

	if radar != nil {
		keep := map[int]bool{profile.PopulationLabel: true}
		for _, c := range r.Clusters {
			keep[c] = true
		}
		for _, rr := range radar {
			if keep[rr.Cluster] {
				r.Radar = append(r.Radar, rr)
			}
		}
	}
	return r, nil
}

// averages returns mean balance and age, truncated toward zero as the
// dashboard displays them.
func averages(rows []artifact.DashboardRow) (int64, int) {
	if len(rows) == 0 {
		return 0, 0
	}
	var sumBal int64
	var sumAge int
	for _, row := range rows {
		sumBal += row.Balance
		sumAge += row.Age
	}
	return sumBal / int64(len(rows)), sumAge / len(rows)
}

// compare counts key over the population and the selection. Values absent
// from the selection are kept with Selected 0.
func compare(sel, pop []artifact.DashboardRow, key func(artifact.DashboardRow) string) []CategoryCount {
	selected := map[string]int{}
	for _, row := range sel {
		selected[key(row)]++
	}
	total := counts(pop, key)
	out := make([]CategoryCount, len(total))
	for i, c := range total {
		out[i] = CategoryCount{Value: c.Value, Selected: selected[c.Value], Population: c.Count}
	}
	return out
}

// counts tallies values by descending count, ties broken by value.
func counts(rows []artifact.DashboardRow, key func(artifact.DashboardRow) string) []Count {
	m := map[string]int{}
	for _, row := range rows {
		m[key(row)]++
	}
	out := make([]Count, 0, len(m))
	for v, n := range m {
		out = append(out, Count{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func mode(rows []artifact.DashboardRow, key func(artifact.DashboardRow) string) string {
	c := counts(rows, key)
	if len(c) == 0 {
		return ""
	}
	return c[0].Value
}

// Markdown renders the report as plain sectioned text.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[SEGMENT PROFILE]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Clusters: %s\n", joinInts(r.Clusters)))
	b.WriteString(fmt.Sprintf("Subscribers: %d of %d (%.1f%%)\n", r.Size, r.Population, r.Share))
	b.WriteString(fmt.Sprintf("Average balance: %d (population %d)\n", r.AvgBalance, r.PopAvgBalance))
	b.WriteString(fmt.Sprintf("Average age: %d (population %d)\n", r.AvgAge, r.PopAvgAge))
	b.WriteString(fmt.Sprintf("Most common education: %s (population %s)\n", r.ModeEducation, r.PopModeEducation))

	b.WriteString("\n[JOBS]\n")
	for _, c := range r.Jobs {
		b.WriteString(fmt.Sprintf("- %s: %d (population %d)\n", c.Value, c.Selected, c.Population))
	}

	b.WriteString("\n[MARITAL STATUS]\n")
	for _, m := range r.Marital {
		b.WriteString(fmt.Sprintf("- %s: %d (population %d)\n", m.Value, m.Selected, m.Population))
	}

	b.WriteString("\n[CREDIT FLAGS]\n")
	for _, f := range r.Flags {
		b.WriteString(fmt.Sprintf("- %s: yes %.1f%%, no %.1f%%\n", f.Name, f.Yes, f.No))
	}

	if len(r.Radar) > 0 {
		b.WriteString("\n[RADAR]\n")
		for _, rr := range r.Radar {
			label := fmt.Sprintf("cluster %d", rr.Cluster)
			if rr.Cluster == profile.PopulationLabel {
				label = "population"
			}
			b.WriteString(fmt.Sprintf("- %s %s: %.2f (norm %.3f)\n", rr.Metric, label, rr.AbsValue, rr.NormValue))
		}
	}
	return b.String()
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = fmt.Sprint(x)
	}
	return strings.Join(s, ", ")
}
