package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/subseg-cli/internal/artifact"
	"github.com/KaramelBytes/subseg-cli/internal/profile"
)

func dashboard() *artifact.Dashboard {
	rows := []artifact.DashboardRow{
		{RowID: 1, Age: 30, Job: "admin.", Marital: "married", Education: "secondary", Balance: 101, HasHousing: true, Cluster: 0},
		{RowID: 2, Age: 33, Job: "technician", Marital: "single", Education: "tertiary", Balance: -10, HasLoan: true, Cluster: 0},
		{RowID: 3, Age: 41, Job: "admin.", Marital: "married", Education: "secondary", Balance: 0, HasDefault: true, Cluster: 0},
		{RowID: 4, Age: 60, Job: "retired", Marital: "married", Education: "primary", Balance: 5000, Cluster: 1},
		{RowID: 5, Age: 25, Job: "student", Marital: "single", Education: "secondary", Balance: 20, Cluster: 2},
		{RowID: 6, Age: 45, Job: "technician", Marital: "divorced", Education: "tertiary", Balance: 900, HasHousing: true, Cluster: 2},
	}
	return &artifact.Dashboard{Rows: rows}
}

func TestBuildSingleCluster(t *testing.T) {
	r, err := Build(dashboard(), []int{0}, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, r.Size)
	assert.Equal(t, 6, r.Population)
	assert.InDelta(t, 50.0, r.Share, 1e-9)
	assert.Equal(t, int64(30), r.AvgBalance)
	assert.Equal(t, 34, r.AvgAge)
	assert.Equal(t, "secondary", r.ModeEducation)
	assert.Equal(t, int64(1001), r.PopAvgBalance)
	assert.Equal(t, 39, r.PopAvgAge)
	assert.Equal(t, "secondary", r.PopModeEducation)
	assert.Equal(t, []CategoryCount{
		{Value: "admin.", Selected: 2, Population: 2},
		{Value: "technician", Selected: 1, Population: 2},
		{Value: "retired", Selected: 0, Population: 1},
		{Value: "student", Selected: 0, Population: 1},
	}, r.Jobs)
	assert.Equal(t, []CategoryCount{
		{Value: "married", Selected: 2, Population: 3},
		{Value: "single", Selected: 1, Population: 2},
		{Value: "divorced", Selected: 0, Population: 1},
	}, r.Marital)

	require.Len(t, r.Flags, 3)
	assert.Equal(t, "has_default", r.Flags[0].Name)
	assert.InDelta(t, 100.0/3, r.Flags[0].Yes, 1e-9)
	assert.InDelta(t, 100.0/3, r.Flags[2].Yes, 1e-9)
	assert.InDelta(t, 100.0, r.Flags[1].Yes+r.Flags[1].No, 1e-9)
	assert.Nil(t, r.Radar)
}

func TestBuildTruncatesNegativeAverages(t *testing.T) {
	d := &artifact.Dashboard{Rows: []artifact.DashboardRow{
		{Age: 20, Balance: -5, Cluster: 0},
		{Age: 21, Balance: -2, Cluster: 0},
	}}
	r, err := Build(d, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-3), r.AvgBalance)
	assert.Equal(t, 20, r.AvgAge)
	assert.Equal(t, []int{0}, r.Clusters)
}

func TestBuildListsPopulationCategoriesAbsentFromSelection(t *testing.T) {
	r, err := Build(dashboard(), []int{1}, nil)
	require.NoError(t, err)
	require.Len(t, r.Jobs, 4)
	var values []string
	for _, c := range r.Jobs {
		values = append(values, c.Value)
	}
	assert.Equal(t, []string{"admin.", "technician", "retired", "student"}, values, "population count desc, ties by name")
	assert.Equal(t, CategoryCount{Value: "retired", Selected: 1, Population: 1}, r.Jobs[2])
	assert.Equal(t, 0, r.Jobs[0].Selected)

	assert.Equal(t, []CategoryCount{
		{Value: "married", Selected: 1, Population: 3},
		{Value: "single", Selected: 0, Population: 2},
		{Value: "divorced", Selected: 0, Population: 1},
	}, r.Marital)
	assert.Equal(t, "primary", r.ModeEducation)
	assert.Equal(t, "secondary", r.PopModeEducation)
	assert.Equal(t, 60, r.AvgAge)
	assert.Equal(t, 39, r.PopAvgAge)
}

func TestBuildEmptySelection(t *testing.T) {
	_, err := Build(dashboard(), []int{4}, nil)
	assert.Error(t, err)
}

func TestBuildFiltersRadar(t *testing.T) {
	radar := []profile.RadarRow{
		{Cluster: 0, Metric: profile.AvgAge, AbsValue: 34.67, NormValue: 0.4},
		{Cluster: 1, Metric: profile.AvgAge, AbsValue: 60, NormValue: 1},
		{Cluster: 2, Metric: profile.AvgAge, AbsValue: 35, NormValue: 0},
		{Cluster: -1, Metric: profile.AvgAge, AbsValue: 39, NormValue: 0.11},
	}
	r, err := Build(dashboard(), []int{1}, radar)
	require.NoError(t, err)
	require.Len(t, r.Radar, 2)
	assert.Equal(t, 1, r.Radar[0].Cluster)
	assert.Equal(t, profile.PopulationLabel, r.Radar[1].Cluster)
}

func TestMarkdownSections(t *testing.T) {
	radar := []profile.RadarRow{{Cluster: -1, Metric: profile.AvgBalance, AbsValue: 1001.83, NormValue: 0.25}}
	r, err := Build(dashboard(), []int{0}, radar)
	require.NoError(t, err)
	r.Name = "dashboard_base_k5.csv"
	md := r.Markdown()

	for _, want := range []string{
		"[SEGMENT PROFILE]\n",
		"File: dashboard_base_k5.csv\n",
		"Clusters: 0\n",
		"Subscribers: 3 of 6 (50.0%)\n",
		"Average balance: 30 (population 1001)\n",
		"Average age: 34 (population 39)\n",
		"Most common education: secondary (population secondary)\n",
		"- admin.: 2 (population 2)\n",
		"- student: 0 (population 1)\n",
		"- married: 2 (population 3)\n",
		"- divorced: 0 (population 1)\n",
		"- has_default: yes 33.3%, no 66.7%\n",
		"[RADAR]\n- avg_balance population: 1001.83 (norm 0.250)\n",
	} {
		assert.True(t, strings.Contains(md, want), "missing %q in:\n%s", want, md)
	}
}
