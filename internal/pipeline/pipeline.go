// Package pipeline runs one segmentation pass end to end:
// load, clean, encode, cluster, aggregate, persist.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/subseg-cli/internal/artifact"
	"github.com/KaramelBytes/subseg-cli/internal/dataset"
	"github.com/KaramelBytes/subseg-cli/internal/features"
	"github.com/KaramelBytes/subseg-cli/internal/logging"
	"github.com/KaramelBytes/subseg-cli/internal/profile"
	"github.com/KaramelBytes/subseg-cli/internal/segment"
	"github.com/KaramelBytes/subseg-cli/internal/utils"
)

// ManifestFile is written next to the artifacts.
const ManifestFile = "run.json"

// Options controls a run.
type Options struct {
	// Delimiter of the input file; 0 sniffs it from the extension.
	Delimiter rune
	OutputDir string
	Schema    dataset.Schema
	Features  features.Options
	MaxIter   int
	NInit     int
	Tol       float64

	DashboardFile string
	RadarFile     string
}

// DefaultOptions mirrors the dashboard's expectations: k=5, seed 23,
// artifacts in the working directory.
func DefaultOptions() Options {
	km := segment.New(5, 23)
	return Options{
		OutputDir:     ".",
		Schema:        dataset.DefaultSchema(),
		Features:      features.DefaultOptions(),
		MaxIter:       km.MaxIter,
		NInit:         km.NInit,
		Tol:           km.Tol,
		DashboardFile: artifact.DashboardFile,
		RadarFile:     artifact.RadarFile,
	}
}

// Manifest records what a run produced.
type Manifest struct {
	RunID       string         `json:"run_id"`
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	Input       string         `json:"input"`
	RawRows     int            `json:"raw_rows"`
	Subscribers int            `json:"subscribers"`
	Clusters    int            `json:"clusters"`
	Seed        int64          `json:"seed"`
	Iterations  int            `json:"iterations"`
	Converged   bool           `json:"converged"`
	Inertia     float64        `json:"inertia"`
	Rerouted    map[string]int `json:"rerouted,omitempty"`
	Stats       features.Stats `json:"stats"`
	Dashboard   string         `json:"dashboard"`
	Radar       string         `json:"radar"`
}

// Result is everything a run computed.
type Result struct {
	Manifest Manifest
	Encoded  *features.Encoded
	Fit      *segment.Result
	Summary  *profile.Summary
	// ManifestPath is where run.json was written.
	ManifestPath string
}

// Run executes the pipeline on input. ctx is checked between stages.
func Run(ctx context.Context, input string, opt Options) (*Result, error) {
	if err := opt.Schema.Validate(); err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	if opt.DashboardFile == "" {
		opt.DashboardFile = artifact.DashboardFile
	}
	if opt.RadarFile == "" {
		opt.RadarFile = artifact.RadarFile
	}
	if opt.OutputDir == "" {
		opt.OutputDir = "."
	}

	m := Manifest{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Input:     input,
		Clusters:  opt.Schema.Clusters,
		Seed:      opt.Schema.Seed,
	}
	log := logging.With().Str("run_id", m.RunID).Logger()

	raw, err := dataset.LoadCSV(input, dataset.LoadOptions{Delimiter: opt.Delimiter})
	if err != nil {
		return nil, err
	}
	m.RawRows = len(raw.Rows)
	recs, err := dataset.Clean(raw)
	if err != nil {
		return nil, fmt.Errorf("clean %s: %w", input, err)
	}
	m.Subscribers = len(recs)
	log.Info().Int("raw_rows", m.RawRows).Int("subscribers", m.Subscribers).Msg("loaded campaign file")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enc, err := features.Encode(recs, opt.Schema, opt.Features)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	m.Stats = enc.Stats
	m.Rerouted = enc.Rerouted
	log.Debug().
		Float64("age_mean", enc.Stats.AgeMean).
		Float64("age_std", enc.Stats.AgeStd).
		Float64("log_balance_mean", enc.Stats.LogBalanceMean).
		Float64("log_balance_std", enc.Stats.LogBalanceStd).
		Msg("standardization parameters")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	km := segment.New(opt.Schema.Clusters, opt.Schema.Seed)
	if opt.MaxIter > 0 {
		km.MaxIter = opt.MaxIter
	}
	if opt.NInit > 0 {
		km.NInit = opt.NInit
	}
	if opt.Tol > 0 {
		km.Tol = opt.Tol
	}
	fit, err := km.Fit(enc.Matrix)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}
	m.Iterations, m.Converged, m.Inertia = fit.Iterations, fit.Converged, fit.Inertia
	if !fit.Converged {
		log.Warn().Int("max_iter", km.MaxIter).Float64("inertia", fit.Inertia).Msg("k-means did not converge; keeping best partition")
	} else {
		log.Info().Int("iterations", fit.Iterations).Float64("inertia", fit.Inertia).Msg("k-means converged")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels, err := profile.NewAssignment(enc.Rows, fit.Labels)
	if err != nil {
		return nil, err
	}
	sum, err := profile.Aggregate(enc.Rows, labels, opt.Schema.Clusters)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := utils.EnsureDir(opt.OutputDir); err != nil {
		return nil, err
	}
	m.Dashboard = filepath.Join(opt.OutputDir, opt.DashboardFile)
	m.Radar = filepath.Join(opt.OutputDir, opt.RadarFile)
	if err := artifact.WriteDashboard(m.Dashboard, opt.Schema, sum.Rows); err != nil {
		return nil, fmt.Errorf("write dashboard: %w", err)
	}
	if err := artifact.WriteRadar(m.Radar, sum.Radar); err != nil {
		return nil, fmt.Errorf("write radar: %w", err)
	}

	m.FinishedAt = time.Now().UTC()
	b, err := utils.PrettyJSON(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	mp := filepath.Join(opt.OutputDir, ManifestFile)
	if err := utils.SafeWriteFile(mp, b); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	log.Info().Str("dashboard", m.Dashboard).Str("radar", m.Radar).Msg("artifacts written")

	return &Result{Manifest: m, Encoded: enc, Fit: fit, Summary: sum, ManifestPath: mp}, nil
}
