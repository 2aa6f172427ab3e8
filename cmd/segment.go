package cmd

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	cfgpkg "github.com/KaramelBytes/subseg-cli/internal/config"
	"github.com/KaramelBytes/subseg-cli/internal/dataset"
	"github.com/KaramelBytes/subseg-cli/internal/features"
	"github.com/KaramelBytes/subseg-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	segOutputDir       string
	segClusters        int
	segSeed            int64
	segDelimiter       string
	segMaxIter         int
	segNInit           int
	segZeroVariance    string
	segUnknownCategory string
)

var segmentCmd = &cobra.Command{
	Use:   "segment <file>",
	Short: "Cluster subscribers and write the dashboard and radar tables",
	Long: `Cluster the subscribers of a campaign file and write three files to the
output directory: dashboard_base_k5.csv, radar_linearchart.csv and run.json.

The table names and the cluster_k5 label column are what the dashboard reads.
They stay the same whatever --clusters is set to; run.json records the k used.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := *currentConfig()
		f := cmd.Flags()
		if f.Changed("output") {
			c.OutputDir = segOutputDir
		}
		if f.Changed("clusters") {
			c.Clusters = segClusters
		}
		if f.Changed("seed") {
			c.Seed = segSeed
		}
		if f.Changed("delimiter") {
			c.InputDelimiter = segDelimiter
		}
		if f.Changed("max-iter") {
			c.MaxIter = segMaxIter
		}
		if f.Changed("n-init") {
			c.NInit = segNInit
		}
		if f.Changed("zero-variance") {
			c.ZeroVariancePolicy = segZeroVariance
		}
		if f.Changed("unknown-category") {
			c.UnknownCategoryPolicy = segUnknownCategory
		}
		opt, err := pipelineOptions(&c)
		if err != nil {
			return err
		}

		res, err := pipeline.Run(cmd.Context(), args[0], opt)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		m := res.Manifest
		fmt.Fprintf(out, "✓ Segmented %d subscribers (of %d rows) into %d clusters\n", m.Subscribers, m.RawRows, m.Clusters)
		if !m.Converged {
			fmt.Fprintf(out, "⚠ k-means stopped after %d iterations without converging\n", m.Iterations)
		}
		for _, col := range slices.Sorted(maps.Keys(m.Rerouted)) {
			fmt.Fprintf(out, "⚠ %d unrecognized %s values encoded as unknown\n", m.Rerouted[col], col)
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "CLUSTER\tSIZE\tAVG AGE\tAVG BALANCE\tAVG EDUCATION")
		for _, p := range res.Summary.Profiles {
			label := fmt.Sprint(p.Cluster)
			if p.Cluster < 0 {
				label = "all"
			}
			fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\n", label, p.Size, p.AvgAge, p.AvgBalance, p.AvgEducationOrd)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote %s\n", m.Dashboard)
		fmt.Fprintf(out, "✓ Wrote %s\n", m.Radar)
		fmt.Fprintf(out, "✓ Wrote %s\n", res.ManifestPath)
		return nil
	},
}

// pipelineOptions maps configuration onto a pipeline run.
func pipelineOptions(c *cfgpkg.Global) (pipeline.Options, error) {
	if err := c.Validate(); err != nil {
		return pipeline.Options{}, err
	}
	delim, err := dataset.ParseDelimiter(c.InputDelimiter)
	if err != nil {
		return pipeline.Options{}, err
	}
	opt := pipeline.DefaultOptions()
	opt.Delimiter = delim
	opt.OutputDir = c.OutputDir
	opt.Schema.Clusters = c.Clusters
	opt.Schema.Seed = c.Seed
	opt.MaxIter = c.MaxIter
	opt.NInit = c.NInit
	opt.Tol = c.Tolerance
	opt.Features = features.Options{
		ZeroVariance:    features.ZeroVariancePolicy(c.ZeroVariancePolicy),
		UnknownCategory: features.UnknownCategoryPolicy(c.UnknownCategoryPolicy),
	}
	return opt, nil
}

func init() {
	rootCmd.AddCommand(segmentCmd)
	segmentCmd.Flags().StringVarP(&segOutputDir, "output", "o", "", "directory for the output tables (default from config)")
	segmentCmd.Flags().IntVar(&segClusters, "clusters", 5, "number of clusters")
	segmentCmd.Flags().Int64Var(&segSeed, "seed", 23, "random seed for centroid initialization")
	segmentCmd.Flags().StringVar(&segDelimiter, "delimiter", "", "input delimiter: ',' | ';' | 'tab' (default by extension)")
	segmentCmd.Flags().IntVar(&segMaxIter, "max-iter", 300, "maximum k-means iterations per restart")
	segmentCmd.Flags().IntVar(&segNInit, "n-init", 1, "number of seeded k-means restarts")
	segmentCmd.Flags().StringVar(&segZeroVariance, "zero-variance", "zero", "constant feature policy: zero|fail")
	segmentCmd.Flags().StringVar(&segUnknownCategory, "unknown-category", "unknown", "unrecognized category policy: unknown|fail")
}
