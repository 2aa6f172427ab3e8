package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/subseg-cli/internal/artifact"
	"github.com/KaramelBytes/subseg-cli/internal/profile"
	"github.com/KaramelBytes/subseg-cli/internal/report"
	"github.com/KaramelBytes/subseg-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	profClusters   []int
	profRadarPath  string
	profOutputPath string
)

var profileCmd = &cobra.Command{
	Use:   "profile <dashboard.csv>",
	Short: "Describe selected clusters against the whole subscriber base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := artifact.ReadDashboard(args[0])
		if err != nil {
			return err
		}
		var radar []profile.RadarRow
		if profRadarPath != "" {
			if radar, err = artifact.ReadRadar(profRadarPath); err != nil {
				return err
			}
		}
		rep, err := report.Build(d, profClusters, radar)
		if err != nil {
			return err
		}
		rep.Name = filepath.Base(args[0])
		md := rep.Markdown()

		if profOutputPath != "" {
			if err := utils.SafeWriteFile(profOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", profOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().IntSliceVarP(&profClusters, "cluster", "c", nil, "cluster label to include (repeatable; default all)")
	profileCmd.Flags().StringVar(&profRadarPath, "radar", "", "radar table to include in the report")
	profileCmd.Flags().StringVarP(&profOutputPath, "output", "o", "", "optional path to write the report")
}
