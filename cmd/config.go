package cmd

import (
	"fmt"
	"strconv"

	cfgpkg "github.com/KaramelBytes/subseg-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set subseg configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		out := cmd.OutOrStdout()
		delim := c.InputDelimiter
		if delim == "" {
			delim = "auto"
		}
		fmt.Fprintf(out, "input_delimiter: %s\n", delim)
		fmt.Fprintf(out, "output_dir: %s\n", c.OutputDir)
		fmt.Fprintf(out, "clusters: %d\n", c.Clusters)
		fmt.Fprintf(out, "seed: %d\n", c.Seed)
		fmt.Fprintf(out, "max_iter: %d\n", c.MaxIter)
		fmt.Fprintf(out, "n_init: %d\n", c.NInit)
		fmt.Fprintf(out, "tolerance: %g\n", c.Tolerance)
		fmt.Fprintf(out, "zero_variance_policy: %s\n", c.ZeroVariancePolicy)
		fmt.Fprintf(out, "unknown_category_policy: %s\n", c.UnknownCategoryPolicy)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c := *currentConfig()
		switch key {
		case "input_delimiter":
			if val == "auto" {
				val = ""
			}
			c.InputDelimiter = val
		case "output_dir":
			c.OutputDir = val
		case "clusters", "max_iter", "n_init":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for %s: %w", key, err)
			}
			switch key {
			case "clusters":
				c.Clusters = i
			case "max_iter":
				c.MaxIter = i
			default:
				c.NInit = i
			}
		case "seed":
			i, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for seed: %w", err)
			}
			c.Seed = i
		case "tolerance":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for tolerance: %w", err)
			}
			c.Tolerance = f
		case "zero_variance_policy":
			c.ZeroVariancePolicy = val
		case "unknown_category_policy":
			c.UnknownCategoryPolicy = val
		case "log_level":
			c.LogLevel = val
		case "log_format":
			c.LogFormat = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&c, cfgFile); err != nil {
			return err
		}
		cfg = &c
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
