package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Input/output
	InputDelimiter string `mapstructure:"input_delimiter" yaml:"input_delimiter" validate:"omitempty,oneof=0x2C ; tab"`
	OutputDir      string `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`

	// Segmentation
	Clusters  int     `mapstructure:"clusters" yaml:"clusters" validate:"min=1,max=50"`
	Seed      int64   `mapstructure:"seed" yaml:"seed"`
	MaxIter   int     `mapstructure:"max_iter" yaml:"max_iter" validate:"min=1"`
	NInit     int     `mapstructure:"n_init" yaml:"n_init" validate:"min=1"`
	Tolerance float64 `mapstructure:"tolerance" yaml:"tolerance" validate:"min=0"`

	// Encoding edge-case policies
	ZeroVariancePolicy    string `mapstructure:"zero_variance_policy" yaml:"zero_variance_policy" validate:"oneof=zero fail"`
	UnknownCategoryPolicy string `mapstructure:"unknown_category_policy" yaml:"unknown_category_policy" validate:"oneof=unknown fail"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn error disabled"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and enumerations.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Defaults returns the built-in configuration: five clusters, seed 23,
// artifacts in the working directory.
func Defaults() *Global {
	return &Global{
		OutputDir:             ".",
		Clusters:              5,
		Seed:                  23,
		MaxIter:               300,
		NInit:                 1,
		Tolerance:             1e-8,
		ZeroVariancePolicy:    "zero",
		UnknownCategoryPolicy: "unknown",
		LogLevel:              "info",
		LogFormat:             "console",
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".subseg"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.subseg/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (SUBSEG_*, optionally from ./.env) > config file > defaults.
// Command-line flags are applied on top by the caller.
func Load(cfgFile string) (*Global, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SUBSEG")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("input_delimiter", d.InputDelimiter)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("clusters", d.Clusters)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("max_iter", d.MaxIter)
	v.SetDefault("n_init", d.NInit)
	v.SetDefault("tolerance", d.Tolerance)
	v.SetDefault("zero_variance_policy", d.ZeroVariancePolicy)
	v.SetDefault("unknown_category_policy", d.UnknownCategoryPolicy)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
