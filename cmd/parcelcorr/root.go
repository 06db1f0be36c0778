package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	parcelcorr "github.com/hupe1980/parcelcorr"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configFile string
	logLevel   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "parcelcorr",
	Short: "Parcel-level similarity statistics for task fMRI contrasts",
	Long: `parcelcorr extracts parcel-level voxel records from effect size images,
computes within-subject, between-subject and across-construct similarity,
classifies parcels as canonical, indiv_fingerprint or variable, and writes
snapshots, manifests and CSV reports.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("parcelcorr version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"Config file with flag defaults (any format viper reads)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"Log format: text or json")
}

// bindConfig overlays the optional config file and PARCELCORR_* env
// vars onto the command's flags. Precedence: flag > env > config file.
func bindConfig(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("PARCELCORR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || !v.IsSet(f.Name) {
			return
		}

		var err error
		switch val := v.Get(f.Name).(type) {
		case []any:
			parts := make([]string, len(val))
			for i, item := range val {
				parts[i] = fmt.Sprintf("%v", item)
			}
			err = cmd.Flags().Set(f.Name, strings.Join(parts, ","))
		default:
			err = cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val))
		}
		if err != nil && bindErr == nil {
			bindErr = fmt.Errorf("bind %s: %w", f.Name, err)
		}
	})

	return bindErr
}

func newLogger() (*parcelcorr.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", logLevel, err)
	}

	switch logFormat {
	case "json":
		return parcelcorr.NewJSONLogger(level), nil
	case "text":
		return parcelcorr.NewTextLogger(level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", logFormat)
	}
}
