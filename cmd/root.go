package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/dssatview/internal/config"
	"github.com/KaramelBytes/dssatview/internal/telemetry"
)

var (
	// Global flags
	cfgFile   string
	debug     bool
	jsonOut   bool
	showStats bool

	// Loaded configuration
	cfg *cfgpkg.Global
	// Process-wide instrumentation, dumped by --stats
	stats *telemetry.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "dssatview",
	Short: "dssatview: compare DSSAT simulations with observed data",
	Long: `dssatview reads DSSAT model outputs and experiment observations, aligns them
by treatment and date, scales them for display and scores their agreement
(RMSE, R², d-stat). Results are cached per query and named selections can be
saved as views.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if showStats {
			return stats.Dump(cmd.ErrOrStderr())
		}
		return nil
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.dssatview/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "print pipeline counters and timings to stderr")
}

func loadConfig() {
	stats = telemetry.New()
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands that need config report it themselves
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c
	if debug {
		cfg.LogLevel = "debug"
	}
}
