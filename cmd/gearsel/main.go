// Command gearsel normalizes equipment catalogs, builds the persisted catalog
// and selects gearbox, coupling and pump packages.
package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gearsel/internal/config"
	"gearsel/internal/observability"
)

var (
	cfgFile string
	verbose bool

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "gearsel",
	Short:         "Marine gearbox catalog and selection tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			c.Log.Level = "debug"
		}
		cfg = c
		log = observability.WithOperation(observability.NewLogger(cfg.Log), cmd.Name())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		l := log
		if cfg == nil {
			l = zerolog.New(os.Stderr)
		}
		l.Error().Err(err).Msg("gearsel failed")
		os.Exit(1)
	}
}
