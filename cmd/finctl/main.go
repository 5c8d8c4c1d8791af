// Command finctl runs the engine's maintenance jobs against the configured store:
// full recalculation, commitment reconciliation and outbox draining.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"buildledger/internal/app"
	"buildledger/internal/config"
	"buildledger/internal/logging"
)

var (
	flagQuiet bool
	flagJSON  bool
)

var rootCmd = &cobra.Command{
	Use:           "finctl",
	Short:         "Project finance maintenance CLI",
	Long:          "Recalculate derived totals, reconcile commitments and drain the recalculation outbox.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(recalcCmd, reconcileCmd, outboxCmd, summaryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %s\n", err)
		os.Exit(1)
	}
}

// openApp loads configuration the same way the API server does.
func openApp() (*app.App, logrus.FieldLogger, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if flagQuiet {
		level = "warn"
	}
	logging.Init(logging.Options{Service: "finctl", Level: level, File: cfg.LogFile})
	log := logging.Logger.WithField("service", "finctl")

	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}
