package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/clinical-docs/internal/common"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printErr("docagent: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "docagent",
		Short:         "Turn clinical PDFs into FHIR resources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ledgerCmd())
	return rootCmd
}

// loadConfig loads and validates configuration, then installs the JSON logger.
// Logs go to stderr so stdout stays free for command output.
func loadConfig() (*common.Config, *slog.Logger, error) {
	return loadConfigWith(true)
}

func loadConfigWith(validate bool) (*common.Config, *slog.Logger, error) {
	cfg := common.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if !validate {
		return cfg, logger, nil
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config.invalid", "error", err)
		return nil, nil, err
	}
	return cfg, logger, nil
}

func printErr(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}
