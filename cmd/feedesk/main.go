// Command feedesk is the warden's terminal client for collecting hostel fees
// against the ledger API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hostelhub/feeledger/internal/config"
	"github.com/hostelhub/feeledger/internal/domain/models"
	"github.com/hostelhub/feeledger/internal/reconciler"
	"github.com/hostelhub/feeledger/pkg/clients/ledger"
	applog "github.com/hostelhub/feeledger/pkg/logger"
)

var (
	envFile  string
	hostelID int64
	month    string
	verbose  bool

	logger *zap.Logger
	rec    *reconciler.Reconciler
)

var rootCmd = &cobra.Command{
	Use:   "feedesk",
	Short: "Collect hostel fees from the terminal",
	Long: `feedesk talks to the fee ledger API on behalf of one hostel.

Configuration comes from the environment (or --env):
  LEDGER_BASE_URL    ledger API address, e.g. http://localhost:8080
  LEDGER_HOSTEL_ID   hostel to act on (overridden by --hostel)
  LEDGER_API_TOKEN   bearer token, when the ledger requires one`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "path to a .env file")
	rootCmd.PersistentFlags().Int64Var(&hostelID, "hostel", 0, "hostel id (defaults to LEDGER_HOSTEL_ID)")
	rootCmd.PersistentFlags().StringVar(&month, "month", "", "billing month YYYY-MM (default: all months)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")

	rootCmd.AddCommand(summaryCmd, feesCmd, modesCmd, collectCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if hostelID > 0 {
		cfg.Ledger.HostelID = hostelID
	}
	if err := cfg.ValidateClient(); err != nil {
		return err
	}

	level := ""
	if verbose {
		level = "debug"
	}
	logger, err = applog.NewConsole(level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	session := models.Session{HostelID: cfg.Ledger.HostelID, Token: cfg.Ledger.Token}
	rec = reconciler.New(ledger.NewClient(cfg.Ledger, session), session, logger.Named("reconciler"))
	rec.SetMonth(month)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
