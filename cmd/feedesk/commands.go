package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hostelhub/feeledger/internal/domain/models"
	"github.com/hostelhub/feeledger/internal/reconciler"
)

var (
	feesTab    string
	feesSearch string

	collectStudent int64
	collectAmount  string
	collectMode    string
	collectTxn     string
	collectNotes   string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show collection totals and progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := rec.Refresh(cmd.Context(), true); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(reconciler.Stats(rec.Snapshot())))
		return nil
	},
}

var feesCmd = &cobra.Command{
	Use:   "fees",
	Short: "List fee records by tab and name",
	Long: `Lists fee records in ledger order.

Tabs:
  all      every record
  unpaid   Pending and Overdue
  partial  Partially Paid
  paid     Fully Paid`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tab, ok := reconciler.ParseBucket(feesTab)
		if !ok {
			return fmt.Errorf("unknown tab %q", feesTab)
		}
		if err := rec.Refresh(cmd.Context(), true); err != nil {
			return err
		}

		view := rec.View(tab, feesSearch)
		if len(view.Fees) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No fee records found.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderFees(view.Fees))
		return nil
	},
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List payment modes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := rec.LoadPaymentModes(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderModes(rec.PaymentModes()))
		return nil
	},
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Record a payment against a student's monthly fee",
	Long: `Records a payment and prints the status the ledger reports afterwards.

Example:
  feedesk collect --student 1 --month 2026-02 --amount 3000 --mode upi --txn UPI-42`,
	RunE: runCollect,
}

func init() {
	feesCmd.Flags().StringVar(&feesTab, "tab", "all", "all, unpaid, partial or paid")
	feesCmd.Flags().StringVar(&feesSearch, "search", "", "case-insensitive name filter")

	collectCmd.Flags().Int64Var(&collectStudent, "student", 0, "student id")
	collectCmd.Flags().StringVar(&collectAmount, "amount", "", "amount collected (default: outstanding balance)")
	collectCmd.Flags().StringVar(&collectMode, "mode", "", "payment mode name or id (default: first mode)")
	collectCmd.Flags().StringVar(&collectTxn, "txn", "", "transaction reference")
	collectCmd.Flags().StringVar(&collectNotes, "notes", "", "free-form notes")
	_ = collectCmd.MarkFlagRequired("student")
}

func runCollect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if month == "" {
		return errors.New("--month is required to collect a payment")
	}
	if err := rec.Refresh(ctx, true); err != nil {
		return err
	}
	if err := rec.LoadPaymentModes(ctx); err != nil {
		return err
	}

	fee, ok := rec.Find(collectStudent, month)
	if !ok {
		return fmt.Errorf("no fee for student %d in %s", collectStudent, month)
	}
	if fee.IsPaid() {
		return fmt.Errorf("%s's fee for %s is already fully paid", fee.FullName(), models.MonthLabel(fee.FeeMonth))
	}

	draft := rec.Begin(fee)
	if collectAmount != "" {
		draft.AmountInput = collectAmount
	}
	if collectMode != "" {
		id, err := resolveMode(rec.PaymentModes(), collectMode)
		if err != nil {
			return err
		}
		draft.PaymentModeID = id
	}
	draft.TransactionID = collectTxn
	draft.Notes = collectNotes

	outcome, err := rec.CollectPayment(ctx, draft)
	if err != nil {
		return errors.New(reconciler.UserMessage(err))
	}

	fmt.Fprintf(out, "Recorded %s for %s (%s).\n",
		models.FormatMoney(outcome.Receipt.Payment.Amount), fee.FullName(), models.MonthLabel(fee.FeeMonth))
	if !outcome.Refreshed {
		fmt.Fprintln(out, "Could not reload the ledger; run `feedesk fees` to see the updated status.")
		return nil
	}
	fmt.Fprintf(out, "Status: %s, balance %s\n", outcome.Fee.FeeStatus, models.FormatMoney(outcome.Fee.Balance))
	return nil
}

// resolveMode accepts a payment mode id or its name in any case.
func resolveMode(modes []models.PaymentMode, value string) (int64, error) {
	value = strings.TrimSpace(value)
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		for _, m := range modes {
			if m.ID == id {
				return id, nil
			}
		}
	}
	for _, m := range modes {
		if strings.EqualFold(m.Name, value) {
			return m.ID, nil
		}
	}

	names := make([]string, 0, len(modes))
	for _, m := range modes {
		names = append(names, m.Name)
	}
	return 0, fmt.Errorf("unknown payment mode %q (have: %s)", value, strings.Join(names, ", "))
}
