package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rishis123/backend-dev3/internal/ledger"
)

var (
	dbURL   string
	userID  int64
	outPath string
)

var rootCmd = &cobra.Command{
	Use:   "ledger-admin",
	Short: "Operational tooling for the payment ledger",
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export a user's transactions to CSV",
	Long: `Export every transaction a user participates in, as sender or
receiver, to a CSV file.

Examples:
  ledger-admin report --db postgres://localhost/ledger --user 42
  ledger-admin report --db $DATABASE_URL --user 42 --out alice.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport()
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&dbURL, "db", os.Getenv("DATABASE_URL"), "Database connection URL")
	reportCmd.Flags().Int64Var(&userID, "user", 0, "User id (required)")
	reportCmd.Flags().StringVar(&outPath, "out", "", "Output file (default user_<id>_report.csv)")
	reportCmd.MarkFlagRequired("user")
}

func runReport() error {
	if dbURL == "" {
		return fmt.Errorf("--db flag or DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := ledger.Connect(ctx, dbURL)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	balance, err := store.GetBalance(ctx, userID)
	if err != nil {
		return err
	}
	txns, err := store.ListTransactionsForUser(ctx, userID)
	if err != nil {
		return err
	}

	fileName := outPath
	if fileName == "" {
		fileName = fmt.Sprintf("user_%d_report.csv", userID)
	}
	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{"ID", "Timestamp", "SenderID", "ReceiverID", "Amount", "Decision", "Message"}); err != nil {
		return err
	}

	for _, txn := range txns {
		record := []string{
			strconv.FormatInt(txn.ID, 10),
			txn.Timestamp.Format(time.RFC3339),
			strconv.FormatInt(txn.SenderID, 10),
			strconv.FormatInt(txn.ReceiverID, 10),
			strconv.FormatInt(txn.Amount, 10),
			txn.Accepted.String(),
			txn.Message,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	fmt.Printf("Exported %d transactions for %s (@%s, balance %d) to %s\n",
		len(txns), user.Name, user.Username, balance, fileName)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
