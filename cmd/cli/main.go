package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/expensor/approvals/internal/infrastructure/seed"
)

type options struct {
	baseURL string
	token   string
	timeout time.Duration
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "expensectl",
		Short:         "Expense approvals CLI tool",
		Long:          `A command line interface for reviewing and deciding expenses through the approvals API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("APPROVALS_URL", "http://localhost:8080"), "Base URL of the approvals API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("APPROVALS_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(expenseCmd(opts), notificationsCmd(opts), seedCmd())

	return rootCmd
}

func (o *options) client() *apiClient {
	return newAPIClient(o.baseURL, o.token, o.timeout)
}

func expenseCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expense",
		Short: "Expense operations",
	}

	getCmd := &cobra.Command{
		Use:   "get <expense-id>",
		Short: "Show one expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.client().getExpense(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.client().listExpenses(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of expenses")
	listCmd.Flags().IntVar(&offset, "offset", 0, "Number of expenses to skip")

	cmd.AddCommand(getCmd, listCmd,
		decisionCmd(opts, "approve", "Approved", "Approve a pending expense", false),
		decisionCmd(opts, "decline", "Declined", "Decline a pending expense", true),
	)
	return cmd
}

func decisionCmd(opts *options, use, status, short string, reasonRequired bool) *cobra.Command {
	var reason, key string

	cmd := &cobra.Command{
		Use:   use + " <expense-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.client().transition(cmd.Context(), args[0], status, reason, key)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason forwarded to the employee")
	cmd.Flags().StringVar(&key, "idempotency-key", "", "Idempotency-Key header for safe retries")
	if reasonRequired {
		_ = cmd.MarkFlagRequired("reason")
	}
	return cmd
}

func notificationsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Notification outbox operations",
	}

	var limit int
	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List undelivered notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.client().pendingNotifications(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
	pendingCmd.Flags().IntVar(&limit, "limit", 100, "Maximum number of notifications")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-send undelivered notifications now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := opts.client().replayNotifications(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}

	cmd.AddCommand(pendingCmd, replayCmd)
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed data helpers",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sample",
		Short: "Print a sample SEED_FILE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(seed.Sample())
			return err
		},
	})
	return cmd
}

// printJSON pretty-prints a JSON response body.
func printJSON(w io.Writer, raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
