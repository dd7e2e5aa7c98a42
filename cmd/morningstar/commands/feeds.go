package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewNewsCommand creates the news command
func NewNewsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "news",
		Short: "Show aggregated developer news",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			news, err := a.client.ListNews(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch news: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(news) == 0 {
				fmt.Fprintln(out, "No news found")
				return nil
			}
			for i, n := range news {
				fmt.Fprintf(out, "%d. %s\n", i+1, n.Title)
				fmt.Fprintf(out, "   %s, %s\n", n.Source, n.PublishedAt.Local().Format("2006-01-02"))
				fmt.Fprintf(out, "   %s\n", n.URL)
			}
			return nil
		},
	}
}

// NewJobsCommand creates the jobs command
func NewJobsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "Show job listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := a.client.ListJobs(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No jobs found")
				return nil
			}
			for i, j := range jobs {
				fmt.Fprintf(out, "%d. %s at %s (%s)\n", i+1, j.Title, j.Company, j.Location)
				fmt.Fprintf(out, "   apply by %s: %s\n", j.Deadline.Local().Format("2006-01-02"), j.URL)
			}
			return nil
		},
	}
}

// NewLeaderboardCommand creates the leaderboard command
func NewLeaderboardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the member ranking by points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := a.client.Leaderboard(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch leaderboard: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				fmt.Fprintf(out, "%3d. %-20s %6d pts\n", e.Rank, e.Nickname, e.Point)
			}
			return nil
		},
	}
}

// NewPaymentCommand creates the payment command
func NewPaymentCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Buy points",
	}

	var (
		item   string
		amount int
	)
	ready := &cobra.Command{
		Use:   "ready",
		Short: "Prepare a point purchase and print the payment page address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.store.Require(); err != nil {
				return err
			}
			if amount <= 0 {
				return fmt.Errorf("--amount must be positive")
			}
			res, err := a.client.ReadyPayment(cmd.Context(), item, amount)
			if err != nil {
				return fmt.Errorf("failed to prepare payment: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Transaction: %s\n", res.TID)
			fmt.Fprintf(out, "Open to pay: %s\n", res.RedirectURL)
			return nil
		},
	}
	ready.Flags().StringVar(&item, "item", "points", "Item name")
	ready.Flags().IntVar(&amount, "amount", 0, "Total amount")

	cmd.AddCommand(ready)
	return cmd
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
