package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/team-kosa-skynet/morningstar/internal/db"
	"github.com/team-kosa-skynet/morningstar/internal/history"
)

// NewHistoryCommand creates the history command
func NewHistoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse answers recorded by past chat sessions",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecorder(a, func(r *history.Recorder) error {
				entries, err := r.List(cmd.Context(), limit)
				if err != nil {
					return fmt.Errorf("failed to list history: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No history yet")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s  %s  %s\n", shortID(e.ID), e.CreatedAt.Format("2006-01-02 15:04"), conversationTitle(e.Question))
				}
				return nil
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Number of entries")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show every model's answer to one question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRecorder(a, func(r *history.Recorder) error {
				e, err := r.Get(cmd.Context(), args[0])
				if errors.Is(err, history.ErrNotFound) || errors.Is(err, history.ErrAmbiguous) {
					return fmt.Errorf("%s: %w", args[0], err)
				}
				if err != nil {
					return fmt.Errorf("failed to load history: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Q: %s\n", e.Question)
				fmt.Fprintf(out, "asked %s in conversation %d\n\n", e.CreatedAt.Format("2006-01-02 15:04"), e.ConversationID)
				for i, ans := range e.Answers {
					if i > 0 {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "== %s [%s]\n", ans.ModelName, ans.State)
					fmt.Fprintln(out, ans.Content)
					if ans.Err != "" {
						fmt.Fprintf(out, "error: %s\n", ans.Err)
					}
				}
				return nil
			})
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func withRecorder(a *app, fn func(*history.Recorder) error) error {
	conn, err := db.OpenDir(a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer conn.Close()

	r := history.NewRecorder(conn)
	defer r.Close()
	return fn(r)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
