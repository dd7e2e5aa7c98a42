package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewConversationsCommand creates the conversations command
func NewConversationsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "List or delete your chat conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listConversations(a, cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listConversations(a, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.client.DeleteConversation(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete conversation: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation %d\n", id)
			return nil
		},
	})

	return cmd
}

func listConversations(a *app, cmd *cobra.Command) error {
	if _, err := a.store.Require(); err != nil {
		return err
	}
	convs, err := a.client.ListConversations(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch conversations: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(convs) == 0 {
		fmt.Fprintln(out, "No conversations found")
		return nil
	}
	for _, c := range convs {
		fmt.Fprintf(out, "%d. %s (%s)\n", c.ID, c.Title, c.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
