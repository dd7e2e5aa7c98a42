package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewBoardCommand creates the board command
func NewBoardCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Read and write board posts",
	}

	var page int
	list := &cobra.Command{
		Use:   "list",
		Short: "List board posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.client.ListBoards(cmd.Context(), page)
			if err != nil {
				return fmt.Errorf("failed to fetch boards: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(res.Boards) == 0 {
				fmt.Fprintln(out, "No posts found")
				return nil
			}
			for _, b := range res.Boards {
				fmt.Fprintf(out, "%d. %s\n", b.ID, b.Title)
				fmt.Fprintf(out, "   by %s on %s, %d views, %d likes, %d comments\n",
					b.Writer, b.CreatedAt.Local().Format("2006-01-02 15:04"), b.ViewCount, b.LikeCount, b.CommentCount)
			}
			fmt.Fprintf(out, "\nPage %d of %d\n", res.Page+1, res.TotalPages)
			return nil
		},
	}
	list.Flags().IntVar(&page, "page", 0, "Page number, starting at 0")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a post with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			b, err := a.client.GetBoard(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to fetch post: %w", err)
			}
			comments, err := a.client.ListComments(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to fetch comments: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", b.Title)
			fmt.Fprintf(out, "by %s on %s\n\n", b.Writer, b.CreatedAt.Local().Format("2006-01-02 15:04"))
			if rendered, err := renderMarkdown(b.Content, 80); err == nil {
				fmt.Fprint(out, rendered)
			} else {
				fmt.Fprintln(out, b.Content)
			}
			fmt.Fprintf(out, "\nComments (%d)\n", len(comments))
			for _, c := range comments {
				fmt.Fprintf(out, "  [%d] %s: %s\n", c.ID, c.Writer, c.Content)
			}
			return nil
		},
	}

	var title, content string
	post := &cobra.Command{
		Use:   "post",
		Short: "Publish a post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.store.Require(); err != nil {
				return err
			}
			if title == "" || content == "" {
				return fmt.Errorf("--title and --content are required")
			}
			b, err := a.client.CreateBoard(cmd.Context(), title, content)
			if err != nil {
				return fmt.Errorf("failed to publish post: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published post %d\n", b.ID)
			return nil
		},
	}
	post.Flags().StringVar(&title, "title", "", "Post title")
	post.Flags().StringVar(&content, "content", "", "Post content (markdown)")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.store.Require(); err != nil {
				return err
			}
			if err := a.client.DeleteBoard(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete post: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted post %d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, show, post, del)
	return cmd
}

// NewCommentsCommand creates the comments command
func NewCommentsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Manage comments on board posts",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <board-id>",
		Short: "List the comments of a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			comments, err := a.client.ListComments(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to fetch comments: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(comments) == 0 {
				fmt.Fprintln(out, "No comments yet")
				return nil
			}
			for _, c := range comments {
				fmt.Fprintf(out, "[%d] %s: %s\n", c.ID, c.Writer, c.Content)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <board-id> <content>",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.store.Require(); err != nil {
				return err
			}
			c, err := a.client.CreateComment(cmd.Context(), id, joinArgs(args[1:]))
			if err != nil {
				return fmt.Errorf("failed to add comment: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added comment %d\n", c.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <comment-id>",
		Short: "Delete one of your comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.store.Require(); err != nil {
				return err
			}
			if err := a.client.DeleteComment(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to delete comment: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted comment %d\n", id)
			return nil
		},
	})

	return cmd
}
