package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/team-kosa-skynet/morningstar/internal/db"
	"github.com/team-kosa-skynet/morningstar/internal/history"
	"github.com/team-kosa-skynet/morningstar/internal/stream"
	"github.com/team-kosa-skynet/morningstar/internal/tui"
	"github.com/team-kosa-skynet/morningstar/pkg/models"
)

// NewChatCommand creates the chat command
func NewChatCommand(a *app) *cobra.Command {
	var (
		modelIDs []string
		plain    bool
	)

	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask several models the same question and compare the answers",
		Long: `chat opens a split view with one pane per model. Every question creates a new
conversation and streams all selected models at once; esc cancels every stream.

With --plain the question is sent once and the final answers are printed as markdown.`,
		Annotations: map[string]string{fullScreen: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := a.cfg.SelectModels(modelIDs)
			if err != nil {
				return fmt.Errorf("invalid --model: %w", err)
			}
			if _, err := a.store.Require(); err != nil {
				return err
			}

			question := strings.TrimSpace(strings.Join(args, " "))
			if plain {
				return a.runPlainChat(cmd, selected, question)
			}
			return a.runChatTUI(cmd, selected, question)
		},
	}

	cmd.Flags().StringSliceVarP(&modelIDs, "model", "m", nil, "Model id, or id:brand:Name (repeatable, default all configured)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print the final answers instead of opening the split view")
	return cmd
}

// chatSession wires the coordinator to the backend and the local history
type chatSession struct {
	ctrl     *stream.Controller
	recorder *history.Recorder
	conn     *sql.DB
}

func (a *app) openChat(interval time.Duration, onSettled func(stream.Generation)) (*chatSession, error) {
	conn, err := db.OpenDir(a.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	recorder := history.NewRecorder(conn, history.WithLogger(log.Logger))

	ctrl := stream.NewController(a.client.StreamChat(),
		stream.WithRevealInterval(interval),
		stream.WithLogger(log.Logger),
		stream.WithSettledHook(func(g stream.Generation) {
			recorder.Record(g)
			if onSettled != nil {
				onSettled(g)
			}
		}),
	)
	return &chatSession{ctrl: ctrl, recorder: recorder, conn: conn}, nil
}

// abort cancels the streams and drops history writes that have not landed yet
func (s *chatSession) abort() error {
	err := s.ctrl.CancelAll()
	s.recorder.CancelAll()
	return err
}

func (s *chatSession) Close() {
	s.ctrl.Close()
	s.recorder.Close()
	if err := s.conn.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close history")
	}
}

// submit creates the conversation of one question and starts every stream
func (a *app) submit(ctrl *stream.Controller, selected []models.ModelInfo) tui.SubmitFunc {
	return func(ctx context.Context, question string) error {
		token, err := a.store.Require()
		if err != nil {
			return err
		}
		if strings.TrimSpace(question) == "" {
			return stream.ErrEmptyQuestion
		}

		conv, err := a.client.CreateConversation(ctx, conversationTitle(question))
		if err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		return ctrl.Start(ctx, stream.Submission{
			ConversationID: conv.ID,
			Token:          token,
			Question:       question,
			Models:         selected,
		})
	}
}

func conversationTitle(question string) string {
	runes := []rune(strings.Join(strings.Fields(question), " "))
	if len(runes) > 40 {
		return string(runes[:40]) + "..."
	}
	return string(runes)
}

func (a *app) runChatTUI(cmd *cobra.Command, selected []models.ModelInfo, question string) error {
	session, err := a.openChat(a.cfg.RevealInterval, nil)
	if err != nil {
		return err
	}
	defer session.Close()

	return tui.Run(cmd.Context(), tui.Options{
		Coordinator: session.ctrl,
		Submit:      a.submit(session.ctrl, selected),
		Models:      selected,
		Question:    question,
		Render:      renderMarkdown,
	})
}

// runPlainChat sends one question and prints every answer once the generation
// has settled
func (a *app) runPlainChat(cmd *cobra.Command, selected []models.ModelInfo, question string) error {
	if question == "" {
		return fmt.Errorf("--plain needs a question argument")
	}

	settled := make(chan stream.Generation, 1)
	// no typing animation when nobody watches
	session, err := a.openChat(0, func(g stream.Generation) {
		select {
		case settled <- g:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var gen stream.Generation
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.submit(session.ctrl, selected)(egCtx, question)
	})
	eg.Go(func() error {
		select {
		case gen = <-settled:
			return nil
		case <-egCtx.Done():
			if ctx.Err() == nil {
				// submission failed; its error is reported by the group
				return nil
			}
			// an interrupted run is printed but not kept in history
			if err := session.abort(); err != nil {
				return err
			}
			// the hook has run by the time abort returns, if there was a generation
			select {
			case gen = <-settled:
			default:
			}
			return nil
		}
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	printGeneration(cmd.OutOrStdout(), gen)
	if ctx.Err() != nil {
		return errors.New("interrupted")
	}
	return nil
}

func printGeneration(out io.Writer, gen stream.Generation) {
	for i, s := range gen.Sessions {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "== %s [%s]\n", s.Model.Name, s.State)
		if s.Displayed != "" {
			rendered, err := renderMarkdown(s.Displayed, 80)
			if err != nil {
				rendered = s.Displayed + "\n"
			}
			fmt.Fprint(out, rendered)
		}
		if s.Err != "" {
			fmt.Fprintf(out, "error: %s\n", s.Err)
		}
	}
}

func renderMarkdown(text string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(text)
}
