package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/team-kosa-skynet/morningstar/internal/devserver"
)

// NewDevServerCommand creates the dev-server command
func NewDevServerCommand(a *app) *cobra.Command {
	var (
		addr  string
		delay = devserver.DefaultChunkDelay
	)

	cmd := &cobra.Command{
		Use:   "dev-server",
		Short: "Run a local stand-in backend with scripted model replies",
		Long: `dev-server serves every endpoint the client uses from memory. Log in with
` + devserver.DemoEmail + ` / ` + devserver.DemoPassword + `.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := devserver.New(
				devserver.WithChunkDelay(delay),
				devserver.WithLogger(log.Logger),
			)
			return srv.Run(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().DurationVar(&delay, "chunk-delay", delay, "Pause between streamed chunks")
	return cmd
}
