package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/team-kosa-skynet/morningstar/internal/api"
	"github.com/team-kosa-skynet/morningstar/internal/auth"
	"github.com/team-kosa-skynet/morningstar/internal/config"
	"github.com/team-kosa-skynet/morningstar/internal/logging"
)

// annotation marking commands that take over the terminal
const fullScreen = "full-screen"

// app carries what every subcommand needs once flags are parsed
type app struct {
	v         *viper.Viper
	cfg       *config.Config
	store     *auth.Store
	client    *api.Client
	logCloser io.Closer
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newApp().rootCommand()
}

func newApp() *app {
	return &app{v: viper.New()}
}

func (a *app) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "morningstar",
		Short: "Terminal client for the developer community portal",
		Long: `morningstar talks to the developer community portal: compare chat models side by side,
read and write board posts, browse news, jobs and the leaderboard.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("base-url", "", "Backend address (default http://localhost:8080)")
	flags.String("data-dir", "", "Directory for credentials, config.toml and history (default ~/.morningstar)")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	for key, flag := range map[string]string{
		"base_url":  "base-url",
		"data_dir":  "data-dir",
		"log_level": "log-level",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(NewChatCommand(a))
	rootCmd.AddCommand(NewLoginCommand(a))
	rootCmd.AddCommand(NewSignupCommand(a))
	rootCmd.AddCommand(NewLogoutCommand(a))
	rootCmd.AddCommand(NewWhoamiCommand(a))
	rootCmd.AddCommand(NewConversationsCommand(a))
	rootCmd.AddCommand(NewBoardCommand(a))
	rootCmd.AddCommand(NewCommentsCommand(a))
	rootCmd.AddCommand(NewNewsCommand(a))
	rootCmd.AddCommand(NewJobsCommand(a))
	rootCmd.AddCommand(NewLeaderboardCommand(a))
	rootCmd.AddCommand(NewPaymentCommand(a))
	rootCmd.AddCommand(NewHistoryCommand(a))
	rootCmd.AddCommand(NewDevServerCommand(a))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	a := newApp()
	err := a.rootCommand().Execute()
	// cobra skips PersistentPostRunE when RunE fails
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	if cmd.Annotations[fullScreen] == "true" && !plainMode(cmd) {
		closer, err := logging.SetupFile(cfg.LogLevel, cfg.LogFile)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		a.logCloser = closer
	} else if err := logging.Setup(cfg.LogLevel, cmd.ErrOrStderr()); err != nil {
		return err
	}

	a.store = auth.NewStore(cfg.DataDir)
	if err := a.store.Load(); err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	a.client = api.New(cfg.BaseURL,
		api.WithTokenSource(a.store),
		api.WithRateLimit(cfg.RequestsPerSecond, burst(cfg.RequestsPerSecond)),
		api.WithLogger(log.Logger),
		api.OnUnauthorized(func() {
			log.Warn().Msg("session rejected by the backend, logging out")
			if err := a.store.Clear(); err != nil {
				log.Error().Err(err).Msg("failed to clear credentials")
			}
		}),
	)

	log.Debug().
		Str("base_url", cfg.BaseURL).
		Str("data_dir", cfg.DataDir).
		Str("command", cmd.CommandPath()).
		Msg("configured")
	return nil
}

func (a *app) teardown(cmd *cobra.Command, args []string) error {
	return a.close()
}

// close releases the log file; safe to call more than once
func (a *app) close() error {
	if a.logCloser == nil {
		return nil
	}
	err := a.logCloser.Close()
	a.logCloser = nil
	return err
}

func burst(rps float64) int {
	if rps < 1 {
		return 1
	}
	return int(rps)
}

func plainMode(cmd *cobra.Command) bool {
	plain, err := cmd.Flags().GetBool("plain")
	return err == nil && plain
}
