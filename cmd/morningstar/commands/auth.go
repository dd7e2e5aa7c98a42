package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/team-kosa-skynet/morningstar/internal/api"
)

// NewLoginCommand creates the login command
func NewLoginCommand(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		Long: `Log in with email and password. The password is read from stdin when --password
is omitted. The token is stored in credentials.toml in the data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			if password == "" {
				var err error
				fmt.Fprint(cmd.OutOrStdout(), "Password: ")
				if password, err = readLine(cmd); err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}

			res, err := a.client.Login(cmd.Context(), email, password)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := a.store.Save(res.Token, res.Member); err != nil {
				return fmt.Errorf("failed to store credentials: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", res.Member.Nickname, res.Member.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	return cmd
}

// NewSignupCommand creates the signup command
func NewSignupCommand(a *app) *cobra.Command {
	var req api.SignupRequest

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Email == "" || req.Password == "" || req.Nickname == "" {
				return fmt.Errorf("--email, --password and --nickname are required")
			}
			if err := a.client.Signup(cmd.Context(), req); err != nil {
				return fmt.Errorf("signup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Account %s created, run `morningstar login --email %s`\n", req.Nickname, req.Email)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "Account password (at least 6 characters)")
	cmd.Flags().StringVar(&req.Nickname, "nickname", "", "Public nickname")
	return cmd
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.Clear(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged out, removed %s\n", a.store.Path())
			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command
func NewWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.store.Require(); err != nil {
				return err
			}
			me, err := a.client.Me(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch profile: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Nickname: %s\n", me.Nickname)
			fmt.Fprintf(out, "Email:    %s\n", me.Email)
			fmt.Fprintf(out, "Points:   %d\n", me.Point)
			fmt.Fprintf(out, "Server:   %s\n", a.client.BaseURL())
			return nil
		},
	}
}

func readLine(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
