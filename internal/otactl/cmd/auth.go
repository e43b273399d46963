package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/otafleet/otafleet/client"
	"github.com/otafleet/otafleet/internal/otactl/output"
)

var loginRememberMe bool

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Authenticate against the server",
	Long: `Authenticate with an operator account and store the session.

The password is read from the OTAFLEET_PASSWORD environment variable
or prompted for interactively.

Example:
  otactl login admin@otafleet.local`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		password := os.Getenv("OTAFLEET_PASSWORD")
		if password == "" {
			fmt.Fprint(os.Stderr, "Password: ")
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(raw)
		}

		session := client.NewSession(c)
		user, err := session.Login(cmd.Context(), args[0], password, loginRememberMe)
		if err != nil {
			return err
		}

		output.Success(fmt.Sprintf("Logged in as %s (%s)", user.Name, user.Role))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		client.NewSession(c).Logout(cmd.Context())
		output.Success("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the authenticated account",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}

		session := client.NewSession(c)
		if err := session.Init(cmd.Context()); err != nil {
			return err
		}
		user := session.CurrentUser()
		if user == nil {
			return fmt.Errorf("not logged in")
		}

		return output.Print(getOutputFormat(), user, func() {
			output.PrintTable(
				[]string{"NAME", "EMAIL", "ROLE", "STATUS"},
				[][]string{{user.Name, user.Email, user.Role, user.Status}},
			)
		})
	},
}

func init() {
	loginCmd.Flags().BoolVar(&loginRememberMe, "remember-me", false, "request a long-lived session")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
