package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hospitalhub/accessgate/internal/cliconfig"
)

var (
	flagUsername      string
	flagPasswordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in as an access code administrator",
	Long: `Sign in with an administrator account and store the session token.

  accessctl login --username admin
  echo "$PW" | accessctl login --username admin --password-stdin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)

		username := flagUsername
		if username == "" {
			fmt.Print("Username: ")
			line, _ := reader.ReadString('\n')
			username = strings.TrimSpace(line)
		}
		if !flagPasswordStdin {
			fmt.Print("Password: ")
		}
		line, _ := reader.ReadString('\n')
		password := strings.TrimRight(line, "\r\n")

		if username == "" || password == "" {
			return fmt.Errorf("username and password are required")
		}

		token, err := apiClient.Login(cmd.Context(), username, password)
		if err != nil {
			return describe("login", err)
		}

		cfg.Token = token
		if err := cliconfig.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Logged in as %s\n", username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the administrator session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.HasToken() {
			if err := apiClient.Logout(cmd.Context()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: server logout failed: %v\n", err)
			}
		}
		cfg.Token = ""
		if err := cliconfig.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in administrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		username, err := apiClient.Me(cmd.Context())
		if err != nil {
			return describe("fetching session", err)
		}
		if flagJSON {
			printJSON(map[string]string{"username": username})
			return nil
		}
		fmt.Println(username)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&flagUsername, "username", "u", "", "Administrator username")
	loginCmd.Flags().BoolVar(&flagPasswordStdin, "password-stdin", false, "Read the password from stdin without prompting")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}
