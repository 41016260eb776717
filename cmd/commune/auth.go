package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/communehq/commune/internal/cli/credentials"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginEmail string
	loginCode  string

	stdin = bufio.NewReader(os.Stdin)
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store a session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		email := loginEmail
		if email == "" {
			var err error
			if email, err = prompt("Email: "); err != nil {
				return err
			}
		}
		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}

		resp, err := cli.client.Login(cmd.Context(), email, password, loginCode)
		if err != nil {
			return err
		}
		creds := &credentials.Credentials{
			Token:     resp.Token,
			ExpiresAt: resp.ExpiresAt,
			UserID:    resp.User.ID,
			Username:  resp.User.Username,
			IsAdmin:   resp.User.IsAdmin,
		}
		if err := credentials.Save(cli.cfg.CredentialsPath(), creds); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}
		cli.log.Info("Logged in", "user", resp.User.Username)
		cli.out.Success("Logged in as @%s", resp.User.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credentials.Delete(cli.cfg.CredentialsPath()); err != nil {
			return err
		}
		cli.out.Success("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.requireLogin(); err != nil {
			return err
		}
		me, err := cli.client.Me(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return cli.out.JSON(me)
		}
		cli.out.Info("@%s (%s)", me.Username, me.DisplayName)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginCode, "code", "", "two-factor code, if enabled")
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	line, err := stdin.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// promptPassword reads without echo on a terminal and falls back to a plain
// line read when stdin is piped.
func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt("")
	}
	fmt.Print(label)
	pw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
