package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jetsetgo/printdesk/internal/auth"
)

// readPassword is swapped out in tests
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as admin and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if username == "" {
				username, err = prompt(bufio.NewReader(cmd.InOrStdin()), out, "Username: ")
				if err != nil {
					return err
				}
			}
			fmt.Fprint(out, "Password: ")
			password, err := readPassword()
			fmt.Fprintln(out)
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			token, err := a.client.Login(cmd.Context(), username, string(password))
			if err != nil {
				return err
			}
			if err := a.tokens.Save(token); err != nil {
				return err
			}

			fmt.Fprintf(out, "Logged in as %s\n", username)
			if exp, ok := auth.Expiry(token); ok {
				fmt.Fprintf(out, "Session valid until %s\n", exp.Local().Format(time.DateTime))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "Admin username (prompted when empty)")
	return cmd
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			tok, err := a.tokens.Token()
			if errors.Is(err, auth.ErrNoToken) {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			if err := a.tokens.Clear(); err != nil {
				return err
			}

			if who := auth.Subject(tok); who != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "logged out %s\n", who)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			}
			return nil
		},
	}
}

func prompt(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
