package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"tweetqueue/internal/ipc"
)

func newSessionCommands(ctx *commandContext) []*cobra.Command {
	var passwordStdin bool
	loginCmd := &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and store a session token in the daemon",
		Long: "Log in with a username and password. The password is read from the terminal\n" +
			"without echo, or from the first line of stdin when --password-stdin is set\n" +
			"or stdin is not a terminal.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader := bufio.NewReader(cmd.InOrStdin())
			username := ""
			if len(args) == 1 {
				username = strings.TrimSpace(args[0])
			}
			if username == "" {
				if cfg := ctx.configValue(); cfg != nil {
					username = cfg.Identity.Username
				}
			}
			if username == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Username: ")
				line, err := readLine(reader)
				if err != nil {
					return fmt.Errorf("read username: %w", err)
				}
				username = line
			}
			password, err := readPassword(cmd, reader, passwordStdin)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				view, err := client.Login(username, password)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, view, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", view.UserID)
					if view.ExpiresAt != "" {
						fmt.Fprintf(cmd.OutOrStdout(), "Session expires at %s\n", view.ExpiresAt)
					}
				})
			})
		},
	}
	loginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				view, err := client.Logout()
				if err != nil {
					return err
				}
				return ctx.emit(cmd, view, func() {
					fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				})
			})
		},
	}

	whoamiCmd := &cobra.Command{
		Use:     "whoami",
		Aliases: []string{"session"},
		Short:   "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				view, err := client.Session()
				if err != nil {
					return err
				}
				return ctx.emit(cmd, view, func() {
					out := cmd.OutOrStdout()
					fmt.Fprintln(out, renderStatusLine("Session", sessionStatusKind(view.Status), describeSession(*view), shouldColorize(out)))
				})
			})
		},
	}

	return []*cobra.Command{loginCmd, logoutCmd, whoamiCmd}
}

func readPassword(cmd *cobra.Command, reader *bufio.Reader, fromStdin bool) (string, error) {
	if !fromStdin {
		if file, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			secret, err := term.ReadPassword(int(file.Fd()))
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return "", fmt.Errorf("read password: %w", err)
			}
			return string(secret), nil
		}
	}
	line, err := readLine(reader)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return line, nil
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
