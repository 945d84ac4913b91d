package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newInitCmd(app *App) *cobra.Command {
	var (
		userID   int64
		endpoint string
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Store credentials for the remote library",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == 0 {
				return fmt.Errorf("--user is required")
			}
			key, err := promptSecret(cmd, "API key: ")
			if err != nil {
				return err
			}
			if key == "" {
				return fmt.Errorf("an API key is required")
			}
			app.cfg.UserID = userID
			app.cfg.APIKey = key
			if endpoint != "" {
				app.cfg.Endpoint = endpoint
			}
			if err := app.cfg.Save(app.dir); err != nil {
				return err
			}
			cmd.Printf("profile written to %s\n", app.dir)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "numeric user id of the library")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "API base URL override")
	return cmd
}

// promptSecret reads a line without echo when stdin is a terminal, and
// falls back to a plain read otherwise so the command stays scriptable.
func promptSecret(cmd *cobra.Command, prompt string) (string, error) {
	cmd.Print(prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}
