package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/torwart-dev/torwart/pkg/credstore"
)

var (
	cmdUser    string
	cmdName    string
	cmdCommand string
	cmdPath    string
	cmdRemove  string
	cmdClear   bool
)

var cmdCmd = &cobra.Command{
	Use:   "cmd",
	Short: "Manage per-user post-authentication commands",
	Long: `Commands run on the host after the named user authenticates. Each
command has a name (unique per user; adding a command with an existing name
replaces it), a shell command line, and an optional working directory.`,
	Example: `  torwart cmd -u alice -n wake -c "wakeonlan 00:11:22:33:44:55"
  torwart cmd -u alice -n backup -c "./backup.sh" -p /srv/backup
  torwart cmd -u alice --remove wake
  torwart cmd -u alice --clear`,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := adminContext()
		defer cancel()

		username := credstore.Username(cmdUser)

		switch {
		case cmdClear:
			return withStore(ctx, func(c *credstore.Credentials) error {
				if username == "" {
					c.ClearAllCommands()
					fmt.Println("Cleared commands for all users")
					return nil
				}
				c.ClearCommands(username)
				fmt.Printf("Cleared commands for %s\n", username)
				return nil
			})
		case cmdRemove != "":
			if username == "" {
				return fmt.Errorf("a username is required (use -u)")
			}
			return withStore(ctx, func(c *credstore.Credentials) error {
				c.RemoveCommandByName(username, cmdRemove)
				fmt.Printf("Removed command %q for %s\n", cmdRemove, username)
				return nil
			})
		case cmdCommand != "":
			if username == "" || cmdName == "" {
				return fmt.Errorf("a username and command name are required (use -u and -n)")
			}
			return withStore(ctx, func(c *credstore.Credentials) error {
				c.AddCommand(username, credstore.UserCommand{
					Name:    cmdName,
					Path:    cmdPath,
					Command: cmdCommand,
				})
				fmt.Printf("Stored command %q for %s\n", cmdName, username)
				return nil
			})
		default:
			return fmt.Errorf("nothing to do: use -c, --remove or --clear")
		}
	},
}

func init() {
	cmdCmd.Flags().StringVarP(&cmdUser, "username", "u", "", "user the command belongs to")
	cmdCmd.Flags().StringVarP(&cmdName, "name", "n", "", "command name")
	cmdCmd.Flags().StringVarP(&cmdCommand, "command", "c", "", "shell command line to store")
	cmdCmd.Flags().StringVarP(&cmdPath, "path", "p", "", "working directory for the command")
	cmdCmd.Flags().StringVar(&cmdRemove, "remove", "", "remove the named command")
	cmdCmd.Flags().BoolVar(&cmdClear, "clear", false, "remove all of the user's commands (all users when -u is omitted)")
}
