package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/torwart-dev/torwart/pkg/credstore"
)

var (
	bypassUser   string
	bypassAdd    string
	bypassRemove string
	bypassClear  bool
)

var bypassCmd = &cobra.Command{
	Use:   "bypass",
	Short: "Manage bypass tokens in the persisted store",
	Long: `Bypass tokens authorize a request when presented in the token query
parameter, the X-Bypass-Token header, or the trailing path segment. Each
token is bound to a user so the learn-step and the user's commands apply.`,
	Example: `  torwart bypass -u alice -a 7f3a9c
  torwart bypass -r 7f3a9c
  torwart bypass --clear`,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := adminContext()
		defer cancel()

		switch {
		case bypassClear:
			return withStore(ctx, func(c *credstore.Credentials) error {
				c.ClearTokens()
				fmt.Println("Cleared all bypass tokens")
				return nil
			})
		case bypassRemove != "":
			return withStore(ctx, func(c *credstore.Credentials) error {
				c.RemoveToken(bypassRemove)
				fmt.Println("Removed bypass token")
				return nil
			})
		case bypassAdd != "":
			if bypassUser == "" {
				return fmt.Errorf("a username is required when adding a token (use -u)")
			}
			return withStore(ctx, func(c *credstore.Credentials) error {
				c.AddToken(bypassAdd, credstore.Username(bypassUser))
				fmt.Printf("Added bypass token for %s\n", bypassUser)
				return nil
			})
		default:
			return fmt.Errorf("nothing to do: use -a, -r or --clear")
		}
	},
}

func init() {
	bypassCmd.Flags().StringVarP(&bypassUser, "username", "u", "", "user the token is bound to")
	bypassCmd.Flags().StringVarP(&bypassAdd, "add", "a", "", "token to add")
	bypassCmd.Flags().StringVarP(&bypassRemove, "remove", "r", "", "token to remove")
	bypassCmd.Flags().BoolVarP(&bypassClear, "clear", "C", false, "remove all tokens")
}
