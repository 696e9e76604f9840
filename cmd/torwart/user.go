package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/torwart-dev/torwart/pkg/credstore"
)

var (
	userName     string
	userPassword string
	userRemove   bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage basic-auth credentials in the persisted store",
	Example: `  torwart user -u alice -p secret
  torwart user -u alice --remove`,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, cancel := adminContext()
		defer cancel()

		username := credstore.Username(userName)

		if userRemove {
			return withStore(ctx, func(c *credstore.Credentials) error {
				c.RemovePasswordByUser(username)
				fmt.Printf("Removed credentials for %s\n", username)
				return nil
			})
		}

		if userPassword == "" {
			return fmt.Errorf("a password is required (use -p)")
		}
		return withStore(ctx, func(c *credstore.Credentials) error {
			c.AddPassword(username, userPassword)
			fmt.Printf("Stored credentials for %s\n", username)
			return nil
		})
	},
}

func init() {
	userCmd.Flags().StringVarP(&userName, "username", "u", "", "username (required)")
	userCmd.Flags().StringVarP(&userPassword, "password", "p", "", "password")
	userCmd.Flags().BoolVar(&userRemove, "remove", false, "remove the user's credentials")
	userCmd.MarkFlagRequired("username")
}
