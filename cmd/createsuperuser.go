/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yamdb/apiserver/internal/db"
	"github.com/yamdb/apiserver/internal/mail"
	"github.com/yamdb/apiserver/internal/services"
	"github.com/yamdb/apiserver/internal/store"
)

var (
	superuserName  string
	superuserEmail string
)

// createSuperuserCmd creates an administrator and prints its confirmation code.
var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an administrator account",
	Long: `Create an administrator with staff and superuser flags. The
confirmation code is printed instead of mailed. Usage:

	yamdb createsuperuser --username root --email root@example.com
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		registration := services.NewRegistrationService(store.NewUserRepository(conn), mail.NewLogSender(), nil, cfg.Mail.From)
		user, secret, err := registration.CreateSuperuser(cmd.Context(), superuserName, superuserEmail)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created superuser %s\nconfirmation code: %s\n", user.Username, secret)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createSuperuserCmd)

	createSuperuserCmd.Flags().StringVar(&superuserName, "username", "", "username of the administrator")
	createSuperuserCmd.Flags().StringVar(&superuserEmail, "email", "", "email of the administrator")
	_ = createSuperuserCmd.MarkFlagRequired("username")
	_ = createSuperuserCmd.MarkFlagRequired("email")
}
