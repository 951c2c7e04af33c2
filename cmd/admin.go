package cmd

import (
	"fmt"

	"github.com/example/spoon-voicebot/internal/auth"
	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage access to the bookings admin endpoint",
	}
	cmd.AddCommand(newAdminHashCmd())
	return cmd
}

func newAdminHashCmd() *cobra.Command {
	var password string

	c := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash for ADMIN_PASSWORD_BCRYPT",
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export ADMIN_PASSWORD_BCRYPT='%s'\n", hash)
			return nil
		},
	}

	c.Flags().StringVar(&password, "password", "", "admin password")
	_ = c.MarkFlagRequired("password")
	return c
}
