package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/natvps/panel/internal/store"
	"github.com/natvps/panel/pkg/audit"
	"github.com/natvps/panel/pkg/auth"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User accounts",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var (
		name    string
		email   string
		isAdmin bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user; the password is read from PANEL_USER_PASSWORD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := os.Getenv("PANEL_USER_PASSWORD")
			if password == "" {
				return errors.New("PANEL_USER_PASSWORD is not set")
			}

			ctx := cmd.Context()
			log := newLogger()
			pool, _, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			users := store.NewUsers(pool)
			user, err := auth.NewPasswordService(users, auth.WithPasswordLogger(log)).
				Register(ctx, name, email, password, isAdmin)
			if err != nil {
				return err
			}

			audit.NewLogger(store.NewAuditLogs(pool), audit.WithLogger(log)).Log(ctx, audit.ActionUserCreated,
				audit.WithSubject(audit.User(user.ID)),
				audit.WithProperty("source", "cli"),
				audit.WithProperty("is_admin", user.IsAdmin),
			)

			fmt.Fprintf(cmd.OutOrStdout(), "Created user %d <%s>.\n", user.ID, user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Login email")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant access to the admin audit log")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
