package main

import (
	"github.com/peoplehub/peoplehub-backend/internal/auth/jwt"
	authrepo "github.com/peoplehub/peoplehub-backend/internal/auth/repository"
	authservice "github.com/peoplehub/peoplehub-backend/internal/auth/service"
	"github.com/peoplehub/peoplehub-backend/internal/hr/repository"
	"github.com/spf13/cobra"
)

func newSeedAdminCmd() *cobra.Command {
	var email, password, name string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the administrator account if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			seed := e.cfg.Seed
			if email != "" {
				seed.AdminEmail = email
			}
			if password != "" {
				seed.AdminPassword = password
			}
			if name != "" {
				seed.AdminName = name
			}

			auth := authservice.NewAuthService(
				authrepo.NewUserRepository(e.db),
				authrepo.NewSessionRepository(e.db),
				repository.NewEmployeeRepository(e.db),
				jwt.NewManager(&e.cfg.JWT),
				nil,
				e.log,
			)

			created, err := auth.SeedAdmin(cmd.Context(), seed)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"email":   seed.AdminEmail,
				"created": created,
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Administrator email (default: seed.admin_email)")
	cmd.Flags().StringVar(&password, "password", "", "Administrator password (default: seed.admin_password)")
	cmd.Flags().StringVar(&name, "name", "", "Administrator display name")
	return cmd
}
