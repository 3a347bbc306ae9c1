package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/peoplehub/peoplehub-backend/pkg/config"
	"github.com/peoplehub/peoplehub-backend/pkg/database"
	"github.com/peoplehub/peoplehub-backend/pkg/logger"
	"github.com/spf13/cobra"
)

const serviceName = "hrctl"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "PeopleHub operator tools",
		SilenceUsage: true,
	}
	cmd.AddCommand(newMigrateCmd(), newImportCmd(), newSeedAdminCmd())
	return cmd
}

// env is what every subcommand needs: config, a logger and an open database
type env struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(serviceName)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(serviceName, cfg.Server.Environment)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) Close() error {
	return e.db.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
