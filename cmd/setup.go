package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lqx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", r.configPath)
	return r.writePlain("✓ Wrote %s\nSet credentials.api_key (or %s) before syncing.\n", r.configPath, shared.APIKeyEnv)
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	path := r.cfg().Database.Path
	r.logger.Info("initializing database", "path", path)

	if _, err := r.journal(); err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", path)
	return r.writePlain("✓ Database ready at %s\n", path)
}
