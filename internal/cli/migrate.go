package cli

import (
	"fmt"

	"github.com/deppfellow/bookshelf/internal/database"
	"github.com/spf13/cobra"

	loggerPkg "github.com/deppfellow/bookshelf/internal/logger"
)

// NewMigrateCommand brings the schema of the configured database up to
// date and exits.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			log := loggerPkg.NewLoggerTo(cmd.ErrOrStderr(), cfg.Observability, nil)

			if err := database.Migrate(cmd.Context(), &log, cfg); err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
			return err
		},
	}
}
