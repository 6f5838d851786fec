// Package cli implements the bookshelf command line: the HTTP server,
// migrations, the CRUD walkthrough and one command per store operation.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "text" | "json" | "yaml"

	// SQLite, when set, replaces the environment configuration with a
	// local SQLite database at this path. ":memory:" is allowed.
	SQLite string
}

var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the bookshelf root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:          "bookshelf",
		Short:        "Bookshelf - a book record store",
		Long:         "Bookshelf stores book records and serves them over a REST API.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringVar(&opts.SQLite, "sqlite", "", "use a SQLite database at this path instead of the env config")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewDemoCommand(opts))
	cmd.AddCommand(NewBooksCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
