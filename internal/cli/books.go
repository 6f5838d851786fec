package cli

import (
	"io"
	"strconv"
	"strings"

	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/deppfellow/bookshelf/internal/server"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewBooksCommand groups one subcommand per store operation.
func NewBooksCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Manage book records",
	}

	cmd.AddCommand(newBooksAddCommand(opts))
	cmd.AddCommand(newBooksGetCommand(opts))
	cmd.AddCommand(newBooksLookupCommand(opts))
	cmd.AddCommand(newBooksListCommand(opts))
	cmd.AddCommand(newBooksCountCommand(opts))
	cmd.AddCommand(newBooksUpdateCommand(opts))
	cmd.AddCommand(newBooksDeleteCommand(opts))

	return cmd
}

// withApp opens the store for one command run and closes it afterwards.
func withApp(cmd *cobra.Command, opts *RootOptions, run func(a *app) error) error {
	a, err := openApp(opts, cmd.ErrOrStderr(), server.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	return describe(run(a))
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.Errorf("invalid book id %q", arg)
	}

	return id, nil
}

// validateOrdering accepts the same ordering values as the HTTP API.
func validateOrdering(ordering string) error {
	if ordering == "" || model.OrderingFields[strings.TrimPrefix(ordering, "-")] {
		return nil
	}

	return errors.Errorf("invalid ordering %q: must be one of id, title, author, publication_year, created_at, optionally prefixed with -", ordering)
}

func bookPrinter(b *model.Book) func(io.Writer) error {
	return func(w io.Writer) error { return printBook(w, b) }
}

func newBooksAddCommand(opts *RootOptions) *cobra.Command {
	var book model.Book

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Create a book",
		Example: `  bookshelf books add --title 1984 --author "George Orwell" --year 1949`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(a *app) error {
				created, err := a.services.Books.CreateBook(cmd.Context(), book)
				if err != nil {
					return err
				}
				return printResult(opts, cmd.OutOrStdout(), created, bookPrinter(created))
			})
		},
	}

	cmd.Flags().StringVar(&book.Title, "title", "", "book title")
	cmd.Flags().StringVar(&book.Author, "author", "", "book author")
	cmd.Flags().IntVar(&book.PublicationYear, "year", 0, "publication year")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("year")

	return cmd
}

func newBooksGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show the book with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withApp(cmd, opts, func(a *app) error {
				book, err := a.services.Books.GetBook(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printResult(opts, cmd.OutOrStdout(), book, bookPrinter(book))
			})
		},
	}
}

func newBooksLookupCommand(opts *RootOptions) *cobra.Command {
	var title, author string

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Show the single book matching an exact title and/or author",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var lookup model.BookLookup
			if cmd.Flags().Changed("title") {
				lookup.Title = &title
			}
			if cmd.Flags().Changed("author") {
				lookup.Author = &author
			}

			return withApp(cmd, opts, func(a *app) error {
				book, err := a.services.Books.LookupBook(cmd.Context(), lookup)
				if err != nil {
					return err
				}
				return printResult(opts, cmd.OutOrStdout(), book, bookPrinter(book))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "exact title")
	cmd.Flags().StringVar(&author, "author", "", "exact author")
	cmd.MarkFlagsOneRequired("title", "author")

	return cmd
}

// filterFlags binds the listing filters to command flags.
type filterFlags struct {
	filter                         model.BookFilter
	year, yearMin, yearMax, decade int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.filter.Title, "title", "", "exact title")
	fs.StringVar(&f.filter.TitleContains, "title-contains", "", "title contains, case-insensitive")
	fs.StringVar(&f.filter.Author, "author", "", "exact author")
	fs.StringVar(&f.filter.AuthorContains, "author-contains", "", "author contains, case-insensitive")
	fs.StringVar(&f.filter.Search, "search", "", "title or author contains, case-insensitive")
	fs.IntVar(&f.year, "year", 0, "exact publication year")
	fs.IntVar(&f.yearMin, "year-min", 0, "earliest publication year")
	fs.IntVar(&f.yearMax, "year-max", 0, "latest publication year")
	fs.IntVar(&f.decade, "decade", 0, "publication decade, e.g. 1940")
}

// build returns the filter with the year flags that were actually set.
func (f *filterFlags) build(cmd *cobra.Command) model.BookFilter {
	filter := f.filter
	optional := func(name string, v int) *int {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return &v
	}

	filter.PublicationYear = optional("year", f.year)
	filter.PublicationYearMin = optional("year-min", f.yearMin)
	filter.PublicationYearMax = optional("year-max", f.yearMax)
	filter.PublicationDecade = optional("decade", f.decade)

	return filter
}

func newBooksListCommand(opts *RootOptions) *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List books, optionally filtered and ordered",
		Example: "  bookshelf books list --decade 1940 --ordering -publication_year\n  bookshelf books list --search orwell --limit 10",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOrdering(flags.filter.Ordering); err != nil {
				return err
			}

			filter := flags.build(cmd)

			return withApp(cmd, opts, func(a *app) error {
				books, err := a.services.Books.ListBooks(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if books == nil {
					books = []model.Book{}
				}
				return printResult(opts, cmd.OutOrStdout(), books, func(w io.Writer) error {
					return printBooks(w, books)
				})
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.filter.Ordering, "ordering", "", "order by id, title, author, publication_year or created_at; prefix - for descending")
	cmd.Flags().IntVar(&flags.filter.Limit, "limit", 0, "maximum number of books, 0 for all")
	cmd.Flags().IntVar(&flags.filter.Offset, "offset", 0, "number of books to skip")

	return cmd
}

func newBooksCountCommand(opts *RootOptions) *cobra.Command {
	var flags filterFlags

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count books, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := flags.build(cmd)

			return withApp(cmd, opts, func(a *app) error {
				n, err := a.services.Books.CountBooks(cmd.Context(), filter)
				if err != nil {
					return err
				}
				result := map[string]int64{"count": n}
				return printResult(opts, cmd.OutOrStdout(), result, func(w io.Writer) error {
					_, err := io.WriteString(w, strconv.FormatInt(n, 10)+"\n")
					return err
				})
			})
		},
	}

	flags.register(cmd)

	return cmd
}

func newBooksUpdateCommand(opts *RootOptions) *cobra.Command {
	var (
		title, author string
		year          int
	)

	cmd := &cobra.Command{
		Use:     "update <id>",
		Short:   "Change the title, author or publication year of a book",
		Example: `  bookshelf books update 1 --title "Nineteen Eighty-Four"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			var patch model.BookPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("author") {
				patch.Author = &author
			}
			if cmd.Flags().Changed("year") {
				patch.PublicationYear = &year
			}

			return withApp(cmd, opts, func(a *app) error {
				book, err := a.services.Books.UpdateBook(cmd.Context(), id, patch)
				if err != nil {
					return err
				}
				return printResult(opts, cmd.OutOrStdout(), book, bookPrinter(book))
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&author, "author", "", "new author")
	cmd.Flags().IntVar(&year, "year", 0, "new publication year")
	cmd.MarkFlagsOneRequired("title", "author", "year")

	return cmd
}

func newBooksDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete the book with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withApp(cmd, opts, func(a *app) error {
				if err := a.services.Books.DeleteBook(cmd.Context(), id); err != nil {
					return err
				}
				result := map[string]any{"deleted": true, "id": id}
				return printResult(opts, cmd.OutOrStdout(), result, func(w io.Writer) error {
					_, err := io.WriteString(w, "book "+strconv.FormatInt(id, 10)+" deleted\n")
					return err
				})
			})
		},
	}
}
