package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/deppfellow/bookshelf/internal/server"
	"github.com/deppfellow/bookshelf/internal/service"
	"github.com/spf13/cobra"
)

// NewDemoCommand walks one book through create, read, update and delete
// and prints every step.
func NewDemoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk one book through create, retrieve, update and delete",
		Long: `Walk one book through its whole lifecycle against the configured store.

The book "1984" is created, retrieved by title, renamed to
"Nineteen Eighty-Four" and deleted. The run fails if the deleted book can
still be found or the book count does not return to its starting value.

Example:
  bookshelf --sqlite :memory: demo`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts, cmd.ErrOrStderr(), server.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			return describe(RunDemo(cmd.Context(), cmd.OutOrStdout(), a.services.Books))
		},
	}
}

// RunDemo runs the CRUD walkthrough on books and writes each step to out.
func RunDemo(ctx context.Context, out io.Writer, books *service.BookService) error {
	before, err := books.CountBooks(ctx, model.BookFilter{})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "=== BOOK CRUD OPERATIONS ===")

	fmt.Fprintln(out, "\n1. CREATE: creating a new book")
	created, err := books.CreateBook(ctx, model.Book{
		Title:           "1984",
		Author:          "George Orwell",
		PublicationYear: 1949,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created book: %s (id %d)\n", created.Title, created.ID)

	fmt.Fprintln(out, "\n2. RETRIEVE: retrieving the book by title")
	retrieved, err := books.LookupBook(ctx, model.ByTitle(created.Title))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "retrieved: %s by %s, %d\n", retrieved.Title, retrieved.Author, retrieved.PublicationYear)

	fmt.Fprintln(out, "\n3. UPDATE: updating the book title")
	newTitle := "Nineteen Eighty-Four"
	if _, err := books.UpdateBook(ctx, retrieved.ID, model.BookPatch{Title: &newTitle}); err != nil {
		return err
	}
	updated, err := books.GetBook(ctx, retrieved.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "updated title to: %s\n", updated.Title)

	fmt.Fprintln(out, "\n4. DELETE: deleting the book")
	if err := books.DeleteBook(ctx, updated.ID); err != nil {
		return err
	}
	fmt.Fprintln(out, "book deleted")

	_, err = books.LookupBook(ctx, model.ByTitle(updated.Title))
	if !isNotFound(err) {
		if err == nil {
			return fmt.Errorf("book %q still found after delete", updated.Title)
		}
		return err
	}
	fmt.Fprintf(out, "lookup by title %q: book not found\n", updated.Title)

	after, err := books.CountBooks(ctx, model.BookFilter{})
	if err != nil {
		return err
	}
	if after != before {
		return fmt.Errorf("book count is %d after the walkthrough, want %d", after, before)
	}

	fmt.Fprintf(out, "\nfinal check: %d books in database\n", after)
	fmt.Fprintln(out, "=== ALL OPERATIONS COMPLETED ===")

	return nil
}
