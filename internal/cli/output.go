package cli

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/deppfellow/bookshelf/internal/errs"
	"github.com/deppfellow/bookshelf/internal/lib/utils"
	"github.com/deppfellow/bookshelf/internal/model"
	"github.com/pkg/errors"
)

// printResult writes v as JSON or YAML, or calls text for the text format.
func printResult(opts *RootOptions, w io.Writer, v any, text func(io.Writer) error) error {
	switch opts.Format {
	case "json":
		return utils.PrintJSON(w, v)
	case "yaml":
		return utils.PrintYAML(w, v)
	default:
		return text(w)
	}
}

func printBook(w io.Writer, b *model.Book) error {
	_, err := fmt.Fprintf(w, "#%d %s by %s (%d)\n", b.ID, b.Title, b.Author, b.PublicationYear)
	return err
}

func printBooks(w io.Writer, books []model.Book) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tYEAR")
	for _, b := range books {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", b.ID, b.Title, b.Author, b.PublicationYear)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%d book(s)\n", len(books))
	return err
}

// describe turns an API error into a one-line CLI error that keeps the
// field errors.
func describe(err error) error {
	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) || len(httpErr.Errors) == 0 {
		return err
	}

	parts := make([]string, 0, len(httpErr.Errors))
	for _, fe := range httpErr.Errors {
		parts = append(parts, fe.Field+": "+fe.Error)
	}

	return fmt.Errorf("%s: %s", httpErr.Message, strings.Join(parts, "; "))
}

// isNotFound reports whether err is a 404 API error.
func isNotFound(err error) bool {
	var httpErr *errs.HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}
