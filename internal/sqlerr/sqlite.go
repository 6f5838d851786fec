package sqlerr

import (
	"strings"

	"github.com/mattn/go-sqlite3"
)

// ConvertSQLiteError normalizes a go-sqlite3 error.
//
// SQLite reports constraint failures as text like
// "NOT NULL constraint failed: books.title", so table and column are
// parsed out of the message.
func ConvertSQLiteError(src sqlite3.Error) *Error {
	out := &Error{
		Code:         Other,
		Severity:     SeverityError,
		DatabaseCode: src.ExtendedCode.Error(),
		Message:      src.Error(),
		driverErr:    src,
	}

	switch src.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		out.Code = UniqueViolation
	case sqlite3.ErrConstraintNotNull:
		out.Code = NotNullViolation
	case sqlite3.ErrConstraintForeignKey:
		out.Code = ForeignKeyViolation
	case sqlite3.ErrConstraintCheck:
		out.Code = CheckViolation
	}

	if _, target, ok := strings.Cut(src.Error(), "constraint failed: "); ok {
		// Multi-column unique failures list "t.a, t.b"; the first one names the table.
		first, _, _ := strings.Cut(target, ",")
		if table, column, ok := strings.Cut(strings.TrimSpace(first), "."); ok {
			out.TableName = table
			out.ColumnName = column
		} else if out.Code == CheckViolation {
			out.ConstraintName = strings.TrimSpace(first)
		}
	}

	return out
}
