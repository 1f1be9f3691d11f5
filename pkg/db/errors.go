package db

import (
	"strings"

	pkgerrors "github.com/aliasttt/bonusweb-sub000/pkg/errors"
)

// IsUniqueViolation reports whether the provided error is a unique constraint
// violation. When constraintName is provided, the match is narrowed to that
// constraint. Postgres driver errors carry structured fields and are matched
// through pkg/errors; SQLite errors are matched on message text since the
// pure-SQL driver does not expose structured codes.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	if _, ok := pkgerrors.PGFieldsFrom(err); ok {
		return pkgerrors.UniqueViolation(err, constraintName)
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value") {
		if constraintName != "" {
			return strings.Contains(msg, constraintName)
		}
		return true
	}
	return false
}
