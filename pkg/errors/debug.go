package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGFields are the structured fields a Postgres driver attaches to its
// errors. Both the pgx and lib/pq drivers are understood; anything else
// yields ok == false.
type PGFields struct {
	Code       string `json:"pg_code,omitempty"`
	Constraint string `json:"pg_constraint,omitempty"`
	Table      string `json:"pg_table,omitempty"`
	Column     string `json:"pg_column,omitempty"`
	Detail     string `json:"pg_detail,omitempty"`
	Message    string `json:"pg_message,omitempty"`
}

// PGFieldsFrom extracts driver fields from anywhere in the wrap chain.
func PGFieldsFrom(err error) (PGFields, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return PGFields{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}, true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return PGFields{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}, true
	}

	return PGFields{}, false
}

// SQLSTATE 23505, unique_violation.
const pgUniqueViolation = "23505"

// UniqueViolation reports whether the chain carries a Postgres
// unique-constraint violation, optionally narrowed to a named constraint.
func UniqueViolation(err error, constraint string) bool {
	fields, ok := PGFieldsFrom(err)
	if !ok || fields.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || fields.Constraint == constraint
}

// ErrorDump is the diagnostic view of an error chain written to debug logs
// and dev-mode responses.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PG PGFields `json:"pg,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	if fields, ok := PGFieldsFrom(err); ok {
		d.PG = fields
	}

	return d
}
