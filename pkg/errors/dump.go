package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-friendly view of an error.
type ErrorDump struct {
	Message  string          `json:"message"`
	Code     Code            `json:"code,omitempty"`
	Chain    []string        `json:"chain,omitempty"`
	Postgres *PostgresDetail `json:"postgres,omitempty"`
}

// PostgresDetail carries the server diagnostics of a driver error.
type PostgresDetail struct {
	Code       string `json:"code"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// Dump walks err depth first, following both single and joined wraps, and
// records the first Postgres error it finds from either pgx or lib/pq.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{Message: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	d.Chain = chain(err, nil)
	d.Postgres = postgresDetail(err)
	return d
}

func chain(err error, acc []string) []string {
	if err == nil {
		return acc
	}
	acc = append(acc, fmt.Sprintf("%T: %v", err, err))
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			acc = chain(inner, acc)
		}
	case interface{ Unwrap() error }:
		acc = chain(u.Unwrap(), acc)
	}
	return acc
}

func postgresDetail(err error) *PostgresDetail {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &PostgresDetail{
			Code:       pgErr.Code,
			Constraint: pgErr.ConstraintName,
			Table:      pgErr.TableName,
			Column:     pgErr.ColumnName,
			Detail:     pgErr.Detail,
			Message:    pgErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &PostgresDetail{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return nil
}
