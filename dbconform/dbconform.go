// Package dbconform provides database backed conformers and derives rule
// specs from table schemas.
//
// The "d" group checks values against table contents:
//
//	d.in_table|users               value is an id in users
//	d.in_table_field|users;email   value is an email in users
//	d.not_in_table|users;email     value is not an email in users
//
// Query failures are returned with conform.Fatal and abort the run; a
// missing row is an ordinary validation failure.
package dbconform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	conform "github.com/SimonDaKappa/go-conform"
)

// GroupName is the conventional registry name of the database group.
const GroupName = "d"

// DefaultKeyField is the column checked when a rule names only a table.
const DefaultKeyField = "id"

var (
	ErrNilQuerier = errors.New("dbconform: nil querier")
	ErrQuery      = errors.New("dbconform: query failed")
)

// Querier is the subset of *pgxpool.Pool, *pgx.Conn and pgx.Tx used here.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Group returns the database conformer group backed by q.
func Group(q Querier) conform.Funcs {
	d := &checker{q: q}
	return conform.Funcs{
		"in_table":       conform.ConformerFunc(d.inTable),
		"in_table_field": conform.ConformerFunc(d.inTableField),
		"not_in_table":   conform.ConformerFunc(d.notInTable),
	}
}

// Register adds the database group to reg under GroupName.
func Register(reg *conform.Registry, q Querier) error {
	if q == nil {
		return ErrNilQuerier
	}
	return reg.AddGroup(GroupName, Group(q))
}

type checker struct {
	q Querier
}

func (d *checker) inTable(v any, params []any, c *conform.Context) (any, error) {
	if len(params) < 1 {
		return v, malformed("d.in_table needs a table")
	}
	return d.expect(c, v, params[0], DefaultKeyField, true)
}

func (d *checker) inTableField(v any, params []any, c *conform.Context) (any, error) {
	if len(params) < 2 {
		return v, malformed("d.in_table_field needs a table and a field")
	}
	return d.expect(c, v, params[0], conform.ToString(params[1]), true)
}

func (d *checker) notInTable(v any, params []any, c *conform.Context) (any, error) {
	if len(params) < 1 {
		return v, malformed("d.not_in_table needs a table")
	}
	field := DefaultKeyField
	if len(params) > 1 && conform.ToString(params[1]) != "" {
		field = conform.ToString(params[1])
	}
	return d.expect(c, v, params[0], field, false)
}

// expect fails the value unless its presence in table.field is want.
func (d *checker) expect(c *conform.Context, v, table any, field string, want bool) (any, error) {
	found, err := Exists(c.Context(), d.q, conform.ToString(table), field, v)
	if err != nil {
		return v, conform.Fatal(err)
	}
	if found != want {
		return v, &conform.Failure{}
	}
	return v, nil
}

// Exists reports whether a row of table has field equal to value. Table
// may be schema qualified ("auth.users").
func Exists(ctx context.Context, q Querier, table, field string, value any) (bool, error) {
	if q == nil {
		return false, ErrNilQuerier
	}
	if table == "" || field == "" {
		return false, malformed("table and field must be named")
	}

	sql := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)",
		identifier(table), pgx.Identifier{field}.Sanitize())

	var exists bool
	if err := q.QueryRow(ctx, sql, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	return exists, nil
}

func identifier(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func malformed(detail string) error {
	return conform.Fatal(fmt.Errorf("%w: %s", conform.ErrMalformedRule, detail))
}
