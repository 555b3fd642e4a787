package dbconform

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	conform "github.com/SimonDaKappa/go-conform"
)

// Normalized column types understood by FieldRules.
const (
	TypeDatetime  = "datetime"
	TypeTimestamp = "timestamp"
	TypeDate      = "date"
	TypeText      = "text"
	TypeInt       = "int"
	TypeDecimal   = "decimal"
	TypeFloat     = "float"
	TypeOther     = "other"
)

// Column is the schema information rules are derived from.
type Column struct {
	Name          string
	Type          string // one of the Type constants
	Nullable      bool
	AutoIncrement bool
	Default       *string // nil when the column has no default
	Limit         int     // max length for text, 1 for boolean ints
}

// FieldRules returns the rule spec for a column. The name may be table
// qualified; only the last segment is considered.
//
// Every column is converted to a string first. Required columns without a
// default break on a blank value; columns with a default or that are
// nullable are only validated when filled, and nullable blanks become nil.
// Type specific rules follow.
func FieldRules(name string, col Column) []any {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}

	if (name == "record_created" || name == "record_updated") &&
		(col.Type == TypeDatetime || col.Type == TypeDate) {
		return []any{}
	}

	rules := []any{"f.string"}

	if !col.Nullable && !col.AutoIncrement {
		if col.Default == nil {
			// column must be present
			rules = append(rules, "!v.filled")
		} else {
			rules = append(rules, "?!v.filled")
		}
	} else {
		// empty inputs of nullable columns are null
		rules = append(rules, []any{"f.to_default", nil}, "?!v.filled")
	}

	switch col.Type {
	case TypeDatetime, TypeTimestamp:
		rules = append(rules, "!v.datetime", "f.datetime")
	case TypeDate:
		rules = append(rules, "!v.date", "f.date")
	case TypeText:
		if col.Limit > 0 {
			rules = append(rules, fmt.Sprintf("!v.length_range|0;%d", col.Limit))
		}
	case TypeInt:
		if col.Limit == 1 {
			rules = append(rules, "f.bool", "f.int")
		} else {
			rules = append(rules, "f.trim", "!v.int")
		}
	case TypeDecimal, TypeFloat:
		rules = append(rules, "f.trim", "!v.float")
	}

	return rules
}

// RulesFor builds a field map from columns, in column order.
func RulesFor(columns []Column) conform.FieldMap {
	fm := make(conform.FieldMap, 0, len(columns))
	for _, col := range columns {
		fm = fm.Add(col.Name, FieldRules(col.Name, col))
	}
	return fm
}

// TableRules introspects table and returns the field map for its columns.
func TableRules(ctx context.Context, q Querier, table string) (conform.FieldMap, error) {
	columns, err := TableColumns(ctx, q, table)
	if err != nil {
		return nil, err
	}
	return RulesFor(columns), nil
}

const columnsQuery = `
SELECT column_name, data_type, is_nullable = 'YES',
       coalesce(column_default LIKE 'nextval(%', false) OR is_identity = 'YES',
       column_default, coalesce(character_maximum_length, 0)
FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2
ORDER BY ordinal_position`

// TableColumns reads column metadata from information_schema. Tables
// without a schema are looked up in "public".
func TableColumns(ctx context.Context, q Querier, table string) ([]Column, error) {
	if q == nil {
		return nil, ErrNilQuerier
	}
	schema, name, found := strings.Cut(table, ".")
	if !found {
		schema, name = "public", table
	}

	rows, err := q.Query(ctx, columnsQuery, schema, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}

	columns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Column, error) {
		var (
			col      Column
			dataType string
			limit    int32
		)
		if err := row.Scan(&col.Name, &dataType, &col.Nullable, &col.AutoIncrement, &col.Default, &limit); err != nil {
			return Column{}, err
		}
		col.Type, col.Limit = normalizeType(dataType, int(limit))
		return col, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuery, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table %q has no columns", ErrQuery, table)
	}
	return columns, nil
}

// normalizeType maps a PostgreSQL data_type onto the Type constants.
// Booleans are reported as ints limited to 1.
func normalizeType(dataType string, limit int) (string, int) {
	switch strings.ToLower(dataType) {
	case "timestamp without time zone", "timestamp with time zone", "timestamp":
		return TypeTimestamp, 0
	case "date":
		return TypeDate, 0
	case "text", "character varying", "character", "varchar", "char":
		return TypeText, limit
	case "smallint", "integer", "bigint":
		return TypeInt, 0
	case "boolean":
		return TypeInt, 1
	case "numeric", "decimal", "money":
		return TypeDecimal, 0
	case "real", "double precision":
		return TypeFloat, 0
	default:
		return TypeOther, 0
	}
}
