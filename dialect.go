// Package upsert builds and executes insert-or-update statements for MySQL, PostgreSQL and SQLite.
// This file implements the database dialects and the upsert syntax each of them uses.
//
// Dialect handles the SQL differences the builder cares about:
//   - Database identification (MySQL, PostgreSQL, SQLite)
//   - Placeholder format (? vs $1, $2)
//   - Upsert syntax (ON DUPLICATE KEY UPDATE vs ON CONFLICT)
//
// Currently supported databases:
//   - MySQL 5.7+ (also MariaDB and TiDB)
//   - PostgreSQL 9.5+
//   - SQLite 3.24+ (with UPSERT support)
//
// Usage example:
//
//	// MySQL
//	session := upsert.NewSession(db, upsert.MySQL)
//
//	// PostgreSQL
//	session := upsert.NewSession(db, upsert.PostgreSQL)
//
//	// SQLite
//	session := upsert.NewSession(db, upsert.SQLite)
package upsert

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

var (
	SQLite     = SQLiteDialect{}
	MySQL      = MySQLDialect{}
	PostgreSQL = PostgreSQLDialect{}
)

// Dialect abstracts database-specific SQL features.
//
// Implementations:
//   - MySQLDialect: MySQL dialect
//   - PostgreSQLDialect: PostgreSQL dialect
//   - SQLiteDialect: SQLite dialect
//
// Other implementations may be used with a Session, but an Upsert can only be
// rendered for the dialects of this package; anything else fails with ErrUnsupportedDialect.
type Dialect interface {
	// Name returns the database driver name.
	// Used for logging, metrics collection, and driver selection.
	//
	// Returns:
	//   - "mysql" for MySQL
	//   - "postgres" for PostgreSQL
	//   - "sqlite3" for SQLite
	Name() string

	// PlaceholderFormat returns the placeholder format used by the database.
	// The Session rewrites named parameters into this format before executing.
	//
	// Common formats:
	//   - sq.Question: ? placeholder (MySQL, SQLite)
	//   - sq.Dollar: $1, $2 placeholders (PostgreSQL)
	PlaceholderFormat() sq.PlaceholderFormat
}

// upsertRenderer is implemented by every dialect that knows an upsert syntax.
type upsertRenderer interface {
	renderUpsert(table string, columns, conflictCols, updateCols []string) string
}

// ParseDialect returns the dialect for a driver or database name.
//
// Accepted names:
//   - mysql, mariadb, tidb
//   - postgres, postgresql, pgx
//   - sqlite, sqlite3
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb", "tidb":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return PostgreSQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
	}
}

// renderUpsert renders the full statement for d, or fails when d has no upsert rule.
func renderUpsert(d Dialect, table string, columns, conflictCols, updateCols []string) (string, error) {
	r, ok := d.(upsertRenderer)
	if !ok {
		name := "<nil>"
		if d != nil {
			name = fmt.Sprintf("%s (%T)", d.Name(), d)
		}
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDialect, name)
	}
	return r.renderUpsert(table, columns, conflictCols, updateCols), nil
}

// insertPrefix renders "INSERT INTO table (a, b) VALUES (:a, :b)".
func insertPrefix(table string, columns []string) string {
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		placeholders[i] = ":" + col
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))
}

// assignments renders "a = :a, b = :b".
func assignments(cols []string) string {
	updates := make([]string, len(cols))
	for i, col := range cols {
		updates[i] = col + " = :" + col
	}
	return strings.Join(updates, ", ")
}

// buildOnConflictUpsert generates the ON CONFLICT clause used by PostgreSQL and SQLite.
//
// Syntax format:
//
//	ON CONFLICT (conflict_columns) DO UPDATE SET col1 = :col1, col2 = :col2
//	or
//	ON CONFLICT (conflict_columns) DO NOTHING
//
// The values are referenced through the statement's own named parameters,
// so no EXCLUDED table is needed. onConflict is the rendered "ON CONFLICT (...)" part.
func buildOnConflictUpsert(onConflict string, updateCols []string) string {
	if len(updateCols) == 0 {
		return onConflict + " DO NOTHING"
	}
	return onConflict + " DO UPDATE SET " + assignments(updateCols)
}

// MySQLDialect implements the MySQL dialect.
//
// MySQL features:
//   - Uses ? as placeholder
//   - Uses ON DUPLICATE KEY UPDATE syntax for Upsert
//   - Automatically detects conflict target (primary key or unique key)
type MySQLDialect struct{}

// Name returns the MySQL dialect name.
func (MySQLDialect) Name() string { return "mysql" }

// PlaceholderFormat returns MySQL's placeholder format (?).
func (MySQLDialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Question
}

// UpsertClause generates MySQL's ON DUPLICATE KEY UPDATE clause.
// conflictCols are not part of the syntax; MySQL uses every unique key of the table.
// When there is nothing to update the first conflict column is assigned to itself,
// which keeps the existing row untouched.
//
// Example:
//
//	MySQL.UpsertClause([]string{"bar"}, []string{"count"})
//	// Returns: "ON DUPLICATE KEY UPDATE count = :count"
func (MySQLDialect) UpsertClause(conflictCols, updateCols []string) string {
	if len(updateCols) == 0 {
		if len(conflictCols) == 0 {
			return ""
		}
		col := conflictCols[0]
		return fmt.Sprintf("ON DUPLICATE KEY UPDATE %s = %s", col, col)
	}
	return "ON DUPLICATE KEY UPDATE " + assignments(updateCols)
}

func (d MySQLDialect) renderUpsert(table string, columns, conflictCols, updateCols []string) string {
	return insertPrefix(table, columns) + " " + d.UpsertClause(conflictCols, updateCols)
}

// PostgreSQLDialect implements the PostgreSQL dialect.
//
// PostgreSQL features:
//   - Uses $1, $2, $3 as placeholders
//   - Uses ON CONFLICT ... DO UPDATE syntax for Upsert
//   - Requires explicitly specifying conflict columns
//   - The target table is quoted
type PostgreSQLDialect struct{}

// Name returns the PostgreSQL dialect name.
func (PostgreSQLDialect) Name() string { return "postgres" }

// PlaceholderFormat returns PostgreSQL's placeholder format ($1, $2, ...).
func (PostgreSQLDialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Dollar
}

// UpsertClause generates PostgreSQL's ON CONFLICT clause.
//
// Example:
//
//	PostgreSQL.UpsertClause([]string{"bar"}, []string{"count"})
//	// Returns: "ON CONFLICT (bar) DO UPDATE SET count = :count"
func (PostgreSQLDialect) UpsertClause(conflictCols, updateCols []string) string {
	return buildOnConflictUpsert("ON CONFLICT ("+strings.Join(conflictCols, ", ")+")", updateCols)
}

// QuoteTable quotes every dot separated part of a table name.
func (PostgreSQLDialect) QuoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func (d PostgreSQLDialect) renderUpsert(table string, columns, conflictCols, updateCols []string) string {
	return insertPrefix(d.QuoteTable(table), columns) + " " + d.UpsertClause(conflictCols, updateCols)
}

// SQLiteDialect implements the SQLite dialect.
//
// SQLite features:
//   - Uses ? as placeholder
//   - Uses ON CONFLICT ... DO UPDATE syntax for Upsert (version 3.24+)
//   - Requires explicitly specifying conflict columns
//   - Commonly used in testing and development environments
type SQLiteDialect struct{}

// Name returns the SQLite dialect name.
func (SQLiteDialect) Name() string { return "sqlite3" }

// PlaceholderFormat returns SQLite's placeholder format (?).
func (SQLiteDialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Question
}

// UpsertClause generates SQLite's ON CONFLICT clause.
//
// Example:
//
//	SQLite.UpsertClause([]string{"bar"}, []string{"count"})
//	// Returns: "ON CONFLICT(bar) DO UPDATE SET count = :count"
func (SQLiteDialect) UpsertClause(conflictCols, updateCols []string) string {
	return buildOnConflictUpsert("ON CONFLICT("+strings.Join(conflictCols, ", ")+")", updateCols)
}

func (d SQLiteDialect) renderUpsert(table string, columns, conflictCols, updateCols []string) string {
	return insertPrefix(table, columns) + " " + d.UpsertClause(conflictCols, updateCols)
}
