// Package upsert builds and executes insert-or-update statements for MySQL, PostgreSQL and SQLite.
// This file implements the Upsert builder.
//
// An Upsert is bound to a Connection, configured through a chain of calls and
// consumed once by Execute. Identifier columns form the conflict key; field columns
// carry the data written on insert and refreshed on update.
//
// Usage example:
//
//	affected, err := upsert.New(session).
//	    ForTable("counters").
//	    WithIdentifier("name", "visits").
//	    WithField("count", 42, upsert.As(upsert.ParamInteger)).
//	    WithField("created_at", time.Now(), upsert.InsertOnly()).
//	    Execute(ctx)
//
// Rendered for SQLite:
//
//	INSERT INTO counters (count, created_at, name) VALUES (:count, :created_at, :name)
//	ON CONFLICT(name) DO UPDATE SET count = :count
package upsert

import (
	"context"
	"database/sql"
)

// Result is the outcome of an executed statement. sql.Result satisfies it.
type Result interface {
	RowsAffected() (int64, error)
}

var _ Result = sql.Result(nil)

// Connection is the database collaborator an Upsert renders for and executes through.
// Session is the implementation backed by database/sql.
type Connection interface {
	// Dialect returns the SQL dialect of the connection.
	Dialect() Dialect

	// ExecuteQuery executes query, whose placeholders are named after the keys of params.
	// types holds the parameter type of every entry in params.
	ExecuteQuery(ctx context.Context, query string, params map[string]any, types map[string]ParameterType) (Result, error)
}

type columnRole int

const (
	roleIdentifier columnRole = iota + 1
	roleField
)

// binding is a registered column with its normalized value.
type binding struct {
	column     string
	value      any
	paramType  ParameterType
	insertOnly bool
}

// ColumnOption configures a column registered with WithIdentifier or WithField.
type ColumnOption func(*binding)

// As sets the parameter type of the column. The default is ParamString.
// A value implementing RawTyper overrides it.
func As(t ParameterType) ColumnOption {
	return func(b *binding) {
		b.paramType = t
	}
}

// InsertOnly keeps the field out of the update assignments: it is written when
// the row is inserted and never touched afterwards. It has no effect on identifiers.
func InsertOnly() ColumnOption {
	return func(b *binding) {
		b.insertOnly = true
	}
}

// Upsert accumulates the columns of one insert-or-update statement.
// It is not safe for concurrent use.
//
// Errors raised while registering columns are kept and returned by Build and Execute;
// once an error is stored the builder ignores further registrations and must be discarded.
type Upsert struct {
	conn        Connection
	table       string
	identifiers []binding
	fields      []binding
	columns     map[string]columnRole
	err         error
}

// New creates an Upsert executing through conn.
func New(conn Connection) *Upsert {
	return &Upsert{
		conn:    conn,
		columns: make(map[string]columnRole),
	}
}

// ForTable sets the target table. Calling it again replaces the previous name.
func (u *Upsert) ForTable(table string) *Upsert {
	u.table = table
	return u
}

// WithIdentifier registers a column of the conflict key.
//
// Fails with:
//   - ErrFieldRegisteredAsIdentifier if column is already a field
//   - ErrIdentifierAlreadyInUse if column is already an identifier
func (u *Upsert) WithIdentifier(column string, value any, opts ...ColumnOption) *Upsert {
	if u.err != nil {
		return u
	}
	switch u.columns[column] {
	case roleField:
		u.err = columnError(ErrFieldRegisteredAsIdentifier, column)
		return u
	case roleIdentifier:
		u.err = columnError(ErrIdentifierAlreadyInUse, column)
		return u
	}

	b, err := newBinding(column, value, opts)
	if err != nil {
		u.err = err
		return u
	}
	b.insertOnly = false
	u.identifiers = append(u.identifiers, b)
	u.columns[column] = roleIdentifier
	return u
}

// WithField registers a data column.
//
// Fails with:
//   - ErrFieldAlreadyInUse if column is already a field
//   - ErrIdentifierRegisteredAsField if column is already an identifier
func (u *Upsert) WithField(column string, value any, opts ...ColumnOption) *Upsert {
	if u.err != nil {
		return u
	}
	switch u.columns[column] {
	case roleField:
		u.err = columnError(ErrFieldAlreadyInUse, column)
		return u
	case roleIdentifier:
		u.err = columnError(ErrIdentifierRegisteredAsField, column)
		return u
	}

	b, err := newBinding(column, value, opts)
	if err != nil {
		u.err = err
		return u
	}
	u.fields = append(u.fields, b)
	u.columns[column] = roleField
	return u
}

func newBinding(column string, value any, opts []ColumnOption) (binding, error) {
	if column == "" {
		return binding{}, columnError(ErrInvalidColumn, column)
	}

	b := binding{column: column, paramType: ParamString}
	for _, opt := range opts {
		opt(&b)
	}
	if t, ok := value.(RawTyper); ok && !isNilPointer(t) {
		b.paramType = t.RawType()
	}

	v, err := normalizeValue(value)
	if err != nil {
		return binding{}, columnError(err, column)
	}
	b.value = v
	return b, nil
}

// Err returns the first error raised while registering columns.
func (u *Upsert) Err() error {
	return u.err
}

// Statement is a rendered upsert, ready to be executed by a Connection.
type Statement struct {
	// SQL uses one named placeholder per column, e.g. :count.
	SQL string
	// Columns lists fields then identifiers, in registration order.
	Columns []string
	// Params holds the normalized value of every column.
	Params map[string]any
	// Types holds the parameter type of every column.
	Types map[string]ParameterType
}

// Build validates the builder and renders the statement for the connection's dialect.
// It does not execute anything.
func (u *Upsert) Build() (*Statement, error) {
	if u.err != nil {
		return nil, u.err
	}
	if u.table == "" {
		return nil, ErrNoTableGiven
	}
	if len(u.identifiers) == 0 || len(u.fields) == 0 {
		return nil, ErrEmptyUpsert
	}

	all := make([]binding, 0, len(u.fields)+len(u.identifiers))
	all = append(all, u.fields...)
	all = append(all, u.identifiers...)

	stmt := &Statement{
		Columns: make([]string, len(all)),
		Params:  make(map[string]any, len(all)),
		Types:   make(map[string]ParameterType, len(all)),
	}
	for i, b := range all {
		stmt.Columns[i] = b.column
		stmt.Params[b.column] = b.value
		stmt.Types[b.column] = b.paramType
	}

	conflictCols := make([]string, len(u.identifiers))
	for i, b := range u.identifiers {
		conflictCols[i] = b.column
	}
	var updateCols []string
	for _, b := range u.fields {
		if !b.insertOnly {
			updateCols = append(updateCols, b.column)
		}
	}

	var dialect Dialect
	if u.conn != nil {
		dialect = u.conn.Dialect()
	}
	query, err := renderUpsert(dialect, u.table, stmt.Columns, conflictCols, updateCols)
	if err != nil {
		return nil, err
	}
	stmt.SQL = query
	return stmt, nil
}

// Execute builds the statement, executes it once and returns the affected row count
// reported by the database. The count is not normalized across dialects: MySQL reports
// 2 for an updated row and 0 for an unchanged one.
// Errors of the connection are returned as they are.
func (u *Upsert) Execute(ctx context.Context) (int64, error) {
	stmt, err := u.Build()
	if err != nil {
		return 0, err
	}

	result, err := u.conn.ExecuteQuery(ctx, stmt.SQL, stmt.Params, stmt.Types)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
