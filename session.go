package upsert

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// Executor defines the common database operations for both DB and Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

// Session manages the database connection and current transaction.
// It implements Connection.
type Session struct {
	db       *sqlx.DB // Underlying DB for starting transactions
	executor Executor // Current executor (DB or Tx)
	dialect  Dialect
	obs      *ObservabilityConfig
}

var _ Connection = (*Session)(nil)

func NewSession(db *sql.DB, dialect Dialect, opts ...SessionOption) *Session {
	xdb := sqlx.NewDb(db, dialect.Name())
	s := &Session{
		db:       xdb,
		executor: xdb,
		dialect:  dialect,
		obs:      defaultObservabilityConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dialect returns the session's dialect.
func (s *Session) Dialect() Dialect {
	return s.dialect
}

// DB returns the underlying sqlx handle.
func (s *Session) DB() *sqlx.DB {
	return s.db
}

// ExecuteQuery binds params according to types, rewrites the named placeholders
// of query into the dialect's format and executes it.
func (s *Session) ExecuteQuery(ctx context.Context, query string, params map[string]any, types map[string]ParameterType) (Result, error) {
	args, err := bindParams(params, types)
	if err != nil {
		return nil, err
	}

	bound, list, err := sqlx.Named(query, args)
	if err != nil {
		return nil, err
	}
	bound, err = s.dialect.PlaceholderFormat().ReplacePlaceholders(bound)
	if err != nil {
		return nil, err
	}
	return s.Exec(ctx, bound, list...)
}

// Exec executes a positional statement on the current executor.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := s.observe(ctx, "exec", query, func(ctx context.Context) error {
		var err error
		result, err = s.executor.ExecContext(ctx, query, args...)
		return err
	})
	return result, err
}

func (s *Session) Select(ctx context.Context, dest any, query string, args ...any) error {
	return s.executor.SelectContext(ctx, dest, query, args...)
}

func (s *Session) Get(ctx context.Context, dest any, query string, args ...any) error {
	return s.executor.GetContext(ctx, dest, query, args...)
}

func (s *Session) Begin(ctx context.Context) (*Session, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	// Return new Session where executor is the transaction
	return &Session{
		db:       s.db,
		executor: tx,
		dialect:  s.dialect,
		obs:      s.obs,
	}, nil
}

func (s *Session) Commit() error {
	if tx, ok := s.executor.(*sqlx.Tx); ok {
		return tx.Commit()
	}
	return sql.ErrTxDone
}

func (s *Session) Rollback() error {
	if tx, ok := s.executor.(*sqlx.Tx); ok {
		return tx.Rollback()
	}
	return sql.ErrTxDone
}

// Transaction executes a function within a transaction
func (s *Session) Transaction(ctx context.Context, fn func(txSession *Session) error) (err error) {
	// Check if already in transaction
	if _, ok := s.executor.(*sqlx.Tx); ok {
		return fn(s)
	}

	txSession, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = txSession.Rollback()
			panic(p)
		} else if err != nil {
			_ = txSession.Rollback()
		}
	}()

	err = fn(txSession)
	if err != nil {
		return err
	}

	return txSession.Commit()
}
