package upsert

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		name string
		want Dialect
	}{
		{"mysql", MySQL},
		{"MariaDB", MySQL},
		{"tidb", MySQL},
		{"postgres", PostgreSQL},
		{" postgresql ", PostgreSQL},
		{"pgx", PostgreSQL},
		{"sqlite", SQLite},
		{"sqlite3", SQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDialect(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDialect("oracle")
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestDialectNames(t *testing.T) {
	assert.Equal(t, "mysql", MySQL.Name())
	assert.Equal(t, "postgres", PostgreSQL.Name())
	assert.Equal(t, "sqlite3", SQLite.Name())

	assert.Equal(t, sq.Question, MySQL.PlaceholderFormat())
	assert.Equal(t, sq.Dollar, PostgreSQL.PlaceholderFormat())
	assert.Equal(t, sq.Question, SQLite.PlaceholderFormat())
}

func TestUpsertClause(t *testing.T) {
	conflict := []string{"tenant", "id"}
	updates := []string{"name", "seen"}

	assert.Equal(t, "ON DUPLICATE KEY UPDATE name = :name, seen = :seen", MySQL.UpsertClause(conflict, updates))
	assert.Equal(t, "ON CONFLICT (tenant, id) DO UPDATE SET name = :name, seen = :seen", PostgreSQL.UpsertClause(conflict, updates))
	assert.Equal(t, "ON CONFLICT(tenant, id) DO UPDATE SET name = :name, seen = :seen", SQLite.UpsertClause(conflict, updates))

	assert.Equal(t, "ON DUPLICATE KEY UPDATE tenant = tenant", MySQL.UpsertClause(conflict, nil))
	assert.Equal(t, "ON CONFLICT (tenant, id) DO NOTHING", PostgreSQL.UpsertClause(conflict, nil))
	assert.Equal(t, "ON CONFLICT(tenant, id) DO NOTHING", SQLite.UpsertClause(conflict, nil))
}

func TestQuoteTable(t *testing.T) {
	assert.Equal(t, `"users"`, PostgreSQL.QuoteTable("users"))
	assert.Equal(t, `"public"."users"`, PostgreSQL.QuoteTable("public.users"))
	assert.Equal(t, `"we""ird"`, PostgreSQL.QuoteTable(`we"ird`))
}

func TestRenderUpsertUnsupported(t *testing.T) {
	_, err := renderUpsert(nil, "t", []string{"a"}, []string{"a"}, nil)
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
	assert.Contains(t, err.Error(), "<nil>")
}
