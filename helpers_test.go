package upsert

import (
	"context"
)

// staticConnection renders for a fixed dialect and reports one affected row.
type staticConnection struct {
	dialect Dialect
	queries []string
}

func (c *staticConnection) Dialect() Dialect { return c.dialect }

func (c *staticConnection) ExecuteQuery(_ context.Context, query string, _ map[string]any, _ map[string]ParameterType) (Result, error) {
	c.queries = append(c.queries, query)
	return oneRow{}, nil
}

type oneRow struct{}

func (oneRow) RowsAffected() (int64, error) { return 1, nil }
