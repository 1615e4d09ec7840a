// Package sqltool exposes the academic database to the agent as
// read-only tools: list tables, describe a table, run a SELECT.
package sqltool

import (
	"context"
	"fmt"
	"strings"

	"github.com/acadly/feedbackd/internal/agent"
	"github.com/acadly/feedbackd/internal/store"
)

// Querier is the slice of the store the tools need.
type Querier interface {
	ListTables(ctx context.Context) ([]string, error)
	DescribeTable(ctx context.Context, table string) ([]store.Column, error)
	ReadOnlyQuery(ctx context.Context, query string) ([]map[string]any, error)
}

// RegisterAll wires the three database tools into a registry.
func RegisterAll(r *agent.Registry, q Querier) {
	r.Register(listTables{q})
	r.Register(describeTable{q})
	r.Register(runQuery{q})
}

type listTables struct {
	q Querier
}

func (listTables) Name() string { return "list_tables" }
func (listTables) Description() string {
	return "List every table in the academic database. Takes no arguments."
}

func (t listTables) Call(ctx context.Context, _ map[string]any) (any, error) {
	tables, err := t.q.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"tables": tables}, nil
}

type describeTable struct {
	q Querier
}

func (describeTable) Name() string { return "describe_table" }
func (describeTable) Description() string {
	return `Show the columns of one table. Arguments: {"table": "table_name"}.`
}

func (t describeTable) Call(ctx context.Context, args map[string]any) (any, error) {
	table, err := stringArg(args, "table")
	if err != nil {
		return nil, err
	}
	cols, err := t.q.DescribeTable(ctx, table)
	if err != nil {
		return nil, err
	}
	return map[string]any{"table": table, "columns": cols}, nil
}

type runQuery struct {
	q Querier
}

func (runQuery) Name() string { return "run_query" }
func (runQuery) Description() string {
	return `Execute a single read-only SQL SELECT and return the rows. Arguments: {"query": "SELECT ..."}.`
}

func (t runQuery) Call(ctx context.Context, args map[string]any) (any, error) {
	query, err := stringArg(args, "query")
	if err != nil {
		return nil, err
	}
	rows, err := t.q.ReadOnlyQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return map[string]any{"rowCount": len(rows), "rows": rows}, nil
}

func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("parameter %s must be a non-empty string", key)
	}
	return strings.TrimSpace(s), nil
}
