package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// tableDDL cuts one CREATE TABLE block out of the schema.
func tableDDL(t *testing.T, name string) string {
	t.Helper()
	marker := "CREATE TABLE IF NOT EXISTS " + name + " ("
	start := strings.Index(schema, marker)
	require.NotEqual(t, -1, start, "schema must declare %s", name)
	rest := schema[start:]
	end := strings.Index(rest, ");")
	require.NotEqual(t, -1, end)
	return rest[:end]
}

func TestAuditLogsDeclaresInsertedColumns(t *testing.T) {
	ddl := tableDDL(t, "audit_logs")

	// Mirrors the column list AuditLogger.Record inserts into.
	for _, col := range []string{"actor_id", "action", "entity", "entity_id", "meta", "occurred_at"} {
		require.Contains(t, ddl, col, "audit_logs insert targets %s", col)
	}
}

func TestSalesTablesKeyedByBusinessDate(t *testing.T) {
	require.Contains(t, tableDDL(t, "sales"), "business_date")
	require.Contains(t, tableDDL(t, "daily_sales"), "business_date")
	require.Contains(t, tableDDL(t, "daily_sales"), "PRIMARY KEY")
}
