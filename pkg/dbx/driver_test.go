package dbx_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/godbcore/go-db-core/pkg/dbx"
)

// TestStatementKindOf verifies classification by leading keyword, tolerant of
// whitespace and case.
func TestStatementKindOf(t *testing.T) {
	tests := []struct {
		sql  string
		kind dbx.StatementKind
	}{
		{sql: "SELECT * FROM users", kind: dbx.StatementSelect},
		{sql: "  select 1", kind: dbx.StatementSelect},
		{sql: "\n\tSELECT id FROM t", kind: dbx.StatementSelect},
		{sql: "INSERT INTO t (a) VALUES (:a)", kind: dbx.StatementInsert},
		{sql: "insert into t values (1)", kind: dbx.StatementInsert},
		{sql: "UPDATE t SET a = :a", kind: dbx.StatementUpdate},
		{sql: "DELETE FROM t", kind: dbx.StatementDelete},
		{sql: "TRUNCATE t", kind: dbx.StatementOther},
		{sql: "WITH cte AS (SELECT 1) SELECT * FROM cte", kind: dbx.StatementSelect},
		{sql: "  with recursive r AS (SELECT 1) SELECT * FROM r", kind: dbx.StatementSelect},
		{sql: "WITH\ncte AS (SELECT 1) SELECT * FROM cte", kind: dbx.StatementSelect},
		{sql: "WITHDRAW", kind: dbx.StatementOther},
		{sql: "", kind: dbx.StatementOther},
		{sql: "SEL", kind: dbx.StatementOther},
		{sql: "WITH", kind: dbx.StatementOther},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.kind, dbx.StatementKindOf(tc.sql), "sql: %q", tc.sql)
	}
}

// TestBackendCode verifies SQLSTATE extraction through wrapped error chains.
func TestBackendCode(t *testing.T) {
	backend := &backendErr{msg: "unique violation", code: "23505"}

	assert.Equal(t, "23505", dbx.BackendCode(backend))
	assert.Equal(t, "23505", dbx.BackendCode(errors.WithMessage(backend, "executing statement")))
	assert.Equal(t, "", dbx.BackendCode(errors.New("plain failure")))
	assert.Equal(t, "", dbx.BackendCode(nil))
}
