package dbx

import (
	"context"
	"strconv"
	"strings"
)

// Statement builders compose SQL text plus named bindings and delegate
// execution to a QueryExecutor. They are thin composition: all pooling,
// transaction and release behavior stays in the executor.

// SelectBuilder builds and runs a SELECT statement.
type SelectBuilder struct {
	exec      *QueryExecutor
	table     string
	columns   []string
	whereExpr string
	binds     map[string]any
	orderBy   []string
	limitSet  bool
	limit     int
	offsetSet bool
	offset    int
}

// NewSelect - SelectBuilder constructor.
func NewSelect(exec *QueryExecutor) *SelectBuilder {
	return &SelectBuilder{exec: exec, binds: make(map[string]any)}
}

// Table sets the target table.
func (b *SelectBuilder) Table(name string) *SelectBuilder {
	b.table = name
	return b
}

// Columns specifies the columns to retrieve; all columns when empty.
func (b *SelectBuilder) Columns(columns ...string) *SelectBuilder {
	b.columns = append(b.columns, columns...)
	return b
}

// Where adds an AND condition with :name placeholders.
func (b *SelectBuilder) Where(cond string) *SelectBuilder {
	b.whereExpr = appendCondition(b.whereExpr, cond, "AND")
	return b
}

// OrWhere adds an OR condition with :name placeholders.
func (b *SelectBuilder) OrWhere(cond string) *SelectBuilder {
	b.whereExpr = appendCondition(b.whereExpr, cond, "OR")
	return b
}

// Bind attaches a value for a :name placeholder used in a condition.
func (b *SelectBuilder) Bind(name string, value any) *SelectBuilder {
	b.binds[NormalizeBindName(name)] = value
	return b
}

// OrderBy adds ORDER BY columns (e.g. "id DESC").
func (b *SelectBuilder) OrderBy(columns ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, columns...)
	return b
}

// Limit caps the number of returned rows.
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limitSet = true
	b.limit = n

	return b
}

// Offset skips the first n rows.
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offsetSet = true
	b.offset = n

	return b
}

// Build generates the SELECT statement text.
func (b *SelectBuilder) Build() string {
	var sb strings.Builder

	sb.WriteString("SELECT ")

	if len(b.columns) > 0 {
		sb.WriteString(strings.Join(b.columns, ", "))
	} else {
		sb.WriteString("*")
	}

	sb.WriteString(" FROM ")
	sb.WriteString(b.table)

	if b.whereExpr != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(b.whereExpr)
	}

	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}

	if b.limitSet {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(b.limit))
	}

	if b.offsetSet {
		sb.WriteString(" OFFSET ")
		sb.WriteString(strconv.Itoa(b.offset))
	}

	return sb.String()
}

// FetchAll executes the built statement and returns every row.
func (b *SelectBuilder) FetchAll(ctx context.Context) ([]map[string]any, error) {
	if err := runStatement(ctx, b.exec, b.Build(), b.binds); err != nil {
		return nil, err
	}

	return b.exec.FetchAll(ctx)
}

// FetchOne executes the built statement and returns the first row.
func (b *SelectBuilder) FetchOne(ctx context.Context) (map[string]any, error) {
	if err := runStatement(ctx, b.exec, b.Build(), b.binds); err != nil {
		return nil, err
	}

	return b.exec.FetchOne(ctx)
}

// FetchColumn executes the built statement and returns the first column of
// the first row.
func (b *SelectBuilder) FetchColumn(ctx context.Context) (any, error) {
	if err := runStatement(ctx, b.exec, b.Build(), b.binds); err != nil {
		return nil, err
	}

	return b.exec.FetchColumn(ctx)
}

// InsertBuilder builds and runs an INSERT statement.
type InsertBuilder struct {
	exec    *QueryExecutor
	table   string
	columns []string
	values  map[string]any
}

// NewInsert - InsertBuilder constructor.
func NewInsert(exec *QueryExecutor) *InsertBuilder {
	return &InsertBuilder{exec: exec, values: make(map[string]any)}
}

// Table sets the target table.
func (b *InsertBuilder) Table(name string) *InsertBuilder {
	b.table = name
	return b
}

// Set assigns a column value. Column order in the generated statement
// follows the call order.
func (b *InsertBuilder) Set(column string, value any) *InsertBuilder {
	if _, exists := b.values[column]; !exists {
		b.columns = append(b.columns, column)
	}

	b.values[column] = value

	return b
}

// Build generates the INSERT statement text with :column placeholders.
func (b *InsertBuilder) Build() string {
	placeholders := make([]string, len(b.columns))
	for i, column := range b.columns {
		placeholders[i] = ":" + column
	}

	var sb strings.Builder

	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.table)
	sb.WriteString(" (")
	sb.WriteString(strings.Join(b.columns, ", "))
	sb.WriteString(") VALUES (")
	sb.WriteString(strings.Join(placeholders, ", "))
	sb.WriteString(")")

	return sb.String()
}

// Exec executes the built statement. Affected rows and the last inserted id
// stay retrievable on the executor.
func (b *InsertBuilder) Exec(ctx context.Context) error {
	return runStatement(ctx, b.exec, b.Build(), b.values)
}

// UpdateBuilder builds and runs an UPDATE statement.
type UpdateBuilder struct {
	exec      *QueryExecutor
	table     string
	columns   []string
	values    map[string]any
	whereExpr string
	binds     map[string]any
}

// NewUpdate - UpdateBuilder constructor.
func NewUpdate(exec *QueryExecutor) *UpdateBuilder {
	return &UpdateBuilder{exec: exec, values: make(map[string]any), binds: make(map[string]any)}
}

// Table sets the target table.
func (b *UpdateBuilder) Table(name string) *UpdateBuilder {
	b.table = name
	return b
}

// Set assigns a column value.
func (b *UpdateBuilder) Set(column string, value any) *UpdateBuilder {
	if _, exists := b.values[column]; !exists {
		b.columns = append(b.columns, column)
	}

	b.values[column] = value

	return b
}

// Where adds an AND condition with :name placeholders.
func (b *UpdateBuilder) Where(cond string) *UpdateBuilder {
	b.whereExpr = appendCondition(b.whereExpr, cond, "AND")
	return b
}

// Bind attaches a value for a :name placeholder used in a condition.
func (b *UpdateBuilder) Bind(name string, value any) *UpdateBuilder {
	b.binds[NormalizeBindName(name)] = value
	return b
}

// Build generates the UPDATE statement text with :column placeholders.
func (b *UpdateBuilder) Build() string {
	var sb strings.Builder

	sb.WriteString("UPDATE ")
	sb.WriteString(b.table)
	sb.WriteString(" SET ")

	for i, column := range b.columns {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString(column)
		sb.WriteString(" = :")
		sb.WriteString(column)
	}

	if b.whereExpr != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(b.whereExpr)
	}

	return sb.String()
}

// Exec executes the built statement.
func (b *UpdateBuilder) Exec(ctx context.Context) error {
	binds := make(map[string]any, len(b.values)+len(b.binds))
	for name, value := range b.values {
		binds[name] = value
	}

	for name, value := range b.binds {
		binds[name] = value
	}

	return runStatement(ctx, b.exec, b.Build(), binds)
}

// DeleteBuilder builds and runs a DELETE statement.
type DeleteBuilder struct {
	exec      *QueryExecutor
	table     string
	whereExpr string
	binds     map[string]any
}

// NewDelete - DeleteBuilder constructor.
func NewDelete(exec *QueryExecutor) *DeleteBuilder {
	return &DeleteBuilder{exec: exec, binds: make(map[string]any)}
}

// Table sets the target table.
func (b *DeleteBuilder) Table(name string) *DeleteBuilder {
	b.table = name
	return b
}

// Where adds an AND condition with :name placeholders.
func (b *DeleteBuilder) Where(cond string) *DeleteBuilder {
	b.whereExpr = appendCondition(b.whereExpr, cond, "AND")
	return b
}

// Bind attaches a value for a :name placeholder used in a condition.
func (b *DeleteBuilder) Bind(name string, value any) *DeleteBuilder {
	b.binds[NormalizeBindName(name)] = value
	return b
}

// Build generates the DELETE statement text.
func (b *DeleteBuilder) Build() string {
	var sb strings.Builder

	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.table)

	if b.whereExpr != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(b.whereExpr)
	}

	return sb.String()
}

// Exec executes the built statement.
func (b *DeleteBuilder) Exec(ctx context.Context) error {
	return runStatement(ctx, b.exec, b.Build(), b.binds)
}

func appendCondition(expr, cond, op string) string {
	if cond == "" {
		return expr
	}

	if expr == "" {
		return "(" + cond + ")"
	}

	return expr + " " + op + " (" + cond + ")"
}

func runStatement(ctx context.Context, exec *QueryExecutor, sql string, binds map[string]any) error {
	if err := exec.Prepare(ctx, sql); err != nil {
		return err
	}

	for name, value := range binds {
		if err := exec.Bind(name, value); err != nil {
			return err
		}
	}

	return exec.Execute(ctx)
}
