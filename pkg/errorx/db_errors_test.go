package errorx_test

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godbcore/go-db-core/pkg/errorx"
)

// TestErrorPredicates verifies each taxonomy kind matches its own predicate
// and no other, including through wrapped chains.
func TestErrorPredicates(t *testing.T) {
	cause := errors.New("backend says no")

	tests := []struct {
		name  string
		err   error
		match func(error) bool
	}{
		{name: "connect failed", err: errorx.NewConnectFailedErrorWrapper(cause, "connecting"), match: errorx.IsConnectFailed},
		{name: "pool exhausted", err: errorx.NewPoolExhaustedError("at capacity"), match: errorx.IsPoolExhausted},
		{name: "prepare", err: errorx.NewPrepareErrorWrapper(cause, "preparing"), match: errorx.IsPrepareError},
		{name: "bind", err: errorx.NewBindError("no statement"), match: errorx.IsBindError},
		{name: "execute", err: errorx.NewExecuteErrorWrapper(cause, "executing"), match: errorx.IsExecuteError},
		{name: "fetch", err: errorx.NewFetchErrorWrapper(cause, "fetching"), match: errorx.IsFetchError},
		{name: "no statement executed", err: errorx.NewNoStatementExecutedError("fetch too early"), match: errorx.IsNoStatementExecuted},
		{name: "tx already open", err: errorx.NewTransactionAlreadyOpenError("nested begin"), match: errorx.IsTransactionAlreadyOpen},
		{name: "no active tx", err: errorx.NewNoActiveTransactionError("commit too early"), match: errorx.IsNoActiveTransaction},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.match(tc.err))
			assert.True(t, tc.match(errors.WithMessage(tc.err, "outer context")))
			assert.False(t, tc.match(errors.New("unrelated")))
		})
	}

	// Kinds stay distinct.
	assert.False(t, errorx.IsPoolExhausted(errorx.NewConnectFailedError("down")))
	assert.False(t, errorx.IsConnectFailed(errorx.NewPoolExhaustedError("full")))
}

// TestErrorMessageWrapping verifies wrapped causes appear in the message and
// stay reachable through Unwrap.
func TestErrorMessageWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := errorx.NewConnectFailedErrorWrapper(cause, "Error establishing connection to %s", "db.internal:5432")

	assert.Contains(t, err.Error(), "db.internal:5432")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, cause, errors.Unwrap(err))
}

// TestExecuteErrorContext verifies the execution context round-trips through
// ContextJSON.
func TestExecuteErrorContext(t *testing.T) {
	err := errorx.NewExecuteErrorWrapper(errors.New("unique violation"), "Error executing statement").
		WithContext(
			"INSERT INTO users (name) VALUES (:name)",
			map[string]any{"name": "greta"},
			true,
			"23505",
		)

	assert.Equal(t, "INSERT INTO users (name) VALUES (:name)", err.Query)
	assert.Equal(t, "23505", err.BackendCode)
	assert.True(t, err.InTransaction)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(err.ContextJSON()), &decoded))
	assert.Equal(t, "23505", decoded["backendCode"])
	assert.Equal(t, true, decoded["inTransaction"])
	assert.Equal(t, "greta", decoded["bindings"].(map[string]any)["name"])
}

// TestGeneralError verifies the base error type formats and unwraps.
func TestGeneralError(t *testing.T) {
	plain := errorx.NewGeneralError("something %s happened", "odd")
	assert.Equal(t, "something odd happened", plain.Error())

	cause := errors.New("root cause")
	wrapped := errorx.NewGeneralErrorWrapper(cause, "outer")
	assert.Contains(t, wrapped.Error(), "root cause")
	assert.Equal(t, cause, errors.Unwrap(wrapped))
}
