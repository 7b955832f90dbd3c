package errorx

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Database error taxonomy. Every failure crossing the dbx boundary is one of
// these kinds, so callers can match on the concrete type (or use the Is*
// predicates) instead of parsing messages.

// CONNECT FAILED:

// ConnectFailedError - the underlying database connection could not be established.
type ConnectFailedError struct {
	message string
	err     error
}

// NewConnectFailedError - ConnectFailedError constructor.
func NewConnectFailedError(msg string, args ...any) *ConnectFailedError {
	return &ConnectFailedError{message: fmt.Sprintf(msg, args...)}
}

// NewConnectFailedErrorWrapper - ConnectFailedError constructor for wrapper of another error.
func NewConnectFailedErrorWrapper(err error, msg string, args ...any) *ConnectFailedError {
	return &ConnectFailedError{message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (e *ConnectFailedError) Error() string {
	if e.err != nil {
		return fmt.Errorf("%s: %w", e.message, e.err).Error()
	}

	return e.message
}

// Unwrap - return the wrapped error.
func (e *ConnectFailedError) Unwrap() error { return e.err }

// POOL EXHAUSTED:

// PoolExhaustedError - the pool reached max size and no connection is available.
// Distinct from ConnectFailedError so callers can tell "backend is down" from
// "we are at capacity" and back off accordingly.
type PoolExhaustedError struct {
	message string
}

// NewPoolExhaustedError - PoolExhaustedError constructor.
func NewPoolExhaustedError(msg string, args ...any) *PoolExhaustedError {
	return &PoolExhaustedError{message: fmt.Sprintf(msg, args...)}
}

// Error - return the error string.
func (e *PoolExhaustedError) Error() string { return e.message }

// PREPARE ERROR:

// PrepareError - statement preparation failed.
type PrepareError struct {
	message string
	err     error
}

// NewPrepareError - PrepareError constructor.
func NewPrepareError(msg string, args ...any) *PrepareError {
	return &PrepareError{message: fmt.Sprintf(msg, args...)}
}

// NewPrepareErrorWrapper - PrepareError constructor for wrapper of another error.
func NewPrepareErrorWrapper(err error, msg string, args ...any) *PrepareError {
	return &PrepareError{message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (e *PrepareError) Error() string {
	if e.err != nil {
		return fmt.Errorf("%s: %w", e.message, e.err).Error()
	}

	return e.message
}

// Unwrap - return the wrapped error.
func (e *PrepareError) Unwrap() error { return e.err }

// BIND ERROR:

// BindError - parameter binding failed (no prepared statement, or unsupported value).
type BindError struct {
	message string
}

// NewBindError - BindError constructor.
func NewBindError(msg string, args ...any) *BindError {
	return &BindError{message: fmt.Sprintf(msg, args...)}
}

// Error - return the error string.
func (e *BindError) Error() string { return e.message }

// EXECUTE ERROR:

// ExecuteError - statement execution failed. It carries the offending query,
// its bindings, whether a transaction was active and the backend error code.
type ExecuteError struct {
	message       string
	err           error
	Query         string
	Bindings      map[string]any
	InTransaction bool
	BackendCode   string
}

// NewExecuteError - ExecuteError constructor.
func NewExecuteError(msg string, args ...any) *ExecuteError {
	return &ExecuteError{message: fmt.Sprintf(msg, args...)}
}

// NewExecuteErrorWrapper - ExecuteError constructor for wrapper of another error.
func NewExecuteErrorWrapper(err error, msg string, args ...any) *ExecuteError {
	return &ExecuteError{message: fmt.Sprintf(msg, args...), err: err}
}

// WithContext - attach the structured execution context to the error.
func (e *ExecuteError) WithContext(query string, bindings map[string]any, inTx bool, backendCode string) *ExecuteError {
	e.Query = query
	e.Bindings = bindings
	e.InTransaction = inTx
	e.BackendCode = backendCode

	return e
}

// Error - return the error string.
func (e *ExecuteError) Error() string {
	if e.err != nil {
		return fmt.Errorf("%s: %w", e.message, e.err).Error()
	}

	return e.message
}

// Unwrap - return the wrapped error.
func (e *ExecuteError) Unwrap() error { return e.err }

// ContextJSON - serialize the execution context for diagnostics sinks.
func (e *ExecuteError) ContextJSON() string {
	data, err := json.Marshal(map[string]any{
		"query":         e.Query,
		"bindings":      e.Bindings,
		"inTransaction": e.InTransaction,
		"backendCode":   e.BackendCode,
	})
	if err != nil {
		return ""
	}

	return string(data)
}

// FETCH ERROR:

// FetchError - reading results from an executed statement failed.
type FetchError struct {
	message string
	err     error
}

// NewFetchError - FetchError constructor.
func NewFetchError(msg string, args ...any) *FetchError {
	return &FetchError{message: fmt.Sprintf(msg, args...)}
}

// NewFetchErrorWrapper - FetchError constructor for wrapper of another error.
func NewFetchErrorWrapper(err error, msg string, args ...any) *FetchError {
	return &FetchError{message: fmt.Sprintf(msg, args...), err: err}
}

// Error - return the error string.
func (e *FetchError) Error() string {
	if e.err != nil {
		return fmt.Errorf("%s: %w", e.message, e.err).Error()
	}

	return e.message
}

// Unwrap - return the wrapped error.
func (e *FetchError) Unwrap() error { return e.err }

// NO STATEMENT EXECUTED:

// NoStatementExecutedError - fetch was called before any successful execute.
type NoStatementExecutedError struct {
	message string
}

// NewNoStatementExecutedError - NoStatementExecutedError constructor.
func NewNoStatementExecutedError(msg string, args ...any) *NoStatementExecutedError {
	return &NoStatementExecutedError{message: fmt.Sprintf(msg, args...)}
}

// Error - return the error string.
func (e *NoStatementExecutedError) Error() string { return e.message }

// TRANSACTION ALREADY OPEN:

// TransactionAlreadyOpenError - beginTransaction on an executor that already
// holds a transaction or a connection.
type TransactionAlreadyOpenError struct {
	message string
}

// NewTransactionAlreadyOpenError - TransactionAlreadyOpenError constructor.
func NewTransactionAlreadyOpenError(msg string, args ...any) *TransactionAlreadyOpenError {
	return &TransactionAlreadyOpenError{message: fmt.Sprintf(msg, args...)}
}

// Error - return the error string.
func (e *TransactionAlreadyOpenError) Error() string { return e.message }

// NO ACTIVE TRANSACTION:

// NoActiveTransactionError - commit/rollback without an open transaction.
type NoActiveTransactionError struct {
	message string
}

// NewNoActiveTransactionError - NoActiveTransactionError constructor.
func NewNoActiveTransactionError(msg string, args ...any) *NoActiveTransactionError {
	return &NoActiveTransactionError{message: fmt.Sprintf(msg, args...)}
}

// Error - return the error string.
func (e *NoActiveTransactionError) Error() string { return e.message }

// PREDICATES:

// IsConnectFailed - report whether err is a ConnectFailedError.
func IsConnectFailed(err error) bool {
	var target *ConnectFailedError
	return errors.As(err, &target)
}

// IsPoolExhausted - report whether err is a PoolExhaustedError.
func IsPoolExhausted(err error) bool {
	var target *PoolExhaustedError
	return errors.As(err, &target)
}

// IsPrepareError - report whether err is a PrepareError.
func IsPrepareError(err error) bool {
	var target *PrepareError
	return errors.As(err, &target)
}

// IsBindError - report whether err is a BindError.
func IsBindError(err error) bool {
	var target *BindError
	return errors.As(err, &target)
}

// IsExecuteError - report whether err is an ExecuteError.
func IsExecuteError(err error) bool {
	var target *ExecuteError
	return errors.As(err, &target)
}

// IsFetchError - report whether err is a FetchError.
func IsFetchError(err error) bool {
	var target *FetchError
	return errors.As(err, &target)
}

// IsNoStatementExecuted - report whether err is a NoStatementExecutedError.
func IsNoStatementExecuted(err error) bool {
	var target *NoStatementExecutedError
	return errors.As(err, &target)
}

// IsTransactionAlreadyOpen - report whether err is a TransactionAlreadyOpenError.
func IsTransactionAlreadyOpen(err error) bool {
	var target *TransactionAlreadyOpenError
	return errors.As(err, &target)
}

// IsNoActiveTransaction - report whether err is a NoActiveTransactionError.
func IsNoActiveTransaction(err error) bool {
	var target *NoActiveTransactionError
	return errors.As(err, &target)
}
