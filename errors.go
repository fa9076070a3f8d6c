package ckorm

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoResult is returned by SelectOne and SelectScalar when the query produced no rows.
	// It wraps sql.ErrNoRows, so errors.Is(err, sql.ErrNoRows) also holds.
	ErrNoResult = fmt.Errorf("ckorm: no result: %w", sql.ErrNoRows)

	// ErrClosed is returned by operations on a DB after Close.
	ErrClosed = errors.New("ckorm: db is closed")

	// ErrNoPrimaryKey is wrapped by the ConfigurationError of key based operations
	// on an entity without a pk column.
	ErrNoPrimaryKey = errors.New("ckorm: entity has no primary key")

	// ErrSequenceConsumed is yielded when a mapped row sequence is ranged over twice.
	ErrSequenceConsumed = errors.New("ckorm: row sequence already consumed")
)

// ConfigurationError reports missing or inconsistent entity metadata.
type ConfigurationError struct {
	Type   string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := "ckorm: configuration error"
	if e.Type != "" {
		msg += " for " + e.Type
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ConnectionError reports that the connection provider could not produce a connection.
type ConnectionError struct {
	DB  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ckorm: cannot acquire connection for %s: %v", e.DB, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SQLExecutionError reports a driver failure during prepare, execute or scan.
type SQLExecutionError struct {
	Op   string
	SQL  string
	Args []interface{}
	Err  error
}

func (e *SQLExecutionError) Error() string {
	if e.SQL == "" {
		return fmt.Sprintf("ckorm: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ckorm: %s failed [%s]: %v", e.Op, cleanSQL(e.SQL), e.Err)
}

func (e *SQLExecutionError) Unwrap() error { return e.Err }

// MappingError reports a failure to populate a record field from a result column.
type MappingError struct {
	Type   string
	Column string
	Field  string
	Err    error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("ckorm: cannot map column %s to %s.%s: %v", e.Column, e.Type, e.Field, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// BatchError is returned when a batch insert fails part way.
// Chunks flushed before the failure stay written.
type BatchError struct {
	Table       string
	BatchID     string
	FlushedRows int
	Err         error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("ckorm: batch insert into %s aborted after %d flushed rows (batch %s): %v",
		e.Table, e.FlushedRows, e.BatchID, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

func execError(op, query string, args []interface{}, err error) error {
	if err == nil {
		return nil
	}
	var se *SQLExecutionError
	if errors.As(err, &se) {
		return err
	}
	return &SQLExecutionError{Op: op, SQL: query, Args: args, Err: err}
}

// isBadConnError 检查是否是连接失效错误
func isBadConnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "invalid connection") ||
		strings.Contains(errStr, "bad connection") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "broken pipe")
}
