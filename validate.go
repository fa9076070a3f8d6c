package ckorm

import (
	"fmt"
	"regexp"
)

// ValidateTableName validates if table name is valid (public interface)
// Can be called externally to validate table names in advance
func ValidateTableName(table string) error {
	return validateIdentifier(table)
}

// Pre-compiled regular expressions for better performance
var (
	// identifierPattern matches valid SQL identifiers
	// Supported formats: table_name, database.table_name
	identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

	// columnPattern is identifierPattern without the database qualifier
	columnPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

const (
	// Maximum identifier length
	maxIdentifierLength = 128
)

// ErrInvalidTableName represents an invalid table name error
type ErrInvalidTableName struct {
	Name   string
	Reason string
}

func (e *ErrInvalidTableName) Error() string {
	return fmt.Sprintf("invalid table name '%s': %s", e.Name, e.Reason)
}

// validateIdentifier validates SQL identifiers (table names)
// Rules:
//   - Length between 1-128 characters
//   - Starts with letter or underscore
//   - Contains only letters, digits, underscores
//   - Optional support for database.table format
func validateIdentifier(name string) error {
	if name == "" {
		return &ErrInvalidTableName{Name: name, Reason: "name cannot be empty"}
	}

	if len(name) > maxIdentifierLength {
		return &ErrInvalidTableName{Name: name, Reason: fmt.Sprintf("name exceeds maximum length of %d characters", maxIdentifierLength)}
	}

	if !identifierPattern.MatchString(name) {
		return &ErrInvalidTableName{Name: name, Reason: "name contains invalid characters or format (only letters, numbers, underscores allowed; must start with letter or underscore; optional database.table format)"}
	}

	return nil
}

// validateColumnName 校验列名，不允许 database 前缀
func validateColumnName(name string) error {
	if name == "" || len(name) > maxIdentifierLength || !columnPattern.MatchString(name) {
		return fmt.Errorf("invalid column name '%s'", name)
	}
	return nil
}
