package ckorm

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
)

// BoundStatement is SQL text plus its positional arguments, in placeholder order
type BoundStatement struct {
	SQL  string
	Args []interface{}
}

// Validate checks that the number of placeholders matches the number of arguments.
// Statements using named arguments (sql.Named, clickhouse.Named) or named
// placeholders (@name, {name:Type}) are not checked.
func (s BoundStatement) Validate() error {
	for _, a := range s.Args {
		switch a.(type) {
		case sql.NamedArg, driver.NamedValue, *driver.NamedValue:
			return nil
		}
	}
	question, numbered, named := countPlaceholders(s.SQL)
	if named > 0 {
		return nil
	}
	switch {
	case question > 0 && question != len(s.Args):
		return fmt.Errorf("ckorm: statement has %d placeholders but %d args", question, len(s.Args))
	case question == 0 && numbered == 0 && len(s.Args) > 0:
		return fmt.Errorf("ckorm: statement has no placeholders but %d args", len(s.Args))
	}
	return nil
}

// countPlaceholders 统计引号和注释之外的 ?、$N 与命名占位符（@name、ClickHouse 的 {name:Type}）
func countPlaceholders(query string) (question, numbered, named int) {
	var inSingle, inDouble, inBacktick, inLine, inBlock bool
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case inLine:
			inLine = c != '\n'
		case inBlock:
			if c == '*' && i+1 < len(query) && query[i+1] == '/' {
				inBlock = false
				i++
			}
		case inSingle:
			if c == '\\' {
				i++
			} else if c == '\'' {
				inSingle = false
			}
		case inDouble:
			inDouble = c != '"'
		case inBacktick:
			inBacktick = c != '`'
		case c == '\'':
			inSingle = true
		case c == '"':
			inDouble = true
		case c == '`':
			inBacktick = true
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			inLine = true
			i++
		case c == '/' && i+1 < len(query) && query[i+1] == '*':
			inBlock = true
			i++
		case c == '?':
			question++
		case c == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9':
			numbered++
		case c == '@' && i+1 < len(query) && isIdentStart(query[i+1]):
			named++
		case c == '{' && isTypedPlaceholder(query[i+1:]):
			named++
		}
	}
	return question, numbered, named
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

// isTypedPlaceholder 判断 rest 是否以 name:Type} 开头
func isTypedPlaceholder(rest string) bool {
	end := strings.IndexByte(rest, '}')
	if end <= 0 {
		return false
	}
	name, typ, ok := strings.Cut(rest[:end], ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.TrimSpace(typ) == "" || !isIdentStart(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		if !isAlphaNum(name[i]) {
			return false
		}
	}
	return true
}

// BuildUpdateByKey builds
//
//	ALTER TABLE <table> UPDATE <col> = ?, ... WHERE <pk> = ?
//
// from every non key column of entity, followed by the key value.
func BuildUpdateByKey(desc *EntityDescriptor, entity interface{}) (BoundStatement, error) {
	pk, err := desc.requirePrimaryKey()
	if err != nil {
		return BoundStatement{}, err
	}
	v, err := desc.entityValue(entity)
	if err != nil {
		return BoundStatement{}, &ConfigurationError{Type: desc.Type.String(), Reason: "update by key", Err: err}
	}

	var sb strings.Builder
	args := make([]interface{}, 0, len(desc.Columns))
	sb.WriteString("ALTER TABLE ")
	sb.WriteString(desc.Table)
	sb.WriteString(" UPDATE ")
	n := 0
	for i := range desc.Columns {
		col := &desc.Columns[i]
		if col.IsPrimaryKey {
			continue
		}
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col.ColumnName)
		sb.WriteString(" = ?")
		args = append(args, BindArg(desc.valueOf(v, col)))
		n++
	}
	if n == 0 {
		return BoundStatement{}, &ConfigurationError{Type: desc.Type.String(), Reason: "no non-key column to update"}
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(pk.ColumnName)
	sb.WriteString(" = ?")
	args = append(args, BindArg(desc.valueOf(v, pk)))

	return BoundStatement{SQL: sb.String(), Args: args}, nil
}

// BuildDeleteByKey builds ALTER TABLE <table> DELETE WHERE <pk> = ?
func BuildDeleteByKey(desc *EntityDescriptor, key interface{}) (BoundStatement, error) {
	pk, err := desc.requirePrimaryKey()
	if err != nil {
		return BoundStatement{}, err
	}
	return BoundStatement{
		SQL:  "ALTER TABLE " + desc.Table + " DELETE WHERE " + pk.ColumnName + " = ?",
		Args: []interface{}{BindArg(key)},
	}, nil
}

// BuildCount builds SELECT COUNT(*) AS count FROM <table> <where>
func BuildCount(table, where string) (string, error) {
	if err := validateIdentifier(table); err != nil {
		return "", err
	}
	return joinFragment("SELECT COUNT(*) AS count FROM "+table, where), nil
}

// BuildCountSubquery builds SELECT COUNT(t.*) AS count FROM (<sub>) t
func BuildCountSubquery(sub string) string {
	return "SELECT COUNT(t.*) AS count FROM (" + strings.TrimRight(strings.TrimSpace(sub), ";") + ") t"
}

// BuildPage builds SELECT * FROM <table> <where> LIMIT <offset>,<limit>
func BuildPage(table, where string, offset, limit int) (string, error) {
	if err := validateIdentifier(table); err != nil {
		return "", err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}
	return joinFragment("SELECT * FROM "+table, where) + fmt.Sprintf(" LIMIT %d,%d", offset, limit), nil
}

// BuildProbe builds SELECT * FROM <table> LIMIT 1, used to discover column types
func BuildProbe(table string) (string, error) {
	if err := validateIdentifier(table); err != nil {
		return "", err
	}
	return "SELECT * FROM " + table + " LIMIT 1", nil
}

// BuildInsert builds INSERT INTO <table> (<c1>, ...) VALUES (?, ...)
func BuildInsert(table string, columns []string) (string, error) {
	if err := validateIdentifier(table); err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("ckorm: insert into %s without columns", table)
	}
	for _, c := range columns {
		if err := validateColumnName(c); err != nil {
			return "", err
		}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + placeholders + ")", nil
}
