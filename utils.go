package ckorm

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
)

// ToJson converts any record, Row or Page to a JSON string.
// Typed nil and marshal failures give "{}"; HTML characters are not escaped.
func ToJson(v interface{}) string {
	if isNil(v) {
		return "{}"
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "{}"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// isNil checks if an interface is truly nil, including typed nil pointers.
func isNil(i interface{}) bool {
	if i == nil {
		return true
	}
	v := reflect.ValueOf(i)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Ptr, reflect.UnsafePointer, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// joinFragment 把调用方传入的 where/order 片段拼到语句后面
// 片段原样拼接（调用方负责其内容），只保证中间有一个空格
func joinFragment(stmt, fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return stmt
	}
	if strings.HasPrefix(fragment, " ") {
		return stmt + fragment
	}
	return stmt + " " + fragment
}

// stripOrderBy 去掉最外层的 ORDER BY 子句，COUNT 不需要排序
func stripOrderBy(fragment string) string {
	if idx := findKeywordIgnoringQuotes(fragment, "ORDER BY", -1); idx != -1 {
		return strings.TrimRight(fragment[:idx], " \t\r\n")
	}
	return fragment
}

// ClickHouse 中位于 LIMIT 之后的尾部子句
var trailingClauses = []string{"SETTINGS", "FORMAT"}

// addLimitOne 给查询加上 LIMIT 1，已有 LIMIT 的语句保持不变。
// LIMIT 插在最外层的 SETTINGS / FORMAT 之前
func addLimitOne(querySQL string) string {
	trimmed := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(querySQL), ";"))
	if findKeywordIgnoringQuotes(trimmed, "LIMIT", -1) != -1 {
		return trimmed
	}
	cut := len(trimmed)
	for _, kw := range trailingClauses {
		if idx := findKeywordIgnoringQuotes(trimmed, kw, 1); idx != -1 && idx < cut {
			cut = idx
		}
	}
	head := strings.TrimRight(trimmed[:cut], " \t\r\n")
	if cut == len(trimmed) {
		return head + " LIMIT 1"
	}
	return head + " LIMIT 1 " + trimmed[cut:]
}

// findKeywordIgnoringQuotes 在 SQL 中寻找最外层（括号之外）的关键字，跳过引号内的字符串和注释，不区分大小写
// direction: 1 返回第一个匹配位置，-1 返回最后一个匹配位置
func findKeywordIgnoringQuotes(sql, keyword string, direction int) int {
	kwLen := len(keyword)
	if kwLen == 0 || len(sql) < kwLen {
		return -1
	}

	upperSQL := strings.ToUpper(sql)
	upperKW := strings.ToUpper(keyword)

	var (
		inSingle, inDouble, inBacktick bool
		inLineComment, inBlockComment  bool
		escaped                        bool
		depth                          int
		lastPos                        = -1
	)

	// 反向查找也走一次正向扫描，记录最后一个合法位置
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		quoted := inSingle || inDouble || inBacktick

		switch {
		case inLineComment:
			if c == '\n' {
				inLineComment = false
			}
			continue
		case inBlockComment:
			if c == '*' && i+1 < len(sql) && sql[i+1] == '/' {
				inBlockComment = false
				i++
			}
			continue
		case !quoted && c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			inLineComment = true
			i++
			continue
		case !quoted && c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			inBlockComment = true
			i++
			continue
		}

		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if quoted {
				escaped = true
			}
			continue
		case '\'':
			if !inDouble && !inBacktick {
				// 标准 SQL 转义 ''
				if inSingle && i+1 < len(sql) && sql[i+1] == '\'' {
					i++
					continue
				}
				inSingle = !inSingle
			}
			continue
		case '"':
			if !inSingle && !inBacktick {
				inDouble = !inDouble
			}
			continue
		case '`':
			if !inSingle && !inDouble {
				inBacktick = !inBacktick
			}
			continue
		case '(':
			if !quoted {
				depth++
			}
			continue
		case ')':
			if !quoted && depth > 0 {
				depth--
			}
			continue
		}

		if quoted || depth > 0 || i+kwLen > len(sql) || upperSQL[i:i+kwLen] != upperKW {
			continue
		}
		// 边界检查：前后不能是字母数字或下划线
		if (i == 0 || !isAlphaNum(sql[i-1])) && (i+kwLen == len(sql) || !isAlphaNum(sql[i+kwLen])) {
			if direction > 0 {
				return i
			}
			lastPos = i
		}
	}

	return lastPos
}

func isAlphaNum(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
}
