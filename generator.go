package ckorm

import (
	"context"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"strings"
)

// GenerateOptions controls entity source generation
type GenerateOptions struct {
	Package    string // 默认 models
	StructName string // 默认由表名转换，如 page_views -> PageViews
	PrimaryKey string // 标记为 pk 的列，为空时不生成 pk
}

// GenerateEntity probes table and returns Go source for an entity struct whose
// column tags match the table layout, with a TableName method.
func (db *DB) GenerateEntity(ctx context.Context, table string, opts GenerateOptions) ([]byte, error) {
	ci, err := db.Probe(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(ci.Columns) == 0 {
		return nil, fmt.Errorf("no columns found for table '%s'", table)
	}
	return GenerateEntitySource(ci, opts)
}

// GenerateEntityFile writes the generated entity to outPath. outPath may be a
// .go file or a directory; the package name defaults to the directory name.
func (db *DB) GenerateEntityFile(ctx context.Context, table, outPath string, opts GenerateOptions) (string, error) {
	if err := ValidateTableName(table); err != nil {
		return "", err
	}
	safeFileBase := strings.ReplaceAll(strings.ToLower(table), ".", "_")

	var finalPath string
	switch {
	case outPath == "":
		finalPath = filepath.Join("models", safeFileBase+".go")
	case strings.HasSuffix(outPath, ".go"):
		finalPath = outPath
	default:
		finalPath = filepath.Join(outPath, safeFileBase+".go")
	}
	if opts.Package == "" {
		opts.Package = packageFromDir(filepath.Dir(finalPath))
	}

	src, err := db.GenerateEntity(ctx, table, opts)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(finalPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(finalPath, src, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	LogInfo("entity generated", map[string]interface{}{
		"db":    db.config.Name,
		"table": table,
		"path":  finalPath,
	})
	return finalPath, nil
}

func packageFromDir(dir string) string {
	base := filepath.Base(dir)
	if base == "." || base == "/" || base == "" {
		return "models"
	}
	return strings.ToLower(strings.ReplaceAll(base, "-", "_"))
}

// GenerateEntitySource renders an entity struct for an already probed table
func GenerateEntitySource(ci *ColumnIndex, opts GenerateOptions) ([]byte, error) {
	pkgName := opts.Package
	if pkgName == "" {
		pkgName = "models"
	}
	structName := opts.StructName
	if structName == "" {
		// analytics.page_views -> PageViews
		name := ci.Table
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		structName = SnakeToCamel(name)
	}

	fields := make([]string, 0, len(ci.Columns))
	imports := map[string]bool{}
	for _, col := range ci.Columns {
		fieldName := SnakeToCamel(col.Name)
		if fieldName == "" {
			continue
		}
		goType, pkg := chTypeToGoType(col.TypeName)
		if pkg != "" {
			imports[pkg] = true
		}

		tag := col.Name
		if opts.PrimaryKey != "" && strings.EqualFold(col.Name, opts.PrimaryKey) {
			tag += ",pk"
		}
		line := fmt.Sprintf("\t%s %s `column:\"%s\" json:\"%s\"`", fieldName, goType, tag, strings.ToLower(col.Name))
		if col.TypeName != "" {
			line += " // " + col.TypeName
		}
		fields = append(fields, line)
	}

	var sb strings.Builder
	sb.WriteString("// Code generated by ckorm gen. DO NOT EDIT.\n\n")
	sb.WriteString(fmt.Sprintf("package %s\n\n", pkgName))
	if len(imports) > 0 {
		sb.WriteString("import (\n")
		for _, pkg := range []string{"time", "github.com/shopspring/decimal", "github.com/zzguang83325/ckorm"} {
			if imports[pkg] {
				sb.WriteString(fmt.Sprintf("\t%q\n", pkg))
			}
		}
		sb.WriteString(")\n\n")
	}

	sb.WriteString(fmt.Sprintf("// %s represents the %s table\n", structName, ci.Table))
	sb.WriteString(fmt.Sprintf("type %s struct {\n", structName))
	sb.WriteString(strings.Join(fields, "\n"))
	sb.WriteString("\n}\n\n")

	sb.WriteString(fmt.Sprintf("// TableName returns the table name for %s struct\n", structName))
	sb.WriteString(fmt.Sprintf("func (%s) TableName() string {\n", structName))
	sb.WriteString(fmt.Sprintf("\treturn %q\n", ci.Table))
	sb.WriteString("}\n")

	src, err := format.Source([]byte(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("format generated source for %s: %w", ci.Table, err)
	}
	return src, nil
}

// SnakeToCamel converts page_view_id to PageViewID
func SnakeToCamel(s string) string {
	s = strings.ToLower(s)
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i := range parts {
		if strings.EqualFold(parts[i], "id") {
			parts[i] = "ID"
		} else {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	out := strings.Join(parts, "")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "C" + out
	}
	return out
}

// chTypeToGoType 将 ClickHouse / ANSI 类型名转换为 Go 类型，Nullable 列使用指针。
// 第二个返回值是需要导入的包
func chTypeToGoType(typeName string) (string, string) {
	t := strings.ToUpper(strings.TrimSpace(typeName))
	nullable := false
	for unwrapped := true; unwrapped; {
		unwrapped = false
		for _, w := range typeWrappers {
			if strings.HasPrefix(t, w) && strings.HasSuffix(t, ")") {
				nullable = nullable || w == "NULLABLE("
				t = strings.TrimSpace(t[len(w) : len(t)-1])
				unwrapped = true
			}
		}
	}

	var goType, pkg string
	switch kind := SniffKind(t); {
	case kind == KindTimestamp:
		goType, pkg = "time.Time", "time"
	case kind == KindDate:
		goType, pkg = "ckorm.Date", "github.com/zzguang83325/ckorm"
	case kind == KindDecimal:
		goType, pkg = "decimal.Decimal", "github.com/shopspring/decimal"
	case strings.HasPrefix(t, "UINT"), strings.HasPrefix(t, "INT"), t == "BIGINT", t == "SMALLINT", t == "TINYINT":
		goType = intGoType(t)
	case strings.HasPrefix(t, "FLOAT32"):
		goType = "float32"
	case strings.HasPrefix(t, "FLOAT"), strings.HasPrefix(t, "DOUBLE"), t == "REAL":
		goType = "float64"
	case t == "BOOL", t == "BOOLEAN":
		goType = "bool"
	case strings.HasPrefix(t, "STRING"), strings.HasPrefix(t, "FIXEDSTRING"), strings.HasPrefix(t, "ENUM"),
		t == "UUID", t == "TEXT", strings.Contains(t, "CHAR"), strings.HasPrefix(t, "JSON"):
		goType = "string"
	case strings.Contains(t, "BLOB"), strings.Contains(t, "BINARY"):
		return "[]byte", ""
	default:
		return "interface{}", ""
	}
	if nullable {
		goType = "*" + goType
	}
	return goType, pkg
}

// Int8..Int64 / UInt8..UInt64 保持宽度，其余整数类型统一 int64
func intGoType(t string) string {
	switch t {
	case "INT8", "INT16", "INT32", "INT64", "UINT8", "UINT16", "UINT32", "UINT64":
		return strings.ToLower(t)
	}
	return "int64"
}
