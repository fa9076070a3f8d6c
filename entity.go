package ckorm

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// Tabler is implemented by entity types to name their table
type Tabler interface {
	TableName() string
}

// ColumnDescriptor maps one struct field to one table column
type ColumnDescriptor struct {
	FieldName    string
	ColumnName   string
	IsPrimaryKey bool
	Index        []int // reflect 字段索引路径，包含嵌入结构体
	Type         reflect.Type
}

// EntityDescriptor is the table metadata of one entity type.
// It is immutable and shared by every DAO of that type.
type EntityDescriptor struct {
	Type       reflect.Type
	Table      string
	Columns    []ColumnDescriptor
	PrimaryKey *ColumnDescriptor

	byLower map[string]int
}

// Column finds a mapped column by name, case-insensitively
func (d *EntityDescriptor) Column(name string) (*ColumnDescriptor, bool) {
	i, ok := d.byLower[strings.ToLower(name)]
	if !ok {
		return nil, false
	}
	return &d.Columns[i], true
}

// ColumnNames returns the mapped column names in declaration order
func (d *EntityDescriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.ColumnName
	}
	return names
}

// requirePrimaryKey 按主键操作前检查
func (d *EntityDescriptor) requirePrimaryKey() (*ColumnDescriptor, error) {
	if d.PrimaryKey == nil {
		return nil, &ConfigurationError{Type: d.Type.String(), Reason: "no column tagged as pk", Err: ErrNoPrimaryKey}
	}
	return d.PrimaryKey, nil
}

// valueOf 读取实体 v 中 col 对应字段的值，嵌入指针为 nil 时返回 nil
func (d *EntityDescriptor) valueOf(v reflect.Value, col *ColumnDescriptor) interface{} {
	f, err := v.FieldByIndexErr(col.Index)
	if err != nil {
		return nil
	}
	return f.Interface()
}

// entityValue 校验 entity 的类型并返回其结构体值
func (d *EntityDescriptor) entityValue(entity interface{}) (reflect.Value, error) {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("ckorm: nil %s entity", d.Type)
		}
		v = v.Elem()
	}
	if v.Type() != d.Type {
		return reflect.Value{}, fmt.Errorf("ckorm: entity is %s, descriptor is for %s", v.Type(), d.Type)
	}
	return v, nil
}

// fieldByIndexAlloc 按索引路径取字段，途经的 nil 嵌入指针会被分配
func fieldByIndexAlloc(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("cannot set embedded pointer to unexported struct %s", v.Type().Elem())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	return v, nil
}

type describeResult struct {
	desc *EntityDescriptor
	err  error
}

// 每个类型只解析一次，LoadOrCompute 保证并发首次调用时只计算一次
var entityCache = xsync.NewMapOf[reflect.Type, describeResult]()

// Describe returns the cached descriptor of T (a struct type)
func Describe[T any]() (*EntityDescriptor, error) {
	return DescribeType(reflect.TypeOf((*T)(nil)).Elem())
}

// DescribeType returns the cached descriptor of t. Pointer types describe their element.
func DescribeType(t reflect.Type) (*EntityDescriptor, error) {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &ConfigurationError{Type: fmt.Sprint(t), Reason: "entity must be a struct"}
	}
	res, _ := entityCache.LoadOrCompute(t, func() describeResult {
		desc, err := buildDescriptor(t)
		return describeResult{desc: desc, err: err}
	})
	return res.desc, res.err
}

func buildDescriptor(t reflect.Type) (*EntityDescriptor, error) {
	typeName := t.String()

	tabler, ok := reflect.New(t).Interface().(Tabler)
	if !ok {
		return nil, &ConfigurationError{Type: typeName, Reason: "missing TableName() method"}
	}
	table := strings.TrimSpace(tabler.TableName())
	if table == "" {
		return nil, &ConfigurationError{Type: typeName, Reason: "TableName() returned an empty name"}
	}
	if err := validateIdentifier(table); err != nil {
		return nil, &ConfigurationError{Type: typeName, Reason: "invalid table name", Err: err}
	}

	fields, err := collectFields(t, nil, 0, map[reflect.Type]bool{t: true})
	if err != nil {
		return nil, &ConfigurationError{Type: typeName, Reason: err.Error()}
	}
	columns, err := resolveShadowing(fields)
	if err != nil {
		return nil, &ConfigurationError{Type: typeName, Reason: err.Error()}
	}
	if len(columns) == 0 {
		return nil, &ConfigurationError{Type: typeName, Reason: "no field tagged with column"}
	}

	desc := &EntityDescriptor{
		Type:    t,
		Table:   table,
		Columns: columns,
		byLower: make(map[string]int, len(columns)),
	}
	for i := range desc.Columns {
		c := &desc.Columns[i]
		desc.byLower[strings.ToLower(c.ColumnName)] = i
		if !c.IsPrimaryKey {
			continue
		}
		if desc.PrimaryKey != nil {
			return nil, &ConfigurationError{Type: typeName,
				Reason: fmt.Sprintf("duplicate primary key: %s and %s", desc.PrimaryKey.ColumnName, c.ColumnName)}
		}
		desc.PrimaryKey = c
	}

	LogDebug("entity described", map[string]interface{}{
		"table":   table,
		"type":    typeName,
		"columns": len(columns),
	})
	return desc, nil
}

type taggedField struct {
	col   ColumnDescriptor
	depth int
}

// collectFields 按声明顺序收集带 column tag 的字段，递归进入未打 tag 的嵌入结构体
func collectFields(t reflect.Type, prefix []int, depth int, seen map[reflect.Type]bool) ([]taggedField, error) {
	var out []taggedField
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		tag, hasTag := f.Tag.Lookup("column")

		if f.Anonymous && !hasTag {
			et := f.Type
			if et.Kind() == reflect.Ptr {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct && !seen[et] {
				seen[et] = true
				nested, err := collectFields(et, index, depth+1, seen)
				delete(seen, et)
				if err != nil {
					return nil, err
				}
				out = append(out, nested...)
			}
			continue
		}
		if !hasTag || tag == "-" || !f.IsExported() {
			continue
		}

		name, opts, _ := strings.Cut(tag, ",")
		name = strings.TrimSpace(name)
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		if err := validateColumnName(name); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		pk := f.Tag.Get("pk") == "true"
		for _, o := range strings.Split(opts, ",") {
			if strings.EqualFold(strings.TrimSpace(o), "pk") {
				pk = true
			}
		}

		out = append(out, taggedField{
			col: ColumnDescriptor{
				FieldName:    f.Name,
				ColumnName:   name,
				IsPrimaryKey: pk,
				Index:        index,
				Type:         f.Type,
			},
			depth: depth,
		})
	}
	return out, nil
}

// resolveShadowing 同名列取嵌套最浅的字段，同一深度出现两次视为配置错误
func resolveShadowing(fields []taggedField) ([]ColumnDescriptor, error) {
	minDepth := make(map[string]int, len(fields))
	for _, f := range fields {
		key := strings.ToLower(f.col.ColumnName)
		if d, ok := minDepth[key]; !ok || f.depth < d {
			minDepth[key] = f.depth
		}
	}

	columns := make([]ColumnDescriptor, 0, len(fields))
	taken := make(map[string]bool, len(fields))
	for _, f := range fields {
		key := strings.ToLower(f.col.ColumnName)
		if f.depth != minDepth[key] {
			continue
		}
		if taken[key] {
			return nil, fmt.Errorf("column %s is mapped twice", f.col.ColumnName)
		}
		taken[key] = true
		columns = append(columns, f.col)
	}
	return columns, nil
}
