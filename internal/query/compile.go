package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"

	"natours/internal/apperror"
)

type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindInteger
	KindBool
	KindTime
	// KindJSON fields are projected as-is and cannot be filtered or sorted.
	KindJSON
)

func (k Kind) cast() string {
	switch k {
	case KindNumber:
		return "numeric"
	case KindInteger:
		return "bigint"
	case KindBool:
		return "boolean"
	case KindTime:
		return "timestamptz"
	default:
		return "text"
	}
}

// Field maps a document field to the SQL expression that produces it.
type Field struct {
	Name string
	Expr string
	Kind Kind
	// Computed fields are derived on read; they can be projected only.
	Computed bool
}

func (f Field) queryable() bool {
	return !f.Computed && f.Kind != KindJSON
}

// Schema describes one resource: its FROM clause, fields in document order,
// and a fixed condition applied to every query (hidden rows).
type Schema struct {
	From   string
	Fields []Field
	Where  string
	// Args are bound to $1..$n referenced by Where.
	Args []any
}

func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Extend returns a copy of s with extra fields appended.
func (s *Schema) Extend(fields ...Field) *Schema {
	out := *s
	out.Fields = append(append([]Field(nil), s.Fields...), fields...)
	return &out
}

// Restrict returns a copy of s with cond ANDed to its fixed condition. cond
// numbers its placeholders after the ones already used by s.Where.
func (s *Schema) Restrict(cond string, args ...any) *Schema {
	out := *s
	if out.Where == "" {
		out.Where = cond
	} else {
		out.Where = out.Where + " AND " + cond
	}
	out.Args = append(append([]any(nil), s.Args...), args...)
	return &out
}

const idField = "id"

var sqlOperators = map[string]string{
	"$eq":  "=",
	"$ne":  "<>",
	"$gt":  ">",
	"$gte": ">=",
	"$lt":  "<",
	"$lte": "<=",
}

// Compile renders q as a parameterised SELECT against s. Each row is a single
// JSON document column. Unknown fields and operators are reported as
// validation errors.
func Compile(q *Query, s *Schema) (string, []any, error) {
	if q == nil {
		q = &Query{}
	}
	c := &compiler{schema: s, args: append([]any(nil), s.Args...)}

	selectList, err := c.projection(q.Projection)
	if err != nil {
		return "", nil, err
	}
	conds, err := c.where(q.Filter)
	if err != nil {
		return "", nil, err
	}
	order, err := c.orderBy(q.Sort)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT json_build_object(")
	sb.WriteString(selectList)
	sb.WriteString(") FROM ")
	sb.WriteString(s.From)
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	if order != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(order)
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + c.bind(q.Limit))
	}
	if q.Skip > 0 {
		sb.WriteString(" OFFSET " + c.bind(q.Skip))
	}
	return sb.String(), c.args, nil
}

type compiler struct {
	schema *Schema
	args   []any
}

func (c *compiler) bind(v any) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", len(c.args))
}

func (c *compiler) projection(p Projection) (string, error) {
	var fields []Field
	if p.Exclude || len(p.Fields) == 0 {
		excluded := map[string]bool{}
		for _, name := range p.Fields {
			if _, ok := c.schema.Field(name); !ok {
				return "", apperror.Validation(fmt.Sprintf("Unknown field: %s.", name))
			}
			excluded[name] = true
		}
		for _, f := range c.schema.Fields {
			if f.Name == idField || !excluded[f.Name] {
				fields = append(fields, f)
			}
		}
	} else {
		seen := map[string]bool{idField: true}
		if id, ok := c.schema.Field(idField); ok {
			fields = append(fields, id)
		}
		for _, name := range p.Fields {
			if strings.HasPrefix(name, "-") {
				return "", apperror.Validation("Cannot mix included and excluded fields.")
			}
			f, ok := c.schema.Field(name)
			if !ok {
				return "", apperror.Validation(fmt.Sprintf("Unknown field: %s.", name))
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			fields = append(fields, f)
		}
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("'%s', %s", f.Name, f.Expr))
	}
	return strings.Join(parts, ", "), nil
}

func (c *compiler) where(filter map[string]any) ([]string, error) {
	var conds []string
	if c.schema.Where != "" {
		conds = append(conds, c.schema.Where)
	}

	names := make([]string, 0, len(filter))
	for name := range filter {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f, ok := c.schema.Field(name)
		if !ok || !f.queryable() {
			return nil, apperror.Validation(fmt.Sprintf("Cannot filter by %s.", name))
		}
		fieldConds, err := c.predicate(f, filter[name])
		if err != nil {
			return nil, err
		}
		conds = append(conds, fieldConds...)
	}
	return conds, nil
}

func (c *compiler) predicate(f Field, v any) ([]string, error) {
	cast := f.Kind.cast()
	switch t := v.(type) {
	case map[string]any:
		ops := make([]string, 0, len(t))
		for op := range t {
			ops = append(ops, op)
		}
		sort.Strings(ops)

		var conds []string
		for _, op := range ops {
			if op == OperatorMarker+"in" {
				values, ok := t[op].([]string)
				if !ok {
					return nil, apperror.Validation(fmt.Sprintf("Invalid list for %s.", f.Name))
				}
				conds = append(conds, fmt.Sprintf("%s = ANY(%s::%s[])", f.Expr, c.bind(pq.Array(values)), cast))
				continue
			}
			sqlOp, ok := sqlOperators[op]
			if !ok {
				return nil, apperror.Validation(fmt.Sprintf("Invalid operator %q for %s.", op, f.Name))
			}
			if _, nested := t[op].(map[string]any); nested {
				return nil, apperror.Validation(fmt.Sprintf("Invalid value for %s.", f.Name))
			}
			conds = append(conds, fmt.Sprintf("%s %s %s::%s", f.Expr, sqlOp, c.bind(t[op]), cast))
		}
		return conds, nil
	case []string:
		return []string{fmt.Sprintf("%s = ANY(%s::%s[])", f.Expr, c.bind(pq.Array(t)), cast)}, nil
	default:
		return []string{fmt.Sprintf("%s = %s::%s", f.Expr, c.bind(v), cast)}, nil
	}
}

func (c *compiler) orderBy(keys []SortKey) (string, error) {
	var parts []string
	hasID := false
	for _, k := range keys {
		f, ok := c.schema.Field(k.Field)
		if !ok || !f.queryable() {
			return "", apperror.Validation(fmt.Sprintf("Cannot sort by %s.", k.Field))
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts = append(parts, f.Expr+" "+dir)
		if f.Name == idField {
			hasID = true
		}
	}
	if id, ok := c.schema.Field(idField); ok && !hasID {
		parts = append(parts, id.Expr+" ASC")
	}
	return strings.Join(parts, ", "), nil
}
