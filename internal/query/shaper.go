// Package query turns a request's query string into a data-store query:
// filter predicates, multi-key sort, field projection and pagination. The
// Shaper only builds the Query value; Compile renders it as SQL for a given
// Schema.
package query

import (
	"math"
	"strconv"
	"strings"
)

// OperatorMarker prefixes comparison operators in a Filter, so that
// {"price": {"$gt": "100"}} reads "price greater than 100".
const OperatorMarker = "$"

const (
	DefaultPage  = 1
	DefaultLimit = 100
	// DefaultSort is newest first.
	DefaultSort = "-createdAt"
	// VersionField is the internal versioning field hidden by default.
	VersionField = "version"
)

// comparisonOperators are the bare operator names accepted in requests.
var comparisonOperators = map[string]bool{
	"gte": true,
	"gt":  true,
	"lte": true,
	"lt":  true,
}

type SortKey struct {
	Field string
	Desc  bool
}

type Projection struct {
	Fields  []string
	Exclude bool
}

// Query is a not-yet-executed query handle.
type Query struct {
	Filter     map[string]any
	Sort       []SortKey
	Projection Projection
	Skip       int
	// Limit of 0 means no limit.
	Limit int
}

// Shaper refines a Query from a Request in four chainable stages.
type Shaper struct {
	query    *Query
	req      Request
	maxLimit int
}

// New starts shaping base (nil for an empty query). base's own filter keys
// take precedence over request predicates with the same name.
func New(base *Query, req Request) *Shaper {
	if base == nil {
		base = &Query{}
	}
	if req == nil {
		req = Request{}
	}
	return &Shaper{query: base, req: req}
}

// WithMaxLimit caps the page size; n <= 0 leaves it uncapped.
func (s *Shaper) WithMaxLimit(n int) *Shaper {
	s.maxLimit = n
	return s
}

// Filter applies every non-control parameter as a predicate.
func (s *Shaper) Filter() *Shaper {
	params := s.req.Clone()
	for _, k := range reservedKeys {
		delete(params, k)
	}

	if s.query.Filter == nil {
		s.query.Filter = map[string]any{}
	}
	for field, v := range params {
		if _, pinned := s.query.Filter[field]; pinned {
			continue
		}
		s.query.Filter[field] = toPredicate(v)
	}
	return s
}

func toPredicate(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return rewriteOperators(t)
	case []string:
		return map[string]any{OperatorMarker + "in": t}
	default:
		return v
	}
}

// rewriteOperators walks m and prefixes every bare comparison operator key
// with OperatorMarker. Values are never touched.
func rewriteOperators(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		key := k
		if comparisonOperators[k] {
			key = OperatorMarker + k
		}
		if inner, ok := v.(map[string]any); ok {
			out[key] = rewriteOperators(inner)
			continue
		}
		out[key] = v
	}
	return out
}

// Sort applies the comma separated sort parameter, or DefaultSort.
func (s *Shaper) Sort() *Shaper {
	spec := s.req.String(ParamSort)
	if strings.TrimSpace(spec) == "" {
		spec = DefaultSort
	}

	var keys []SortKey
	for _, f := range splitList(spec) {
		if strings.HasPrefix(f, "-") {
			keys = append(keys, SortKey{Field: f[1:], Desc: true})
		} else {
			keys = append(keys, SortKey{Field: strings.TrimPrefix(f, "+")})
		}
	}
	s.query.Sort = keys
	return s
}

// LimitFields applies the fields parameter; without one the version field is
// excluded.
func (s *Shaper) LimitFields() *Shaper {
	fields := splitList(s.req.String(ParamFields))
	if len(fields) == 0 {
		s.query.Projection = Projection{Fields: []string{VersionField}, Exclude: true}
		return s
	}

	excluded := 0
	for _, f := range fields {
		if strings.HasPrefix(f, "-") {
			excluded++
		}
	}
	if excluded == 0 || excluded < len(fields) {
		// a mixed list keeps its prefixes and is rejected by Compile
		s.query.Projection = Projection{Fields: fields}
		return s
	}

	p := Projection{Exclude: true}
	for _, f := range fields {
		p.Fields = append(p.Fields, f[1:])
	}
	s.query.Projection = p
	return s
}

// Paginate applies page and limit, falling back to DefaultPage and
// DefaultLimit when absent or not a positive integer.
func (s *Shaper) Paginate() *Shaper {
	page := positiveInt(s.req.String(ParamPage), DefaultPage)
	limit := positiveInt(s.req.String(ParamLimit), DefaultLimit)
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}
	// saturate instead of overflowing into a negative offset
	pages := page - 1
	if pages > math.MaxInt/limit {
		pages = math.MaxInt / limit
	}
	s.query.Skip = pages * limit
	s.query.Limit = limit
	return s
}

// Apply runs all four stages in order.
func (s *Shaper) Apply() *Query {
	return s.Filter().Sort().LimitFields().Paginate().Query()
}

func (s *Shaper) Query() *Query {
	return s.query
}

func positiveInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || part == "-" {
			continue
		}
		out = append(out, part)
	}
	return out
}
