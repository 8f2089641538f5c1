package query

import (
	"net/url"
	"strings"
)

// Request is the untyped parameter bag taken from a query string. Values are
// string, []string (whitelisted repeated keys) or map[string]any (bracket
// syntax, e.g. price[lt]=1500).
type Request map[string]any

// Control parameters; they shape the query and never become predicates.
const (
	ParamPage   = "page"
	ParamSort   = "sort"
	ParamLimit  = "limit"
	ParamFields = "fields"
)

var reservedKeys = []string{ParamPage, ParamSort, ParamLimit, ParamFields}

// ParseRequest converts URL values into a Request. For keys that appear more
// than once only the last value is kept unless the key is in multi, in which
// case every value is kept.
func ParseRequest(values url.Values, multi ...string) Request {
	allowMulti := make(map[string]bool, len(multi))
	for _, k := range multi {
		allowMulti[k] = true
	}

	req := Request{}
	for rawKey, vals := range values {
		if len(vals) == 0 {
			continue
		}
		path := splitBrackets(rawKey)
		if len(path) == 0 {
			continue
		}

		var v any = vals[len(vals)-1]
		if len(path) == 1 && len(vals) > 1 && allowMulti[path[0]] {
			v = append([]string(nil), vals...)
		}
		setPath(req, path, v)
	}
	return req
}

// splitBrackets turns "price[gte]" into ["price", "gte"].
func splitBrackets(key string) []string {
	key = strings.TrimSpace(key)
	open := strings.IndexByte(key, '[')
	if open <= 0 {
		if key == "" || open == 0 {
			return nil
		}
		return []string{key}
	}

	path := []string{key[:open]}
	rest := key[open:]
	for len(rest) > 0 {
		if rest[0] != '[' {
			return []string{key}
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return []string{key}
		}
		seg := rest[1:end]
		if seg == "" {
			// a[]=x is the same as a=x
			rest = rest[end+1:]
			continue
		}
		path = append(path, seg)
		rest = rest[end+1:]
	}
	return path
}

func setPath(m map[string]any, path []string, v any) {
	for i, seg := range path {
		if i == len(path)-1 {
			if _, isMap := m[seg].(map[string]any); isMap {
				// a bracketed form already claimed this key
				return
			}
			m[seg] = v
			return
		}
		next, ok := m[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[seg] = next
		}
		m = next
	}
}

// String returns the scalar value for key, or "" when it is absent or not a
// plain string.
func (r Request) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[len(v)-1]
		}
	}
	return ""
}

// Clone returns a deep copy of r.
func (r Request) Clone() Request {
	return Request(cloneMap(r))
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]any:
			out[k] = cloneMap(t)
		case []string:
			out[k] = append([]string(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}
