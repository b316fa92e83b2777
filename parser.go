package figoql

import (
	"strings"
)

// Sort is one parsed sort token.
type Sort struct {
	Field string
	Desc  bool
}

func (s Sort) String() string {
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

func splitList(value, delimiter string) []string {
	out := make([]string, 0)
	if strings.TrimSpace(value) == "" {
		return out
	}
	for _, token := range strings.Split(value, delimiter) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		out = append(out, token)
	}
	return out
}

func parseSorts(value, delimiter string) []Sort {
	tokens := splitList(value, delimiter)
	sorts := make([]Sort, 0, len(tokens))
	for _, token := range tokens {
		desc := strings.HasPrefix(token, "-")
		field := strings.TrimSpace(strings.TrimPrefix(token, "-"))
		if field == "" {
			continue
		}
		sorts = append(sorts, Sort{Field: field, Desc: desc})
	}
	return sorts
}

// expandPath turns "a.b.c" into "a", "a.b", "a.b.c".
func expandPath(path string) []string {
	segments := strings.Split(path, ".")
	out := make([]string, 0, len(segments))
	for i := range segments {
		if strings.TrimSpace(segments[i]) == "" {
			break
		}
		out = append(out, strings.Join(segments[:i+1], "."))
	}
	return out
}

func expandIncludes(paths []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		for _, prefix := range expandPath(p) {
			if seen[prefix] {
				continue
			}
			seen[prefix] = true
			out = append(out, prefix)
		}
	}
	return out
}

func parseFields(raw map[string]string, delimiter string) map[string][]string {
	out := make(map[string][]string, len(raw))
	for key, value := range raw {
		out[key] = splitList(value, delimiter)
	}
	return out
}

// parseFilterValue keeps single values scalar and splits delimited ones into a list.
func parseFilterValue(values []string, delimiter string) any {
	if len(values) == 1 && !strings.Contains(values[0], delimiter) {
		return strings.TrimSpace(values[0])
	}
	list := make([]string, 0, len(values))
	for _, v := range values {
		list = append(list, splitList(v, delimiter)...)
	}
	return list
}

// coerceBool maps "true"/"false" strings to booleans, leaving everything else untouched.
func coerceBool(value any) any {
	switch v := value.(type) {
	case string:
		switch strings.ToLower(v) {
		case "true":
			return true
		case "false":
			return false
		}
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = coerceBool(s)
		}
		return out
	}
	return value
}

func toList(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func difference(requested, allowed []string) []string {
	set := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		set[a] = true
	}
	out := make([]string, 0)
	seen := make(map[string]bool)
	for _, r := range requested {
		if set[r] || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

func containsWildcard(values []string) bool {
	for _, v := range values {
		if v == "*" {
			return true
		}
	}
	return false
}
