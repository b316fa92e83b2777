package figoql

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FilterKind int

const (
	FilterExact FilterKind = iota
	FilterPartial
	FilterBeginsWith
	FilterEndsWith
	FilterOperator
	FilterScope
	FilterCustom
	FilterTrashed
)

func (k FilterKind) String() string {
	switch k {
	case FilterExact:
		return "exact"
	case FilterPartial:
		return "partial"
	case FilterBeginsWith:
		return "begins_with"
	case FilterEndsWith:
		return "ends_with"
	case FilterOperator:
		return "operator"
	case FilterScope:
		return "scope"
	case FilterCustom:
		return "custom"
	case FilterTrashed:
		return "trashed"
	default:
		return "unknown"
	}
}

type Operation string

const (
	OperationEq      Operation = "="
	OperationGt      Operation = ">"
	OperationGte     Operation = ">="
	OperationLt      Operation = "<"
	OperationLte     Operation = "<="
	OperationNeq     Operation = "!="
	OperationDynamic Operation = "dynamic"
)

// ScopeFunc is a gorm scope that receives the filter values.
type ScopeFunc func(db *gorm.DB, values ...any) *gorm.DB

// Scoper is implemented by models that expose named scopes for NamedScope filters.
type Scoper interface {
	QueryScopes() map[string]ScopeFunc
}

// CustomFilter mutates the query for one filter value.
type CustomFilter func(db *gorm.DB, value any, property string) *gorm.DB

// AllowedFilter is one permitted filter: the request-facing property, the column it
// targets and the strategy used to apply it.
type AllowedFilter struct {
	kind       FilterKind
	property   string
	column     string
	explicit   bool
	operation  Operation
	scope      ScopeFunc
	scopeName  string
	custom     CustomFilter
	defaultVal any
	hasDefault bool
	ignored    []string
}

// newFilter targets the property itself unless a column is given; the Builder's naming
// strategy converts an implicit column, an explicit one is used verbatim.
func newFilter(kind FilterKind, property string, column []string) AllowedFilter {
	f := AllowedFilter{kind: kind, property: property, column: property}
	if len(column) > 0 && column[0] != "" {
		f.column = column[0]
		f.explicit = true
	}
	return f
}

// named returns f with its implicit column converted by strategy.
func (f AllowedFilter) named(strategy NamingStrategy) AllowedFilter {
	if !f.explicit {
		f.column = strategy.column(f.column)
	}
	return f
}

// Exact matches with = (or IN for lists). The optional column overrides the property name.
func Exact(property string, column ...string) AllowedFilter {
	return newFilter(FilterExact, property, column)
}

// Partial matches case-insensitively with LIKE %value%.
func Partial(property string, column ...string) AllowedFilter {
	return newFilter(FilterPartial, property, column)
}

func BeginsWith(property string, column ...string) AllowedFilter {
	return newFilter(FilterBeginsWith, property, column)
}

func EndsWith(property string, column ...string) AllowedFilter {
	return newFilter(FilterEndsWith, property, column)
}

// Operator compares with op. OperationDynamic reads the operator from the value, e.g. ">=10".
func Operator(property string, op Operation, column ...string) AllowedFilter {
	f := newFilter(FilterOperator, property, column)
	f.operation = op
	return f
}

func Scope(property string, scope ScopeFunc) AllowedFilter {
	f := newFilter(FilterScope, property, nil)
	f.scope = scope
	return f
}

// NamedScope resolves scopeName from the model's QueryScopes when applied.
func NamedScope(property string, scopeName ...string) AllowedFilter {
	f := newFilter(FilterScope, property, nil)
	f.scopeName = property
	if len(scopeName) > 0 && scopeName[0] != "" {
		f.scopeName = scopeName[0]
	}
	return f
}

func Custom(property string, fn CustomFilter) AllowedFilter {
	f := newFilter(FilterCustom, property, nil)
	f.custom = fn
	return f
}

// Trashed filters soft-deleted rows: "with" includes them, "only" restricts to them.
func Trashed(property ...string) AllowedFilter {
	name := "trashed"
	if len(property) > 0 && property[0] != "" {
		name = property[0]
	}
	return newFilter(FilterTrashed, name, []string{"deleted_at"})
}

// Exacts and Partials build filters from bare names.
func Exacts(properties ...string) []AllowedFilter {
	out := make([]AllowedFilter, 0, len(properties))
	for _, p := range properties {
		out = append(out, Exact(p))
	}
	return out
}

func Partials(properties ...string) []AllowedFilter {
	out := make([]AllowedFilter, 0, len(properties))
	for _, p := range properties {
		out = append(out, Partial(p))
	}
	return out
}

// Default sets the value used when the filter key is present but empty.
func (f AllowedFilter) Default(value any) AllowedFilter {
	f.defaultVal = value
	f.hasDefault = true
	return f
}

// Ignore drops the given raw values before the filter is applied.
func (f AllowedFilter) Ignore(values ...string) AllowedFilter {
	f.ignored = append(append([]string(nil), f.ignored...), values...)
	return f
}

func (f AllowedFilter) Property() string { return f.property }

func (f AllowedFilter) Column() string { return f.column }

func (f AllowedFilter) Kind() FilterKind { return f.kind }

// resolveValue applies defaults and ignored values. ok is false when nothing is left to apply.
func (f AllowedFilter) resolveValue(raw any) (any, bool) {
	if isEmptyValue(raw) {
		if !f.hasDefault {
			return nil, false
		}
		raw = f.defaultVal
	}
	if len(f.ignored) == 0 {
		return raw, true
	}
	ignored := make(map[string]bool, len(f.ignored))
	for _, v := range f.ignored {
		ignored[v] = true
	}
	switch v := raw.(type) {
	case string:
		if ignored[v] {
			return nil, false
		}
		return v, true
	case []string:
		kept := make([]string, 0, len(v))
		for _, s := range v {
			if !ignored[s] {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			return nil, false
		}
		if len(kept) == 1 {
			return kept[0], true
		}
		return kept, true
	}
	return raw, true
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}

// apply dispatches on the strategy kind. model is used to resolve named scopes.
func (f AllowedFilter) apply(db *gorm.DB, value any, model any) (*gorm.DB, error) {
	col := clause.Column{Table: clause.CurrentTable, Name: f.column}
	if strings.Contains(f.column, ".") {
		table, name := splitQualified(f.column)
		col = clause.Column{Table: table, Name: name}
	}

	switch f.kind {
	case FilterExact:
		value = coerceBool(value)
		if list := toList(value); len(list) > 1 {
			return db.Where(clause.IN{Column: col, Values: list}), nil
		}
		return db.Where(clause.Eq{Column: col, Value: firstValue(value)}), nil

	case FilterPartial, FilterBeginsWith, FilterEndsWith:
		list := toList(value)
		exprs := make([]clause.Expression, 0, len(list))
		for _, v := range list {
			exprs = append(exprs, clause.Expr{
				SQL:  "LOWER(?) LIKE ? ESCAPE '" + likeEscape + "'",
				Vars: []any{col, likePattern(f.kind, v)},
			})
		}
		if len(exprs) == 1 {
			return db.Where(exprs[0]), nil
		}
		return db.Where(clause.Or(exprs...)), nil

	case FilterOperator:
		op, v := f.operation, firstValue(value)
		if op == OperationDynamic {
			op, v = parseOperation(fmt.Sprint(v))
		}
		expr := getClausesFromOperation(op, col, v)
		if expr == nil {
			return db, fmt.Errorf("figoql: unsupported operator %q for filter %q", op, f.property)
		}
		return db.Where(expr), nil

	case FilterScope:
		scope := f.scope
		if scope == nil {
			s, ok := model.(Scoper)
			if !ok {
				return db, fmt.Errorf("figoql: %T has no scopes, cannot apply filter %q", model, f.property)
			}
			scope = s.QueryScopes()[f.scopeName]
			if scope == nil {
				return db, fmt.Errorf("figoql: scope %q is not defined on %T", f.scopeName, model)
			}
		}
		values := toList(value)
		return db.Scopes(func(tx *gorm.DB) *gorm.DB { return scope(tx, values...) }), nil

	case FilterCustom:
		if f.custom == nil {
			return db, fmt.Errorf("figoql: custom filter %q has no function", f.property)
		}
		return f.custom(db, value, f.property), nil

	case FilterTrashed:
		switch strings.ToLower(fmt.Sprint(firstValue(value))) {
		case "with":
			return db.Unscoped(), nil
		case "only":
			return db.Unscoped().Where(clause.Neq{Column: clause.Column{Table: clause.CurrentTable, Name: f.column}, Value: nil}), nil
		default:
			return db, nil
		}
	}
	return db, fmt.Errorf("figoql: unknown filter kind %d", f.kind)
}

func firstValue(value any) any {
	if list := toList(value); len(list) > 0 {
		return list[0]
	}
	return value
}

// likeEscape is the LIKE escape character. Backslash is avoided since MySQL treats it
// as a string-literal escape.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// likePattern lowercases v, escapes LIKE wildcards in it and adds the kind's own.
func likePattern(kind FilterKind, v any) string {
	s := likeEscaper.Replace(strings.ToLower(fmt.Sprint(v)))
	switch kind {
	case FilterBeginsWith:
		return s + "%"
	case FilterEndsWith:
		return "%" + s
	default:
		return "%" + s + "%"
	}
}

// parseOperation splits a leading comparison operator off a value; no operator means equality.
func parseOperation(token string) (Operation, string) {
	token = strings.TrimSpace(token)
	operators := []Operation{OperationGte, OperationLte, OperationNeq, OperationGt, OperationLt, OperationEq}
	for _, op := range operators {
		if strings.HasPrefix(token, string(op)) {
			return op, strings.TrimSpace(token[len(op):])
		}
	}
	return OperationEq, token
}

func getClausesFromOperation(o Operation, column clause.Column, value any) clause.Expression {
	switch o {
	case OperationEq:
		return clause.Eq{Column: column, Value: value}
	case OperationGte:
		return clause.Gte{Column: column, Value: value}
	case OperationGt:
		return clause.Gt{Column: column, Value: value}
	case OperationLt:
		return clause.Lt{Column: column, Value: value}
	case OperationLte:
		return clause.Lte{Column: column, Value: value}
	case OperationNeq:
		return clause.Neq{Column: column, Value: value}
	default:
		return nil
	}
}
