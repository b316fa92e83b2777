package figoql

import (
	"strings"

	"github.com/gobeam/stringy"
)

// snakeName converts a request-facing name (camelCase or snake_case) to the store's snake_case.
func snakeName(str string) string {
	if str == "" {
		return ""
	}
	return stringy.New(str).SnakeCase("?", "").ToLower()
}

// structName converts a request-facing relation segment into a gorm struct field name.
func structName(str string) string {
	if str == "" {
		return ""
	}
	var b strings.Builder
	for _, part := range strings.Split(snakeName(str), "_") {
		if part == "" {
			continue
		}
		b.WriteString(stringy.New(part).UcFirst())
	}
	return b.String()
}

// sameName compares two identifiers ignoring case and underscores.
func sameName(a, b string) bool {
	return strings.EqualFold(strings.ReplaceAll(a, "_", ""), strings.ReplaceAll(b, "_", ""))
}

func qualify(table, column string) string {
	if table == "" || strings.Contains(column, ".") {
		return column
	}
	return table + "." + column
}

// splitQualified splits "table.column" at the last dot.
func splitQualified(name string) (string, string) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// NamingStrategy maps request-facing field names to column names.
type NamingStrategy string

const (
	NAMING_STRATEGY_NO_CHANGE  NamingStrategy = "no_change"
	NAMING_STRATEGY_SNAKE_CASE NamingStrategy = "snake_case"
)

// column converts the column part of name, leaving any table or relation qualifier as is.
func (n NamingStrategy) column(name string) string {
	if n == NAMING_STRATEGY_NO_CHANGE {
		return name
	}
	table, col := splitQualified(name)
	if col == "*" || col == "" {
		return name
	}
	return qualify(table, snakeName(col))
}
