package figoql

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SortFunc applies a custom ordering; desc reports the requested direction.
type SortFunc func(db *gorm.DB, desc bool, property string) *gorm.DB

// AllowedSort is one sortable name and the column (or function) behind it.
type AllowedSort struct {
	name     string
	column   string
	explicit bool
	custom   SortFunc
}

// SortField allows sorting by name, optionally on a different column. Without a column
// the name goes through the Builder's naming strategy.
func SortField(name string, column ...string) AllowedSort {
	s := AllowedSort{name: strings.TrimPrefix(name, "-"), column: strings.TrimPrefix(name, "-")}
	if len(column) > 0 && column[0] != "" {
		s.column = column[0]
		s.explicit = true
	}
	return s
}

func (s AllowedSort) named(strategy NamingStrategy) AllowedSort {
	if !s.explicit && s.custom == nil {
		s.column = strategy.column(s.column)
	}
	return s
}

func SortCustom(name string, fn SortFunc) AllowedSort {
	return AllowedSort{name: name, custom: fn}
}

// Sorts builds plain field sorts from names; "*" allows any field.
func Sorts(names ...string) []AllowedSort {
	out := make([]AllowedSort, 0, len(names))
	for _, n := range names {
		out = append(out, SortField(n))
	}
	return out
}

func (s AllowedSort) Name() string { return s.name }

func (s AllowedSort) orderColumn(desc bool) clause.OrderByColumn {
	col := clause.Column{Table: clause.CurrentTable, Name: s.column}
	if strings.Contains(s.column, ".") {
		table, name := splitQualified(s.column)
		col = clause.Column{Table: table, Name: name}
	}
	return clause.OrderByColumn{Column: col, Desc: desc}
}

// existingOrders reads the ORDER BY columns already present on the statement.
func existingOrders(db *gorm.DB) []clause.OrderByColumn {
	c, ok := db.Statement.Clauses["ORDER BY"]
	if !ok {
		return nil
	}
	orderBy, ok := c.Expression.(clause.OrderBy)
	if !ok {
		return nil
	}
	return orderBy.Columns
}

// hasOrder reports whether (column, desc) is already ordered on, including raw "col desc" strings.
func hasOrder(existing []clause.OrderByColumn, want clause.OrderByColumn, table string) bool {
	for _, c := range existing {
		name, desc := c.Column.Name, c.Desc
		if c.Column.Raw {
			parts := strings.Fields(name)
			if len(parts) == 0 {
				continue
			}
			name = strings.Trim(parts[0], "`\"")
			desc = len(parts) > 1 && strings.EqualFold(parts[1], "desc")
		}
		colTable, colName := splitQualified(name)
		if c.Column.Table != "" {
			colTable = c.Column.Table
		}
		if colName != want.Column.Name || desc != want.Desc {
			continue
		}
		if sameTable(colTable, want.Column.Table, table) {
			return true
		}
	}
	return false
}

func sameTable(a, b, root string) bool {
	norm := func(t string) string {
		if t == "" || t == clause.CurrentTable {
			return root
		}
		return t
	}
	return norm(a) == norm(b)
}
