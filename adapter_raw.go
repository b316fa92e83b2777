package figoql

import (
	"fmt"
	"reflect"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SelectBuilder renders the validated root query as a squirrel SELECT, for callers
// that run SQL without gorm. Conditions carried by the base gorm chain are not included.
func (b *Builder[T]) SelectBuilder() (sq.SelectBuilder, error) {
	if b.err != nil {
		return sq.SelectBuilder{}, b.err
	}
	if err := b.guardUnregistered(); err != nil {
		return sq.SelectBuilder{}, err
	}

	columns := []string{"*"}
	if len(b.rootFields) > 0 {
		columns = make([]string, 0, len(b.rootFields))
		for _, f := range b.rootFields {
			columns = append(columns, b.quoteColumn(f))
		}
	}
	builder := sq.Select(columns...).From(quoteIdent(b.table)).PlaceholderFormat(sq.Question)

	trashed := ""
	for _, a := range b.applied {
		if a.filter.kind == FilterTrashed {
			trashed = strings.ToLower(fmt.Sprint(firstValue(a.value)))
			continue
		}
		var cond sq.Sqlizer
		var err error
		if rels, column, ok := b.relationFilter(a.filter); ok {
			cond, err = b.rawExists(rels, column, a.filter, a.value)
		} else {
			cond, err = b.rawFilter(a.filter, a.value)
		}
		if err != nil {
			return sq.SelectBuilder{}, err
		}
		builder = builder.Where(cond)
	}
	if col := softDeleteColumn(b.schema); col != "" {
		switch trashed {
		case "with":
		case "only":
			builder = builder.Where(sq.NotEq{b.quoteColumn(col): nil})
		default:
			builder = builder.Where(sq.Eq{b.quoteColumn(col): nil})
		}
	}

	for _, s := range b.appliedSorts {
		if s.sort.custom != nil {
			return sq.SelectBuilder{}, fmt.Errorf("%w: custom sort %q", ErrUnsupportedFilter, s.sort.name)
		}
		dir := "ASC"
		if s.desc {
			dir = "DESC"
		}
		builder = builder.OrderBy(fmt.Sprintf("%s %s", b.quoteColumn(s.sort.column), dir))
	}

	if p := b.request.Page(); p != nil {
		builder = builder.Limit(uint64(p.Size))
		if off := p.offset(); off > 0 {
			builder = builder.Offset(uint64(off))
		}
	}
	return builder, nil
}

// ToRawSQL is SelectBuilder followed by ToSql.
func (b *Builder[T]) ToRawSQL() (string, []any, error) {
	builder, err := b.SelectBuilder()
	if err != nil {
		return "", nil, err
	}
	return builder.ToSql()
}

func (b *Builder[T]) rawFilter(f AllowedFilter, value any) (sq.Sqlizer, error) {
	col := b.quoteColumn(f.column)
	switch f.kind {
	case FilterExact:
		list := toList(coerceBool(value))
		if len(list) > 1 {
			return sq.Eq{col: list}, nil
		}
		return sq.Eq{col: firstValue(coerceBool(value))}, nil

	case FilterPartial, FilterBeginsWith, FilterEndsWith:
		list := toList(value)
		ors := make(sq.Or, 0, len(list))
		for _, v := range list {
			ors = append(ors, sq.Expr(fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '%s'", col, likeEscape), likePattern(f.kind, v)))
		}
		if len(ors) == 1 {
			return ors[0], nil
		}
		return ors, nil

	case FilterOperator:
		op, v := f.operation, firstValue(value)
		if op == OperationDynamic {
			op, v = parseOperation(fmt.Sprint(v))
		}
		switch op {
		case OperationEq:
			return sq.Eq{col: v}, nil
		case OperationNeq:
			return sq.NotEq{col: v}, nil
		case OperationGt:
			return sq.Gt{col: v}, nil
		case OperationGte:
			return sq.GtOrEq{col: v}, nil
		case OperationLt:
			return sq.Lt{col: v}, nil
		case OperationLte:
			return sq.LtOrEq{col: v}, nil
		}
		return nil, fmt.Errorf("figoql: unsupported operator %q for filter %q", op, f.property)
	}
	return nil, fmt.Errorf("%w: %s filter %q", ErrUnsupportedFilter, f.kind, f.property)
}

func (b *Builder[T]) quoteColumn(column string) string {
	table, name := splitQualified(column)
	if table == "" {
		table = b.table
	}
	return quoteIdent(table) + "." + quoteIdent(name)
}

// rawExists renders a relation filter as nested EXISTS subqueries, like applyFilter.
func (b *Builder[T]) rawExists(rels []*schema.Relationship, column string, f AllowedFilter, value any) (sq.Sqlizer, error) {
	rel := rels[0]
	links, err := relationLinks(rel)
	if err != nil {
		return nil, err
	}
	table := rel.FieldSchema.Table
	sub := sq.Select("1").From(quoteIdent(table))
	for _, l := range links {
		related := quoteIdent(l.related.Table) + "." + quoteIdent(l.related.Name)
		if l.fixed {
			sub = sub.Where(sq.Eq{related: l.value})
			continue
		}
		sub = sub.Where(fmt.Sprintf("%s.%s = %s", quoteIdent(l.parent.Table), quoteIdent(l.parent.Name), related))
	}

	var cond sq.Sqlizer
	if len(rels) > 1 {
		cond, err = b.rawExists(rels[1:], column, f, value)
	} else {
		target := f
		target.column = table + "." + column
		cond, err = b.rawFilter(target, value)
	}
	if err != nil {
		return nil, err
	}
	sub = sub.Where(cond)
	if col := softDeleteColumn(rel.FieldSchema); col != "" {
		sub = sub.Where(sq.Eq{quoteIdent(table) + "." + quoteIdent(col): nil})
	}

	query, args, err := sub.ToSql()
	if err != nil {
		return nil, err
	}
	return sq.Expr("EXISTS ("+query+")", args...), nil
}

// softDeleteColumn returns the column of a gorm.DeletedAt field, if the model has one.
func softDeleteColumn(s *schema.Schema) string {
	if s == nil {
		return ""
	}
	deletedAt := reflect.TypeOf(gorm.DeletedAt{})
	for _, f := range s.Fields {
		if f.FieldType == deletedAt {
			return f.DBName
		}
	}
	return ""
}

func quoteIdent(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}
