package figoql

import (
	"fmt"
	"reflect"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// relationLink is one equality tying a related table to its parent. Polymorphic type
// columns compare against a constant instead of a parent column.
type relationLink struct {
	parent  clause.Column
	related clause.Column
	value   any
	fixed   bool
}

func findRelation(s *schema.Schema, segment string) *schema.Relationship {
	if s == nil {
		return nil
	}
	if rel, ok := s.Relationships.Relations[segment]; ok {
		return rel
	}
	for name, rel := range s.Relationships.Relations {
		if sameName(name, segment) {
			return rel
		}
	}
	return nil
}

// relationPath walks a dotted path such as "posts.comments" through the gorm schema.
// ok is false when any segment is not a relation, e.g. a table joined by the base query.
func (b *Builder[T]) relationPath(path string) ([]*schema.Relationship, bool) {
	if path == "" || path == b.table {
		return nil, false
	}
	current := b.schema
	rels := make([]*schema.Relationship, 0, 2)
	for _, seg := range strings.Split(path, ".") {
		rel := findRelation(current, seg)
		if rel == nil {
			return nil, false
		}
		rels = append(rels, rel)
		current = rel.FieldSchema
	}
	return rels, true
}

// relationFilter reports the relation chain and column of a filter on "relation.column".
func (b *Builder[T]) relationFilter(f AllowedFilter) ([]*schema.Relationship, string, bool) {
	switch f.kind {
	case FilterScope, FilterCustom, FilterTrashed:
		return nil, "", false
	}
	path, column := splitQualified(f.column)
	rels, ok := b.relationPath(path)
	return rels, column, ok
}

func relationLinks(rel *schema.Relationship) ([]relationLink, error) {
	if rel.JoinTable != nil {
		return nil, fmt.Errorf("figoql: filtering through many2many relation %q is not supported", rel.Name)
	}
	links := make([]relationLink, 0, len(rel.References))
	for _, ref := range rel.References {
		related := clause.Column{Table: ref.ForeignKey.Schema.Table, Name: ref.ForeignKey.DBName}
		if ref.PrimaryKey == nil {
			links = append(links, relationLink{related: related, value: ref.PrimaryValue, fixed: true})
			continue
		}
		parent := clause.Column{Table: ref.PrimaryKey.Schema.Table, Name: ref.PrimaryKey.DBName}
		links = append(links, relationLink{parent: parent, related: related})
	}
	return links, nil
}

// applyFilter applies f to the root query, or as EXISTS subqueries when its column
// sits behind relations of the model.
func (b *Builder[T]) applyFilter(f AllowedFilter, value any) (*gorm.DB, error) {
	rels, column, ok := b.relationFilter(f)
	if !ok {
		return f.apply(b.db, value, b.model)
	}
	exists, err := b.existsClause(rels, column, f, value)
	if err != nil {
		return b.db, err
	}
	return b.db.Where(exists), nil
}

// existsClause nests one EXISTS per relation hop and filters the innermost table.
func (b *Builder[T]) existsClause(rels []*schema.Relationship, column string, f AllowedFilter, value any) (clause.Expression, error) {
	rel := rels[0]
	links, err := relationLinks(rel)
	if err != nil {
		return nil, err
	}

	model := reflect.New(rel.FieldSchema.ModelType).Interface()
	sub := b.db.Session(&gorm.Session{NewDB: true}).Model(model).Select("1")
	for _, l := range links {
		if l.fixed {
			sub = sub.Where(clause.Eq{Column: l.related, Value: l.value})
			continue
		}
		sub = sub.Where(clause.Expr{SQL: "? = ?", Vars: []any{l.parent, l.related}})
	}

	if len(rels) > 1 {
		inner, err := b.existsClause(rels[1:], column, f, value)
		if err != nil {
			return nil, err
		}
		sub = sub.Where(inner)
	} else {
		target := f
		target.column = rel.FieldSchema.Table + "." + column
		if sub, err = target.apply(sub, value, nil); err != nil {
			return nil, err
		}
	}
	return clause.Expr{SQL: "EXISTS (?)", Vars: []any{sub}}, nil
}
