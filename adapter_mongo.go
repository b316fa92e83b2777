package figoql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoFind renders the validated filters, sorts, root fields and page as a MongoDB
// find. Scope, custom and trashed filters only exist for gorm and yield ErrUnsupportedFilter.
func (b *Builder[T]) MongoFind() (bson.M, *options.FindOptions, error) {
	if b.err != nil {
		return nil, nil, b.err
	}
	if err := b.guardUnregistered(); err != nil {
		return nil, nil, err
	}

	parts := make([]bson.M, 0, len(b.applied))
	for _, a := range b.applied {
		m, err := mongoFilter(a.filter, a.value, b.table)
		if err != nil {
			return nil, nil, err
		}
		parts = append(parts, m)
	}
	filter := bson.M{}
	switch len(parts) {
	case 0:
	case 1:
		filter = parts[0]
	default:
		filter = bson.M{"$and": parts}
	}

	opts := options.Find()
	if len(b.appliedSorts) > 0 {
		var sd bson.D
		for _, s := range b.appliedSorts {
			if s.sort.custom != nil {
				return nil, nil, fmt.Errorf("%w: custom sort %q", ErrUnsupportedFilter, s.sort.name)
			}
			order := 1
			if s.desc {
				order = -1
			}
			sd = append(sd, bson.E{Key: mongoField(s.sort.column, b.table), Value: order})
		}
		opts.SetSort(sd)
	}
	if len(b.rootFields) > 0 {
		projection := bson.D{}
		for _, f := range b.rootFields {
			projection = append(projection, bson.E{Key: mongoField(f, b.table), Value: 1})
		}
		opts.SetProjection(projection)
	}
	if p := b.request.Page(); p != nil {
		opts.SetLimit(int64(p.Size))
		if off := p.offset(); off > 0 {
			opts.SetSkip(int64(off))
		}
	}
	return filter, opts, nil
}

func mongoFilter(f AllowedFilter, value any, table string) (bson.M, error) {
	field := mongoField(f.column, table)
	switch f.kind {
	case FilterExact:
		list := toList(coerceBool(value))
		if len(list) > 1 {
			values := make([]any, len(list))
			for i, v := range list {
				values[i] = mongoValue(v)
			}
			return bson.M{field: bson.M{"$in": values}}, nil
		}
		return bson.M{field: mongoValue(firstValue(coerceBool(value)))}, nil

	case FilterPartial, FilterBeginsWith, FilterEndsWith:
		list := toList(value)
		ors := make([]bson.M, 0, len(list))
		for _, v := range list {
			ors = append(ors, bson.M{field: bson.M{"$regex": likeToRegex(f.kind, v), "$options": "i"}})
		}
		if len(ors) == 1 {
			return ors[0], nil
		}
		return bson.M{"$or": ors}, nil

	case FilterOperator:
		op, v := f.operation, firstValue(value)
		if op == OperationDynamic {
			op, v = parseOperation(fmt.Sprint(v))
		}
		mv := mongoValue(v)
		switch op {
		case OperationEq:
			return bson.M{field: mv}, nil
		case OperationNeq:
			return bson.M{field: bson.M{"$ne": mv}}, nil
		case OperationGt:
			return bson.M{field: bson.M{"$gt": mv}}, nil
		case OperationGte:
			return bson.M{field: bson.M{"$gte": mv}}, nil
		case OperationLt:
			return bson.M{field: bson.M{"$lt": mv}}, nil
		case OperationLte:
			return bson.M{field: bson.M{"$lte": mv}}, nil
		}
		return nil, fmt.Errorf("figoql: unsupported operator %q for filter %q", op, f.property)
	}
	return nil, fmt.Errorf("%w: %s filter %q", ErrUnsupportedFilter, f.kind, f.property)
}

func likeToRegex(kind FilterKind, v any) string {
	pattern := regexp.QuoteMeta(fmt.Sprint(v))
	switch kind {
	case FilterBeginsWith:
		return "^" + pattern
	case FilterEndsWith:
		return pattern + "$"
	default:
		return pattern
	}
}

// mongoField drops the root table qualifier; relation paths stay dotted, matching
// embedded documents.
func mongoField(column, table string) string {
	qualifier, name := splitQualified(column)
	if qualifier == "" || qualifier == table {
		return name
	}
	return column
}

// mongoValue types request strings, since Mongo compares by BSON type.
func mongoValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
