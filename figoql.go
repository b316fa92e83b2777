// Package figoql turns untrusted request parameters (filter, sort, include, fields,
// append, page) into a gorm query, honouring only what each endpoint explicitly allows.
//
// A Builder is created per request. Every Allowed* call stores its allow-list and
// immediately validates and applies the matching request values; the first violation
// is kept on the builder (like gorm's db.Error) and returned by Err, ToSQL and Get.
package figoql

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

type builderOptions struct {
	config Config
	logger *slog.Logger
}

type Option func(*builderOptions)

func WithConfig(cfg Config) Option {
	return func(o *builderOptions) { o.config = cfg }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *builderOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type appliedFilter struct {
	filter AllowedFilter
	value  any
}

type appliedSort struct {
	sort AllowedSort
	desc bool
}

// Builder assembles a query for model T. It is request scoped and not safe for concurrent use.
type Builder[T any] struct {
	db      *gorm.DB
	request *Request
	config  Config
	logger  *slog.Logger
	schema  *schema.Schema
	table   string
	model   *T

	filters           []AllowedFilter
	filtersRegistered bool
	applied           []appliedFilter

	sorts        []AllowedSort
	appliedSorts []appliedSort
	customSorted map[string]bool

	includes           []string
	includesRegistered bool

	fields           []string
	fieldsRegistered bool
	rootFields       []string

	appends           []string
	appendsRegistered bool
	pendingAppends    []string

	err error
}

// New continues db (keeping its existing conditions, orders, preloads and scopes) as a
// query over T driven by req. A nil req behaves as a request without parameters.
func New[T any](db *gorm.DB, req *Request, opts ...Option) *Builder[T] {
	o := builderOptions{config: DefaultConfig(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if req == nil {
		req = NewRequest(nil, WithRequestConfig(o.config))
	}

	b := &Builder[T]{
		request:      req,
		config:       o.config,
		logger:       o.logger,
		model:        new(T),
		customSorted: make(map[string]bool),
	}
	b.db = db.Session(&gorm.Session{}).Model(b.model)

	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(b.model); err != nil {
		b.err = fmt.Errorf("figoql: parse model %T: %w", b.model, err)
		return b
	}
	b.schema = stmt.Schema
	b.table = stmt.Schema.Table
	return b
}

// Err returns the first error raised by a registration call.
func (b *Builder[T]) Err() error {
	return b.err
}

// DB returns the assembled gorm chain, for callers that need to count or execute it themselves.
func (b *Builder[T]) DB() *gorm.DB {
	return b.db
}

func (b *Builder[T]) Table() string {
	return b.table
}

func (b *Builder[T]) Request() *Request {
	return b.request
}

func (b *Builder[T]) fail(err error) {
	if b.err == nil {
		b.err = err
	}
	b.logger.Warn("figoql: rejected request", "table", b.table, "error", err)
}

// AllowedFilters registers the permitted filters and applies the requested ones.
func (b *Builder[T]) AllowedFilters(filters ...AllowedFilter) *Builder[T] {
	if b.err != nil {
		return b
	}
	names := make([]string, 0, len(filters))
	seen := make(map[string]bool, len(filters))
	for _, f := range filters {
		if seen[f.property] {
			b.fail(fmt.Errorf("figoql: filter %q registered twice", f.property))
			return b
		}
		seen[f.property] = true
		names = append(names, f.property)
	}
	b.filters = filters
	b.filtersRegistered = true

	requested := b.request.filterNames()
	if !containsWildcard(names) {
		if unknown := difference(requested, names); len(unknown) > 0 {
			if !b.config.IgnoreInvalidFilters {
				b.fail(&InvalidFilterQuery{invalidQuery{Unknown: unknown, Allowed: names}})
				return b
			}
			b.logger.Debug("figoql: ignoring unknown filters", "table", b.table, "filters", unknown)
		}
	}

	done := make(map[string]bool, len(b.applied))
	for _, a := range b.applied {
		done[a.filter.property] = true
	}
	for _, f := range b.filters {
		raw, ok := b.request.filters[f.property]
		if !ok || done[f.property] || f.property == "*" {
			continue
		}
		value, ok := f.resolveValue(raw)
		if !ok {
			continue
		}
		f = f.named(b.config.NamingStrategy)
		db, err := b.applyFilter(f, value)
		if err != nil {
			b.fail(err)
			return b
		}
		b.db = db
		b.applied = append(b.applied, appliedFilter{filter: f, value: value})
		b.logger.Debug("figoql: applied filter", "table", b.table, "filter", f.property, "kind", f.kind.String())
	}
	return b
}

// AllowedSorts registers sortable names and appends the requested orderings, skipping
// any (column, direction) pair the query already orders by.
func (b *Builder[T]) AllowedSorts(sorts ...AllowedSort) *Builder[T] {
	if b.err != nil {
		return b
	}
	names := make([]string, 0, len(sorts))
	byName := make(map[string]AllowedSort, len(sorts))
	for _, s := range sorts {
		names = append(names, s.name)
		byName[s.name] = s.named(b.config.NamingStrategy)
	}
	b.sorts = sorts

	requested := b.request.Sorts()
	wildcard := containsWildcard(names)
	if !wildcard {
		requestedNames := make([]string, 0, len(requested))
		for _, s := range requested {
			requestedNames = append(requestedNames, s.Field)
		}
		if unknown := difference(requestedNames, names); len(unknown) > 0 {
			b.fail(&InvalidSortQuery{invalidQuery{Unknown: unknown, Allowed: names}})
			return b
		}
	}

	for _, s := range requested {
		allowed, ok := byName[s.Field]
		if !ok {
			if !wildcard {
				continue
			}
			allowed = SortField(s.Field).named(b.config.NamingStrategy)
		}
		if allowed.custom != nil {
			key := s.String()
			if b.customSorted[key] {
				continue
			}
			b.customSorted[key] = true
			b.db = allowed.custom(b.db, s.Desc, s.Field)
			b.appliedSorts = append(b.appliedSorts, appliedSort{sort: allowed, desc: s.Desc})
			continue
		}
		col := allowed.orderColumn(s.Desc)
		if hasOrder(existingOrders(b.db), col, b.table) {
			continue
		}
		b.db = b.db.Order(col)
		b.appliedSorts = append(b.appliedSorts, appliedSort{sort: allowed, desc: s.Desc})
	}
	b.logger.Debug("figoql: applied sorts", "table", b.table, "sorts", len(b.appliedSorts))
	return b
}

// AllowedIncludes registers relation paths; "a.b" also allows "a".
func (b *Builder[T]) AllowedIncludes(includes ...string) *Builder[T] {
	if b.err != nil {
		return b
	}
	allowed := expandIncludes(includes)
	b.includes = allowed
	b.includesRegistered = true

	requested := b.request.Includes()
	if !containsWildcard(includes) {
		if unknown := difference(requested, allowed); len(unknown) > 0 {
			b.fail(&InvalidIncludeQuery{invalidQuery{Unknown: unknown, Allowed: allowed}})
			return b
		}
	}

	for _, path := range requested {
		b.db = b.preload(path)
	}
	if len(requested) > 0 {
		b.logger.Debug("figoql: applied includes", "table", b.table, "includes", requested)
	}
	return b
}

// AllowedFields registers selectable fields. Bare names belong to the root table;
// "table.*" allows every column of that table.
func (b *Builder[T]) AllowedFields(fields ...string) *Builder[T] {
	if b.err != nil {
		return b
	}
	allowed := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "*" {
			allowed = append(allowed, f)
			continue
		}
		allowed = append(allowed, qualify(b.table, f))
	}
	b.fields = allowed
	b.fieldsRegistered = true

	if !b.request.HasFields() {
		return b
	}

	requested := b.requestedFields()
	if b.config.GuardFields && !containsWildcard(allowed) {
		if unknown := b.unknownFields(requested, allowed); len(unknown) > 0 {
			b.fail(&InvalidFieldQuery{invalidQuery{Unknown: unknown, Allowed: allowed}})
			return b
		}
	}

	root := b.columnNames(b.rootFieldList())
	if len(root) == 0 {
		return b
	}
	b.rootFields = root
	b.db = b.db.Clauses(selectColumns(b.table, root))
	b.logger.Debug("figoql: applied fields", "table", b.table, "fields", root)
	return b
}

// AllowedAppends registers computed attributes; they are attached by Get after execution.
func (b *Builder[T]) AllowedAppends(appends ...string) *Builder[T] {
	if b.err != nil {
		return b
	}
	b.appends = appends
	b.appendsRegistered = true

	requested := b.request.Appends()
	if !containsWildcard(appends) {
		if unknown := difference(requested, appends); len(unknown) > 0 {
			b.fail(&InvalidAppendQuery{invalidQuery{Unknown: unknown, Allowed: append([]string(nil), appends...)}})
			return b
		}
	}
	b.pendingAppends = requested
	return b
}

// guardUnregistered rejects filters, includes and appends requested from an endpoint
// that never registered the category.
func (b *Builder[T]) guardUnregistered() error {
	if !b.filtersRegistered && len(b.request.filters) > 0 && !b.config.IgnoreInvalidFilters {
		return &InvalidFilterQuery{invalidQuery{Unknown: b.request.filterNames(), Allowed: []string{}}}
	}
	if includes := b.request.Includes(); !b.includesRegistered && len(includes) > 0 {
		return &InvalidIncludeQuery{invalidQuery{Unknown: includes, Allowed: []string{}}}
	}
	if appends := b.request.Appends(); !b.appendsRegistered && len(appends) > 0 {
		return &InvalidAppendQuery{invalidQuery{Unknown: appends, Allowed: []string{}}}
	}
	return nil
}

func (b *Builder[T]) prepare(tx *gorm.DB, columns []string) *gorm.DB {
	if len(columns) > 0 && !(len(columns) == 1 && columns[0] == "*") && b.rootFields == nil {
		tx = tx.Select(columns)
	}
	if page := b.request.Page(); page != nil {
		tx = tx.Limit(page.Size).Offset(page.offset())
	}
	return tx
}

// ToSQL renders the root query without executing it.
func (b *Builder[T]) ToSQL(columns ...string) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	if err := b.guardUnregistered(); err != nil {
		return "", err
	}
	return b.db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var models []T
		return b.prepare(tx, columns).Find(&models)
	}), nil
}

// Get executes the query and attaches the requested appends to every record.
func (b *Builder[T]) Get(ctx context.Context, columns ...string) (*ResultSet[T], error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.guardUnregistered(); err != nil {
		b.logger.Warn("figoql: rejected request", "table", b.table, "error", err)
		return nil, err
	}

	var models []T
	if err := b.prepare(b.db.WithContext(ctx), columns).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("figoql: query %s: %w", b.table, err)
	}
	return newResultSet(models, b.pendingAppends)
}

// First executes the query limited to one record.
func (b *Builder[T]) First(ctx context.Context, columns ...string) (*Record[T], error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.guardUnregistered(); err != nil {
		return nil, err
	}
	var models []T
	if err := b.prepare(b.db.WithContext(ctx), columns).Limit(1).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("figoql: query %s: %w", b.table, err)
	}
	if len(models) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	rs, err := newResultSet(models, b.pendingAppends)
	if err != nil {
		return nil, err
	}
	return &rs.Records[0], nil
}

func selectColumns(table string, columns []string) clause.Select {
	cols := make([]clause.Column, 0, len(columns))
	for _, c := range columns {
		t, name := splitQualified(c)
		if t == "" {
			t = table
		}
		cols = append(cols, clause.Column{Table: t, Name: name})
	}
	return clause.Select{Columns: cols}
}

func (b *Builder[T]) rootFieldList() []string {
	fieldsMap := b.request.Fields()
	out := append([]string(nil), fieldsMap[""]...)
	if b.table != "" {
		out = append(out, fieldsMap[b.table]...)
	}
	return out
}

// requestedFields returns every requested field qualified by its table or relation key.
func (b *Builder[T]) requestedFields() []string {
	fieldsMap := b.request.Fields()
	keys := make([]string, 0, len(fieldsMap))
	for k := range fieldsMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0)
	for _, key := range keys {
		table := key
		if key == "" {
			table = b.table
		}
		for _, col := range fieldsMap[key] {
			out = append(out, table+"."+col)
		}
	}
	return out
}

// unknownFields compares column names after the naming strategy but reports what was requested.
func (b *Builder[T]) unknownFields(requested, allowed []string) []string {
	columns := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		columns[b.config.NamingStrategy.column(a)] = true
	}
	out := make([]string, 0)
	seen := make(map[string]bool)
	for _, f := range requested {
		table, _ := splitQualified(f)
		if seen[f] || columns[b.config.NamingStrategy.column(f)] || columns[table+".*"] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func (b *Builder[T]) columnNames(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, b.config.NamingStrategy.column(f))
	}
	return out
}

// resolveRelation maps a request path to the gorm preload path and the related table name.
func (b *Builder[T]) resolveRelation(path string) (string, string) {
	segments := strings.Split(path, ".")
	names := make([]string, 0, len(segments))
	current := b.schema
	table := ""
	for _, seg := range segments {
		name, next := lookupRelation(current, seg)
		names = append(names, name)
		current = next
		if next != nil {
			table = next.Table
		} else {
			table = snakeName(seg)
		}
	}
	return strings.Join(names, "."), table
}

func lookupRelation(s *schema.Schema, segment string) (string, *schema.Schema) {
	if rel := findRelation(s, segment); rel != nil {
		return rel.Name, rel.FieldSchema
	}
	return structName(segment), nil
}

// relationFieldsKey picks the fields map key for a relation path according to config.
func (b *Builder[T]) relationFieldsKey(path, table string) string {
	segments := strings.Split(path, ".")
	switch b.config.RelationFieldsKey {
	case RELATION_KEY_PATH:
		out := make([]string, len(segments))
		for i, s := range segments {
			out[i] = snakeName(s)
		}
		return strings.Join(out, ".")
	case RELATION_KEY_TABLE:
		return table
	default:
		return snakeName(segments[len(segments)-1])
	}
}

func (b *Builder[T]) preload(path string) *gorm.DB {
	gormPath, table := b.resolveRelation(path)
	key := b.relationFieldsKey(path, table)

	if cols, ok := b.request.Fields()[key]; ok && len(cols) == 0 {
		return b.db.Preload(gormPath)
	}
	return b.db.Preload(gormPath, func(tx *gorm.DB) *gorm.DB {
		if !b.fieldsRegistered || !b.request.HasFields() {
			return tx
		}
		cols := b.request.Fields()[key]
		if len(cols) == 0 {
			return tx
		}
		return tx.Clauses(selectColumns(table, b.columnNames(cols)))
	})
}
