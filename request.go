package figoql

import (
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Page is the requested page; zero values mean "not requested".
type Page struct {
	Number int
	Size   int
}

func (p *Page) validate(defaultSize, maxSize int) {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = defaultSize
	}
	if maxSize > 0 && p.Size > maxSize {
		p.Size = maxSize
	}
	// keep (Number-1)*Size representable
	if p.Size > 0 && p.Number > math.MaxInt/p.Size+1 {
		p.Number = math.MaxInt/p.Size + 1
	}
}

func (p Page) offset() int {
	return (p.Number - 1) * p.Size
}

// Request is an immutable snapshot of the query parameters that drive a Builder.
type Request struct {
	filters   map[string]any
	sort      string
	include   string
	fields    map[string]string
	hasFields bool
	appends   []string
	page      *Page
	delimiter string
}

type RequestOption func(*Config)

// WithRequestConfig reads parameter names and the list delimiter from cfg.
func WithRequestConfig(cfg Config) RequestOption {
	return func(c *Config) { *c = cfg }
}

// NewRequest decodes bracketed query-string values such as filter[name]=x and fields[posts]=id,title.
func NewRequest(values url.Values, opts ...RequestOption) *Request {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	p := cfg.Parameters

	r := &Request{
		filters:   make(map[string]any),
		fields:    make(map[string]string),
		appends:   make([]string, 0),
		delimiter: cfg.ArrayDelimiter,
	}

	pageSeen := false
	page := Page{}

	// sorted keys keep decoding deterministic when a key appears in two forms
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		vals := values[key]
		if len(vals) == 0 {
			continue
		}
		base, path, bracketed := splitBracketKey(key)
		switch {
		case base == p.Filter && bracketed && len(path) > 0:
			r.filters[strings.Join(path, ".")] = parseFilterValue(vals, cfg.ArrayDelimiter)
		case base == p.Sort && !bracketed:
			r.sort = strings.Join(vals, cfg.ArrayDelimiter)
		case base == p.Include && !bracketed:
			r.include = strings.Join(vals, cfg.ArrayDelimiter)
		case base == p.Fields:
			r.hasFields = true
			table := ""
			if bracketed {
				table = strings.Join(path, ".")
			}
			r.fields[table] = strings.Join(vals, cfg.ArrayDelimiter)
		case base == p.Append && !bracketed:
			for _, v := range vals {
				r.appends = append(r.appends, splitList(v, cfg.ArrayDelimiter)...)
			}
		case base == p.Page && bracketed && len(path) == 1:
			n, err := strconv.Atoi(strings.TrimSpace(vals[0]))
			if err != nil {
				continue
			}
			switch path[0] {
			case "number":
				page.Number, pageSeen = n, true
			case "size":
				page.Size, pageSeen = n, true
			}
		}
	}
	if pageSeen {
		page.validate(cfg.DefaultPageSize, cfg.MaxPageSize)
		r.page = &page
	}
	return r
}

// FromHTTPRequest snapshots the URL query of r.
func FromHTTPRequest(r *http.Request, opts ...RequestOption) *Request {
	return NewRequest(r.URL.Query(), opts...)
}

// splitBracketKey turns "filter[author][name]" into ("filter", ["author","name"], true).
func splitBracketKey(key string) (string, []string, bool) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, nil, false
	}
	base := key[:open]
	rest := key[open:]
	path := make([]string, 0, 2)
	for len(rest) > 0 && rest[0] == '[' {
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			break
		}
		if seg := strings.TrimSpace(rest[1:end]); seg != "" {
			path = append(path, seg)
		}
		rest = rest[end+1:]
	}
	return base, path, true
}

// Filters returns a copy of the requested filters keyed by filter name.
func (r *Request) Filters() map[string]any {
	out := make(map[string]any, len(r.filters))
	for k, v := range r.filters {
		out[k] = v
	}
	return out
}

func (r *Request) filterNames() []string {
	names := make([]string, 0, len(r.filters))
	for k := range r.filters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (r *Request) Sorts() []Sort {
	return parseSorts(r.sort, r.delimiter)
}

// Includes returns requested relation paths, prefix-expanded.
func (r *Request) Includes() []string {
	return expandIncludes(splitList(r.include, r.delimiter))
}

// HasFields reports whether a fields parameter was present at all.
func (r *Request) HasFields() bool {
	return r.hasFields
}

// Fields returns the field selection map; the root table is keyed by "" when given as fields=a,b.
func (r *Request) Fields() map[string][]string {
	return parseFields(r.fields, r.delimiter)
}

func (r *Request) Appends() []string {
	return append([]string(nil), r.appends...)
}

// Page returns the requested page, or nil when none was requested.
func (r *Request) Page() *Page {
	if r.page == nil {
		return nil
	}
	p := *r.page
	return &p
}
