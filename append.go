package figoql

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Appender is implemented by models that expose computed attributes.
// AppendAttribute returns false when name is not a known attribute.
type Appender interface {
	AppendAttribute(name string) (any, bool)
}

// Record is one result row plus the computed attributes requested for it.
type Record[T any] struct {
	Model   T
	Appends map[string]any
}

// MarshalJSON writes the model's JSON object with the appended attributes merged in.
func (r Record[T]) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(r.Model)
	if err != nil {
		return nil, err
	}
	if len(r.Appends) == 0 {
		return raw, nil
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return nil, fmt.Errorf("figoql: cannot append attributes to non-object %T", r.Model)
	}
	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	for name, value := range r.Appends {
		v, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("figoql: marshal appended %q: %w", name, err)
		}
		merged[name] = v
	}
	return json.Marshal(merged)
}

// ResultSet is the ordered result of Get; appends are computed once, when it is built.
type ResultSet[T any] struct {
	Records []Record[T]
}

func newResultSet[T any](models []T, appends []string) (*ResultSet[T], error) {
	rs := &ResultSet[T]{Records: make([]Record[T], 0, len(models))}
	for i := range models {
		rec := Record[T]{}
		if len(appends) > 0 {
			appender, ok := any(&models[i]).(Appender)
			if !ok {
				return nil, fmt.Errorf("figoql: %T does not implement Appender", models[i])
			}
			rec.Appends = make(map[string]any, len(appends))
			for _, name := range appends {
				value, ok := appender.AppendAttribute(name)
				if !ok {
					return nil, fmt.Errorf("figoql: %T has no attribute %q", models[i], name)
				}
				rec.Appends[name] = value
			}
		}
		rec.Model = models[i]
		rs.Records = append(rs.Records, rec)
	}
	return rs, nil
}

func (rs *ResultSet[T]) Len() int {
	return len(rs.Records)
}

// Models returns the bare models without appended attributes.
func (rs *ResultSet[T]) Models() []T {
	out := make([]T, len(rs.Records))
	for i, r := range rs.Records {
		out[i] = r.Model
	}
	return out
}

func (rs *ResultSet[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(rs.Records)
}
