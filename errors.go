package figoql

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidQuery matches every allow-list violation via errors.Is.
var ErrInvalidQuery = errors.New("figoql: invalid query")

// ErrUnsupportedFilter is returned by adapters that cannot render a gorm-only filter strategy.
var ErrUnsupportedFilter = errors.New("figoql: filter strategy not supported by adapter")

// invalidQuery holds what every category error carries.
type invalidQuery struct {
	Unknown []string
	Allowed []string
}

func (e invalidQuery) describe(kind string) string {
	return fmt.Sprintf("requested %s(s) `%s` are not allowed. Allowed %s(s) are `%s`",
		kind, strings.Join(e.Unknown, ", "), kind, strings.Join(e.Allowed, ", "))
}

func (invalidQuery) StatusCode() int { return http.StatusBadRequest }

func (invalidQuery) Is(target error) bool { return target == ErrInvalidQuery }

type InvalidFilterQuery struct{ invalidQuery }

func (e *InvalidFilterQuery) Error() string { return e.describe("filter") }

type InvalidFieldQuery struct{ invalidQuery }

func (e *InvalidFieldQuery) Error() string { return e.describe("field") }

type InvalidSortQuery struct{ invalidQuery }

func (e *InvalidSortQuery) Error() string { return e.describe("sort") }

type InvalidIncludeQuery struct{ invalidQuery }

func (e *InvalidIncludeQuery) Error() string { return e.describe("include") }

type InvalidAppendQuery struct{ invalidQuery }

func (e *InvalidAppendQuery) Error() string { return e.describe("append") }

// StatusCode returns the HTTP status for err, or 500 when err is not a client-input error.
func StatusCode(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
