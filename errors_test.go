package figoql

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidQueryErrors(t *testing.T) {
	q := invalidQuery{Unknown: []string{"password"}, Allowed: []string{"name", "email"}}
	cases := []struct {
		err  error
		kind string
	}{
		{&InvalidFilterQuery{q}, "filter"},
		{&InvalidFieldQuery{q}, "field"},
		{&InvalidSortQuery{q}, "sort"},
		{&InvalidIncludeQuery{q}, "include"},
		{&InvalidAppendQuery{q}, "append"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			want := fmt.Sprintf("requested %s(s) `password` are not allowed. Allowed %s(s) are `name, email`", tc.kind, tc.kind)
			assert.EqualError(t, tc.err, want)
			assert.ErrorIs(t, tc.err, ErrInvalidQuery)
			assert.Equal(t, http.StatusBadRequest, StatusCode(tc.err))
		})
	}
}

func TestInvalidQueryWrapped(t *testing.T) {
	err := fmt.Errorf("list users: %w", &InvalidSortQuery{invalidQuery{Unknown: []string{"x"}}})
	var sortErr *InvalidSortQuery
	assert.True(t, errors.As(err, &sortErr))
	assert.Equal(t, []string{"x"}, sortErr.Unknown)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	var filterErr *InvalidFilterQuery
	assert.False(t, errors.As(err, &filterErr))
}

func TestStatusCodeFallback(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(ErrUnsupportedFilter))
}
