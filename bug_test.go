package figoql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMalformedInput checks that broken query strings degrade to "not requested" instead of panicking.
func TestMalformedInput(t *testing.T) {
	db := newTestDB(t)

	queries := []string{
		"sort=-",
		"sort=,,,",
		"sort=--name",
		"include=.",
		"include=posts..comments",
		"filter[",
		"filter[]]=1",
		"fields[users]=,,",
		"append=,",
		"page[number]=x&page[size]=",
		"page[][]=1",
	}
	for _, raw := range queries {
		t.Run(raw, func(t *testing.T) {
			require.NotPanics(t, func() {
				b := New[User](db, newQuery(t, raw), WithLogger(quietLogger())).
					AllowedFilters(Partial("name")).
					AllowedSorts(Sorts("name")...).
					AllowedIncludes("posts.comments").
					AllowedFields("id", "name").
					AllowedAppends("fullName")
				_, _ = b.Get(context.Background())
			})
		})
	}
}

func TestMalformedInputOutcomes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	t.Run("DoubleDashIsUnknownSort", func(t *testing.T) {
		b := New[User](db, newQuery(t, "sort=--name"), WithLogger(quietLogger())).AllowedSorts(Sorts("name")...)
		var invalid *InvalidSortQuery
		require.ErrorAs(t, b.Err(), &invalid)
		assert.Equal(t, []string{"-name"}, invalid.Unknown)
	})

	t.Run("EmptyIncludeSegmentsStopExpansion", func(t *testing.T) {
		b := New[User](db, newQuery(t, "include=posts..comments")).AllowedIncludes("posts")
		require.NoError(t, b.Err())
		_, ok := b.DB().Statement.Preloads["Posts"]
		assert.True(t, ok)
	})

	t.Run("EmptyFieldListSelectsEverything", func(t *testing.T) {
		rs, err := New[User](db, newQuery(t, "fields[users]=,,")).AllowedFields("id").Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, rs.Len())
		assert.NotEmpty(t, rs.Models()[0].Email)
	})

	t.Run("BadPageIsIgnored", func(t *testing.T) {
		rs, err := New[User](db, newQuery(t, "page[number]=x")).Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, rs.Len())
	})
}
