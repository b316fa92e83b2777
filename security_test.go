package figoql

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowListBlocksInjection(t *testing.T) {
	db := newTestDB(t)

	t.Run("SortColumnNeverReachesSQL", func(t *testing.T) {
		b := New[User](db, newQuery(t, "sort=name%3BDROP%20TABLE%20users"), WithLogger(quietLogger())).
			AllowedSorts(Sorts("name")...)
		var invalid *InvalidSortQuery
		require.ErrorAs(t, b.Err(), &invalid)
		assert.Empty(t, existingOrders(b.DB()))
	})

	t.Run("FilterValueIsBound", func(t *testing.T) {
		b := New[User](db, newQuery(t, "filter[name]=x' OR '1'='1")).AllowedFilters(Exact("name"))
		rs, err := b.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, rs.Len())

		sql, args, err := b.ToRawSQL()
		require.NoError(t, err)
		assert.NotContains(t, sql, "OR '1'")
		assert.Equal(t, []any{"x' OR '1'='1"}, args[:1])
	})

	t.Run("FieldNamesAreQuoted", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.GuardFields = false
		b := New[User](db, newQuery(t, "fields=id,name`) FROM users --"), WithConfig(cfg)).AllowedFields("id")
		sql, _, err := b.ToRawSQL()
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sql, "SELECT `users`.`id`, `users`.`name``) FROM users --` FROM `users`"))
	})

	t.Run("SensitiveFieldsHidden", func(t *testing.T) {
		b := New[User](db, newQuery(t, "fields[users]=id,email,role"), WithLogger(quietLogger())).
			AllowedFields("id", "name")
		var invalid *InvalidFieldQuery
		require.ErrorAs(t, b.Err(), &invalid)
		assert.ElementsMatch(t, []string{"users.email", "users.role"}, invalid.Unknown)

		_, err := b.Get(context.Background())
		assert.Error(t, err)
	})

	t.Run("IncludeOutsideAllowList", func(t *testing.T) {
		b := New[Post](db, newQuery(t, "include=comments,user"), WithLogger(quietLogger())).
			AllowedIncludes("comments")
		var invalid *InvalidIncludeQuery
		require.ErrorAs(t, b.Err(), &invalid)
		assert.Equal(t, []string{"user"}, invalid.Unknown)
	})
}
