package figoql

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSorts(t *testing.T) {
	assert.Equal(t, []Sort{{Field: "name", Desc: true}, {Field: "age"}}, parseSorts("-name, age", ","))
	assert.Empty(t, parseSorts("", ","))
	assert.Empty(t, parseSorts("-,,", ","))
	assert.Equal(t, "-name", Sort{Field: "name", Desc: true}.String())
}

func TestExpandIncludes(t *testing.T) {
	assert.Equal(t, []string{"a", "a.b", "a.b.c"}, expandPath("a.b.c"))
	assert.Equal(t, []string{"a"}, expandPath("a..c"))
	assert.Equal(t,
		[]string{"posts", "posts.comments", "posts.author", "tags"},
		expandIncludes([]string{"posts.comments", "posts.author", "posts", "tags"}),
	)
}

func TestParseFilterValue(t *testing.T) {
	assert.Equal(t, "ali", parseFilterValue([]string{" ali "}, ","))
	assert.Equal(t, []string{"a", "b"}, parseFilterValue([]string{"a,b"}, ","))
	assert.Equal(t, []string{"a", "b", "c"}, parseFilterValue([]string{"a", "b,c"}, ","))
	assert.Equal(t, []string{}, parseFilterValue([]string{","}, ","))
}

func TestCoerceBool(t *testing.T) {
	assert.Equal(t, true, coerceBool("TRUE"))
	assert.Equal(t, false, coerceBool("false"))
	assert.Equal(t, "yes", coerceBool("yes"))
	assert.Equal(t, []any{true, "x"}, coerceBool([]string{"true", "x"}))
	assert.Equal(t, 3, coerceBool(3))
}

func TestDifference(t *testing.T) {
	assert.Equal(t, []string{"c", "a2"}, difference([]string{"c", "a", "c", "a2"}, []string{"a", "b"}))
	assert.Empty(t, difference(nil, []string{"a"}))
	assert.True(t, containsWildcard([]string{"a", "*"}))
	assert.False(t, containsWildcard([]string{"a"}))
}

func TestParseOperation(t *testing.T) {
	cases := map[string]struct {
		op    Operation
		value string
	}{
		">=10": {OperationGte, "10"},
		"<= 3": {OperationLte, "3"},
		"!=x":  {OperationNeq, "x"},
		">1":   {OperationGt, "1"},
		"<1":   {OperationLt, "1"},
		"=5":   {OperationEq, "5"},
		"5":    {OperationEq, "5"},
	}
	for in, want := range cases {
		op, v := parseOperation(in)
		assert.Equal(t, want.op, op, in)
		assert.Equal(t, want.value, v, in)
	}
}

func TestResolveValue(t *testing.T) {
	v, ok := Exact("role").resolveValue("")
	assert.False(t, ok)
	assert.Nil(t, v)

	v, ok = Exact("role").Default("admin").resolveValue("")
	assert.True(t, ok)
	assert.Equal(t, "admin", v)

	v, ok = Exact("role").Default("admin").resolveValue("user")
	assert.True(t, ok)
	assert.Equal(t, "user", v)

	v, ok = Exact("role").Ignore("any").resolveValue([]string{"any", "user"})
	assert.True(t, ok)
	assert.Equal(t, "user", v)

	_, ok = Exact("role").Ignore("a", "b").resolveValue([]string{"a", "b"})
	assert.False(t, ok)
}

func TestFilterConstructors(t *testing.T) {
	f := Exact("mail", "email")
	assert.Equal(t, "mail", f.Property())
	assert.Equal(t, "email", f.Column())
	assert.Equal(t, FilterExact, f.Kind())

	assert.Equal(t, "trashed", Trashed().Property())
	assert.Equal(t, "deleted", Trashed("deleted").Property())
	assert.Equal(t, "olderThan", NamedScope("older_than", "olderThan").scopeName)
	assert.Equal(t, "partial", Partials("a")[0].Kind().String())
	assert.Equal(t, "age", SortField("-age").Name())
}
