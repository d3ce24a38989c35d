package store

import (
	"encoding/json"
	"net/url"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var thingsCollection = Collection{
	Table:   "things",
	Columns: []string{"id", "name", "status", "active", "age", "created_by", "created_at"},
	Identifiers: map[string]struct{}{
		"id":         {},
		"created_by": {},
	},
}

func TestParseListParams(t *testing.T) {
	values := url.Values{}
	values.Set("filters", `{"name":"pipe","status":{"eq":"pending"}}`)
	values.Set("sort", `[{"field":"created_at","type":"asc"}]`)
	values.Set("page", "2")
	values.Set("perPage", "25")

	params, err := ParseListParams(values)
	require.NoError(t, err)

	assert.Equal(t, "pipe", params.Filters["name"])
	assert.Equal(t, map[string]any{"eq": "pending"}, params.Filters["status"])
	require.Len(t, params.Sort, 1)
	assert.Equal(t, "created_at", params.Sort[0].Field)
	assert.Equal(t, "asc", params.Sort[0].Type)
	assert.Equal(t, 2, params.Page)
	assert.Equal(t, 25, params.PerPage)
}

func TestParseListParams_AbsentValues(t *testing.T) {
	params, err := ParseListParams(url.Values{})
	require.NoError(t, err)

	assert.Nil(t, params.Filters)
	assert.Nil(t, params.Sort)
	assert.Zero(t, params.Page)
	assert.Zero(t, params.PerPage)
}

func TestParseListParams_MalformedInput(t *testing.T) {
	cases := map[string]url.Values{
		"filters": {"filters": []string{`{"name":`}},
		"sort":    {"sort": []string{`[{]`}},
		"page":    {"page": []string{"two"}},
		"perPage": {"perPage": []string{"ten"}},
	}

	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseListParams(values)
			assert.Error(t, err)
		})
	}
}

func TestBuildListQuery_NoFilters(t *testing.T) {
	plan, err := BuildListQuery(thingsCollection, ListParams{}, ListOptions{})
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, name, status, active, age, created_by, created_at FROM things", plan.SelectSQL)
	assert.Empty(t, plan.SelectArgs)
	assert.False(t, plan.Paginated)
	assert.Empty(t, plan.CountSQL)
}

func TestBuildListQuery_IdentifierExactMatch(t *testing.T) {
	params := ListParams{Filters: FilterSpec{"created_by": "abc123"}}

	plan, err := BuildListQuery(thingsCollection, params, ListOptions{})
	require.NoError(t, err)

	assert.Contains(t, plan.SelectSQL, "WHERE (created_by = $1)")
	assert.Equal(t, []any{"abc123"}, plan.SelectArgs)
}

func TestBuildListQuery_StringContainsMatch(t *testing.T) {
	params := ListParams{Filters: FilterSpec{"name": "water"}}

	plan, err := BuildListQuery(thingsCollection, params, ListOptions{})
	require.NoError(t, err)

	assert.Contains(t, plan.SelectSQL, "WHERE (name ILIKE $1)")
	assert.Equal(t, []any{"%water%"}, plan.SelectArgs)
}

func TestBuildListQuery_ContainsMatchEscapesWildcards(t *testing.T) {
	params := ListParams{Filters: FilterSpec{"name": `100%_off\`}}

	plan, err := BuildListQuery(thingsCollection, params, ListOptions{})
	require.NoError(t, err)

	assert.Contains(t, plan.SelectSQL, "WHERE (name ILIKE $1)")
	assert.Equal(t, []any{`%100\%\_off\\%`}, plan.SelectArgs)
}

func TestBuildListQuery_DroppedFilters(t *testing.T) {
	params := ListParams{Filters: FilterSpec{
		"bogus_column": "x",
		"name":         "",
		"":             "y",
		"status":       nil,
	}}

	plan, err := BuildListQuery(thingsCollection, params, ListOptions{})
	require.NoError(t, err)

	assert.NotContains(t, plan.SelectSQL, "WHERE")
	assert.Empty(t, plan.SelectArgs)
}

func TestBuildListQuery_OperatorFilters(t *testing.T) {
	cases := []struct {
		name     string
		filter   map[string]any
		wantSQL  string
		wantArgs []any
	}{
		{"gte", map[string]any{"gte": 18}, "WHERE (age >= $1)", []any{18}},
		{"lt", map[string]any{"lt": 65}, "WHERE (age < $1)", []any{65}},
		{"ne", map[string]any{"ne": 40}, "WHERE (age <> $1)", []any{40}},
		{"in", map[string]any{"in": []any{1, 2}}, "WHERE (age IN ($1,$2))", []any{1, 2}},
		{"exists true", map[string]any{"exists": true}, "WHERE (age IS NOT NULL)", nil},
		{"exists false", map[string]any{"exists": false}, "WHERE (age IS NULL)", nil},
		{"unknown operator", map[string]any{"regex": ".*"}, "", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := ListParams{Filters: FilterSpec{"age": tc.filter}}

			plan, err := BuildListQuery(thingsCollection, params, ListOptions{})
			require.NoError(t, err)

			if tc.wantSQL == "" {
				assert.NotContains(t, plan.SelectSQL, "WHERE")
			} else {
				assert.Contains(t, plan.SelectSQL, tc.wantSQL)
			}

			if tc.wantArgs == nil {
				assert.Empty(t, plan.SelectArgs)
			} else {
				assert.Equal(t, tc.wantArgs, plan.SelectArgs)
			}
		})
	}
}

func TestBuildListQuery_ScalarEquality(t *testing.T) {
	params := ListParams{Filters: FilterSpec{"active": true}}

	plan, err := BuildListQuery(thingsCollection, params, ListOptions{})
	require.NoError(t, err)

	assert.Contains(t, plan.SelectSQL, "WHERE (active = $1)")
	assert.Equal(t, []any{true}, plan.SelectArgs)
}

func TestBuildListQuery_ExtraWinsOverClientFilter(t *testing.T) {
	params := ListParams{Filters: FilterSpec{"created_by": "intruder"}}
	opts := ListOptions{Extra: map[string]any{"created_by": "owner"}}

	plan, err := BuildListQuery(thingsCollection, params, opts)
	require.NoError(t, err)

	assert.Contains(t, plan.SelectSQL, "WHERE (created_by = $1)")
	assert.Equal(t, []any{"owner"}, plan.SelectArgs)
}

func TestBuildListQuery_ExtraSqlizerVerbatim(t *testing.T) {
	opts := ListOptions{Extra: map[string]any{"deleted_at": sq.Eq{"deleted_at": nil}}}

	plan, err := BuildListQuery(thingsCollection, ListParams{}, opts)
	require.NoError(t, err)

	assert.Contains(t, plan.SelectSQL, "WHERE (deleted_at IS NULL)")
	assert.Empty(t, plan.SelectArgs)
}

func TestBuildListQuery_Sort(t *testing.T) {
	params := ListParams{Sort: SortSpec{
		{Field: "created_at", Type: "asc"},
		{Field: "bogus", Type: "asc"},
		{Field: ""},
		{Field: "name", Type: "desc"},
	}}

	plan, err := BuildListQuery(thingsCollection, params, ListOptions{})
	require.NoError(t, err)

	assert.Contains(t, plan.SelectSQL, "ORDER BY created_at ASC, name DESC")
}

func TestBuildListQuery_Pagination(t *testing.T) {
	params := ListParams{
		Filters: FilterSpec{"name": "water"},
		Page:    2,
		PerPage: 10,
	}

	plan, err := BuildListQuery(thingsCollection, params, ListOptions{})
	require.NoError(t, err)

	assert.True(t, plan.Paginated)
	assert.Equal(t, uint64(10), plan.Skip)
	assert.Equal(t, uint64(10), plan.Limit)
	assert.Contains(t, plan.SelectSQL, "LIMIT 10 OFFSET 10")

	// The count query shares the data query's predicate and arguments and
	// skips projection and paging.
	assert.Equal(t, "SELECT count(*) FROM things WHERE (name ILIKE $1)", plan.CountSQL)
	assert.Equal(t, plan.SelectArgs, plan.CountArgs)
	assert.NotContains(t, plan.CountSQL, "LIMIT")
}

func TestBuildListQuery_PaginationRequiresBothParams(t *testing.T) {
	for name, params := range map[string]ListParams{
		"page only":    {Page: 3},
		"perPage only": {PerPage: 10},
		"zero page":    {Page: 0, PerPage: 10},
	} {
		t.Run(name, func(t *testing.T) {
			plan, err := BuildListQuery(thingsCollection, params, ListOptions{})
			require.NoError(t, err)

			assert.False(t, plan.Paginated)
			assert.NotContains(t, plan.SelectSQL, "LIMIT")
			assert.Empty(t, plan.CountSQL)
		})
	}
}

func TestBuildListQuery_Projection(t *testing.T) {
	opts := ListOptions{Columns: []string{"id", "name"}}

	plan, err := BuildListQuery(thingsCollection, ListParams{}, opts)
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, name FROM things", plan.SelectSQL)
}

func TestListResult_MarshalBareArray(t *testing.T) {
	result := ListResult[string]{Results: []string{"a", "b"}}

	body, err := json.Marshal(result)
	require.NoError(t, err)

	assert.JSONEq(t, `["a","b"]`, string(body))
}

func TestListResult_MarshalEmptyBareArray(t *testing.T) {
	result := ListResult[string]{Results: []string{}}

	body, err := json.Marshal(result)
	require.NoError(t, err)

	assert.JSONEq(t, `[]`, string(body))
}

func TestListResult_MarshalEnvelope(t *testing.T) {
	result := ListResult[string]{
		Results:    []string{"a"},
		Pagination: &Pagination{Skip: 10, Limit: 10, Total: 31},
	}

	body, err := json.Marshal(result)
	require.NoError(t, err)

	assert.JSONEq(t, `{"results":["a"],"pagination":{"skip":10,"limit":10,"total":31}}`, string(body))
}
