package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// likeEscaper keeps LIKE metacharacters in filter values literal, so a value
// of "100%" matches the text "100%", not everything starting with "100".
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// FilterSpec is the decoded filters query parameter: field name mapped to
// either a scalar or an operator object.
type FilterSpec map[string]any

type SortField struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

type SortSpec []SortField

// ListParams carries the caller-supplied filter, sort, and pagination inputs
// for a list query. Page and PerPage are zero when absent; the paginated
// envelope is produced only when both are set.
type ListParams struct {
	Filters FilterSpec
	Sort    SortSpec
	Page    int
	PerPage int
}

// ParseListParams decodes filters=<json>, sort=<json>, page and perPage from
// a request query string. Malformed JSON is an error; absent parameters are
// not.
func ParseListParams(values url.Values) (ListParams, error) {
	var params ListParams

	if raw := values.Get("filters"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Filters); err != nil {
			return params, fmt.Errorf("decode filters: %w", err)
		}
	}

	if raw := values.Get("sort"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &params.Sort); err != nil {
			return params, fmt.Errorf("decode sort: %w", err)
		}
	}

	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return params, fmt.Errorf("decode page: %w", err)
		}
		params.Page = page
	}

	if raw := values.Get("perPage"); raw != "" {
		perPage, err := strconv.Atoi(raw)
		if err != nil {
			return params, fmt.Errorf("decode perPage: %w", err)
		}
		params.PerPage = perPage
	}

	return params, nil
}

// Collection describes one queryable table: which columns exist and which of
// them hold identifiers. Identifier columns are matched exactly; every other
// column filtered with a scalar string gets a case-insensitive substring
// match.
type Collection struct {
	Table       string
	Columns     []string
	Identifiers map[string]struct{}
}

func (c Collection) hasColumn(name string) bool {
	for _, col := range c.Columns {
		if col == name {
			return true
		}
	}
	return false
}

func (c Collection) identifier(name string) bool {
	_, ok := c.Identifiers[name]
	return ok
}

// ListOptions carries the caller-imposed parts of a list query. Extra filters
// win over client filters on key collision, so ownership and tenant scoping
// cannot be overridden by request input. Values follow the same shape as
// FilterSpec entries; a sq.Sqlizer value is applied verbatim.
type ListOptions struct {
	Extra   map[string]any
	Columns []string
}

type Pagination struct {
	Skip  uint64 `json:"skip"`
	Limit uint64 `json:"limit"`
	Total int    `json:"total"`
}

// ListResult marshals as a bare JSON array when pagination was not requested
// and as a {results, pagination} envelope when it was.
type ListResult[T any] struct {
	Results    []T
	Pagination *Pagination
}

func (r ListResult[T]) MarshalJSON() ([]byte, error) {
	if r.Pagination == nil {
		return json.Marshal(r.Results)
	}
	return json.Marshal(struct {
		Results    []T         `json:"results"`
		Pagination *Pagination `json:"pagination"`
	}{Results: r.Results, Pagination: r.Pagination})
}

// Plan is a built but unexecuted list query. The count query shares the data
// query's predicate and arguments and ignores skip, limit, and projection.
type Plan struct {
	SelectSQL  string
	SelectArgs []any
	CountSQL   string
	CountArgs  []any
	Skip       uint64
	Limit      uint64
	Paginated  bool
}

// BuildListQuery translates filter, sort, and pagination parameters into a
// query plan against the given collection.
//
// Filter entries are resolved to one of three predicate kinds, decided once
// against the collection schema: exact match for identifier columns, a
// case-insensitive substring match for other scalar strings, and a native
// operator predicate for structured values. Entries with an empty key, an
// empty value, or a key naming no known column are dropped silently, as are
// sort entries without a field name.
func BuildListQuery(c Collection, params ListParams, opts ListOptions) (*Plan, error) {
	merged := make(map[string]any, len(params.Filters)+len(opts.Extra))
	for k, v := range params.Filters {
		merged[k] = v
	}
	for k, v := range opts.Extra {
		merged[k] = v
	}

	var conds []sq.Sqlizer
	for key, value := range merged {
		if key == "" || value == nil {
			continue
		}

		// Caller-imposed predicates are trusted and applied verbatim.
		if raw, ok := value.(sq.Sqlizer); ok {
			conds = append(conds, raw)
			continue
		}

		if !c.hasColumn(key) {
			continue
		}

		switch v := value.(type) {
		case string:
			if v == "" {
				continue
			}
			if c.identifier(key) {
				conds = append(conds, sq.Eq{key: v})
			} else {
				conds = append(conds, sq.ILike{key: "%" + likeEscaper.Replace(v) + "%"})
			}
		case map[string]any:
			conds = append(conds, operatorPredicates(key, v)...)
		case bool, float64, int, int64:
			conds = append(conds, sq.Eq{key: v})
		}
	}

	columns := opts.Columns
	if len(columns) == 0 {
		columns = c.Columns
	}

	builder := psql().Select(columns...).From(c.Table)
	if len(conds) > 0 {
		builder = builder.Where(sq.And(conds))
	}

	for _, s := range params.Sort {
		if s.Field == "" || !c.hasColumn(s.Field) {
			continue
		}
		direction := "DESC"
		if s.Type == "asc" {
			direction = "ASC"
		}
		builder = builder.OrderBy(s.Field + " " + direction)
	}

	plan := &Plan{}

	if params.Page > 0 && params.PerPage > 0 {
		plan.Paginated = true
		plan.Skip = uint64(params.Page-1) * uint64(params.PerPage)
		plan.Limit = uint64(params.PerPage)
		builder = builder.Offset(plan.Skip).Limit(plan.Limit)

		countBuilder := psql().Select("count(*)").From(c.Table)
		if len(conds) > 0 {
			countBuilder = countBuilder.Where(sq.And(conds))
		}

		countSQL, countArgs, err := countBuilder.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build count query: %w", err)
		}
		plan.CountSQL = countSQL
		plan.CountArgs = countArgs
	}

	selectSQL, selectArgs, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	plan.SelectSQL = selectSQL
	plan.SelectArgs = selectArgs

	return plan, nil
}

// operatorPredicates maps a structured filter value onto native predicates.
// Unknown operator keys are dropped silently.
func operatorPredicates(field string, ops map[string]any) []sq.Sqlizer {
	var conds []sq.Sqlizer
	for op, val := range ops {
		switch op {
		case "eq":
			conds = append(conds, sq.Eq{field: val})
		case "ne":
			conds = append(conds, sq.NotEq{field: val})
		case "gt":
			conds = append(conds, sq.Gt{field: val})
		case "gte":
			conds = append(conds, sq.GtOrEq{field: val})
		case "lt":
			conds = append(conds, sq.Lt{field: val})
		case "lte":
			conds = append(conds, sq.LtOrEq{field: val})
		case "in":
			conds = append(conds, sq.Eq{field: val})
		case "nin":
			conds = append(conds, sq.NotEq{field: val})
		case "exists":
			if exists, ok := val.(bool); ok {
				if exists {
					conds = append(conds, sq.NotEq{field: nil})
				} else {
					conds = append(conds, sq.Eq{field: nil})
				}
			}
		}
	}
	return conds
}

// List builds and executes a list query. When pagination was requested the
// count query runs first, against the same predicate as the data query, and
// the result carries the envelope; otherwise no count query is issued and the
// result marshals as a bare array.
func List[T any](ctx context.Context, q pgxscan.Querier, c Collection, params ListParams, opts ListOptions) (*ListResult[T], error) {
	plan, err := BuildListQuery(c, params, opts)
	if err != nil {
		return nil, err
	}

	result := &ListResult[T]{Results: make([]T, 0)}

	if plan.Paginated {
		var total int
		if err := pgxscan.Get(ctx, q, &total, plan.CountSQL, plan.CountArgs...); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.Table, err)
		}
		result.Pagination = &Pagination{Skip: plan.Skip, Limit: plan.Limit, Total: total}
	}

	if err := pgxscan.Select(ctx, q, &result.Results, plan.SelectSQL, plan.SelectArgs...); err != nil {
		return nil, fmt.Errorf("list %s: %w", c.Table, err)
	}

	return result, nil
}
