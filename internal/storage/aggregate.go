package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Field is a transactions column that aggregation requests may reference.
type Field string

const (
	FieldUserID      Field = "user_id"
	FieldType        Field = "type"
	FieldCategory    Field = "category"
	FieldDate        Field = "date_ms"
	FieldAmount      Field = "amount_cents"
	FieldIsRecurring Field = "is_recurring"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindInt
	kindTime
	kindBool
)

var fieldKinds = map[Field]fieldKind{
	FieldUserID:      kindText,
	FieldType:        kindText,
	FieldCategory:    kindText,
	FieldDate:        kindTime,
	FieldAmount:      kindInt,
	FieldIsRecurring: kindBool,
}

// Op is a comparison operator for match filters.
type Op string

const (
	OpEq  Op = "="
	OpGte Op = ">="
	OpLte Op = "<="
)

var (
	ErrUnknownField    = errors.New("unknown aggregation field")
	ErrInvalidOperator = errors.New("operator not allowed for field")
	ErrInvalidValue    = errors.New("value type does not match field")
	ErrInvalidAlias    = errors.New("invalid projection alias")
	ErrNoProjection    = errors.New("aggregation has no projected output")
)

var aliasPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Match is one conjunctive filter of an aggregation request.
type Match struct {
	Field Field
	Op    Op
	Value any
}

// Sum projects SUM(field), or SUM(ABS(field)) when Abs is set, under Alias.
type Sum struct {
	Field Field
	Abs   bool
	Alias string
}

// AggregationRequest is a validated grouping query over transactions. Build
// one with NewAggregation; the zero value is not usable.
type AggregationRequest struct {
	matches []Match
	groupBy []Field
	sums    []Sum
	count   string
}

// AggregateRow is one output group. Keys holds the group-by values, Values
// the projected sums and count by alias.
type AggregateRow struct {
	Keys   map[Field]string
	Values map[string]int64
}

// AggregationBuilder collects the parts of a request; Build validates them.
type AggregationBuilder struct {
	req  AggregationRequest
	errs []error
}

func NewAggregation() *AggregationBuilder {
	return &AggregationBuilder{}
}

func (b *AggregationBuilder) Where(f Field, op Op, value any) *AggregationBuilder {
	b.req.matches = append(b.req.matches, Match{Field: f, Op: op, Value: value})
	return b
}

// Between adds the inclusive range from <= f <= to.
func (b *AggregationBuilder) Between(f Field, from, to any) *AggregationBuilder {
	return b.Where(f, OpGte, from).Where(f, OpLte, to)
}

func (b *AggregationBuilder) GroupBy(fields ...Field) *AggregationBuilder {
	b.req.groupBy = append(b.req.groupBy, fields...)
	return b
}

func (b *AggregationBuilder) Sum(f Field, alias string) *AggregationBuilder {
	b.req.sums = append(b.req.sums, Sum{Field: f, Alias: alias})
	return b
}

func (b *AggregationBuilder) SumAbs(f Field, alias string) *AggregationBuilder {
	b.req.sums = append(b.req.sums, Sum{Field: f, Abs: true, Alias: alias})
	return b
}

func (b *AggregationBuilder) Count(alias string) *AggregationBuilder {
	b.req.count = alias
	return b
}

// Build validates every part and returns the request or all problems found.
func (b *AggregationBuilder) Build() (AggregationRequest, error) {
	var errs []error
	aliases := map[string]bool{}

	for _, m := range b.req.matches {
		if err := validateMatch(m); err != nil {
			errs = append(errs, err)
		}
	}
	for _, f := range b.req.groupBy {
		if _, ok := fieldKinds[f]; !ok {
			errs = append(errs, fmt.Errorf("group by %q: %w", f, ErrUnknownField))
		}
	}
	for _, s := range b.req.sums {
		if kind, ok := fieldKinds[s.Field]; !ok {
			errs = append(errs, fmt.Errorf("sum %q: %w", s.Field, ErrUnknownField))
		} else if kind != kindInt {
			errs = append(errs, fmt.Errorf("sum %q: %w", s.Field, ErrInvalidOperator))
		}
		errs = appendAliasErr(errs, aliases, s.Alias)
	}
	if b.req.count != "" {
		errs = appendAliasErr(errs, aliases, b.req.count)
	}
	if len(b.req.sums) == 0 && b.req.count == "" {
		errs = append(errs, ErrNoProjection)
	}

	if len(errs) > 0 {
		return AggregationRequest{}, fmt.Errorf("invalid aggregation: %w", errors.Join(errs...))
	}
	return b.req, nil
}

func appendAliasErr(errs []error, seen map[string]bool, alias string) []error {
	if !aliasPattern.MatchString(alias) {
		return append(errs, fmt.Errorf("alias %q: %w", alias, ErrInvalidAlias))
	}
	if seen[alias] {
		return append(errs, fmt.Errorf("duplicate alias %q: %w", alias, ErrInvalidAlias))
	}
	seen[alias] = true
	return errs
}

func validateMatch(m Match) error {
	kind, ok := fieldKinds[m.Field]
	if !ok {
		return fmt.Errorf("match %q: %w", m.Field, ErrUnknownField)
	}
	switch m.Op {
	case OpEq:
	case OpGte, OpLte:
		if kind != kindInt && kind != kindTime {
			return fmt.Errorf("match %q %s: %w", m.Field, m.Op, ErrInvalidOperator)
		}
	default:
		return fmt.Errorf("match %q %s: %w", m.Field, m.Op, ErrInvalidOperator)
	}
	if _, err := bindValue(kind, m.Value); err != nil {
		return fmt.Errorf("match %q: %w", m.Field, err)
	}
	return nil
}

func bindValue(kind fieldKind, v any) (any, error) {
	switch kind {
	case kindText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case kindInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		}
	case kindTime:
		if t, ok := v.(time.Time); ok {
			return toMillis(t), nil
		}
	case kindBool:
		if b, ok := v.(bool); ok {
			return boolInt(b), nil
		}
	}
	return nil, fmt.Errorf("%w: %T", ErrInvalidValue, v)
}

// sql compiles the request. Only validated identifiers reach the query text;
// every value is bound.
func (q AggregationRequest) sql() (string, []any) {
	var (
		cols  []string
		where []string
		args  []any
	)
	for _, f := range q.groupBy {
		cols = append(cols, string(f))
	}
	for _, s := range q.sums {
		expr := string(s.Field)
		if s.Abs {
			expr = "ABS(" + expr + ")"
		}
		cols = append(cols, fmt.Sprintf("COALESCE(SUM(%s), 0) AS %s", expr, s.Alias))
	}
	if q.count != "" {
		cols = append(cols, "COUNT(*) AS "+q.count)
	}
	for _, m := range q.matches {
		v, _ := bindValue(fieldKinds[m.Field], m.Value)
		where = append(where, fmt.Sprintf("%s %s ?", m.Field, m.Op))
		args = append(args, v)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM transactions")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	if len(q.groupBy) > 0 {
		groups := make([]string, len(q.groupBy))
		for i, f := range q.groupBy {
			groups[i] = string(f)
		}
		sb.WriteString(" GROUP BY ")
		sb.WriteString(strings.Join(groups, ", "))
	}
	return sb.String(), args
}

// Aggregate runs a validated request. Without group-by keys exactly one row
// is returned even when nothing matches.
func (r *SQLiteRepository) Aggregate(ctx context.Context, q AggregationRequest) ([]AggregateRow, error) {
	if len(q.sums) == 0 && q.count == "" {
		return nil, ErrNoProjection
	}
	query, args := q.sql()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	defer rows.Close()

	var out []AggregateRow
	for rows.Next() {
		keys := make([]string, len(q.groupBy))
		vals := make([]int64, len(q.sums))
		var count int64

		dest := make([]any, 0, len(keys)+len(vals)+1)
		for i := range keys {
			dest = append(dest, &keys[i])
		}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if q.count != "" {
			dest = append(dest, &count)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}

		row := AggregateRow{Keys: make(map[Field]string, len(keys)), Values: make(map[string]int64, len(vals)+1)}
		for i, f := range q.groupBy {
			row.Keys[f] = keys[i]
		}
		for i, s := range q.sums {
			row.Values[s.Alias] = vals[i]
		}
		if q.count != "" {
			row.Values[q.count] = count
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
