package query

import (
	"encoding/json"
	"strconv"
	"strings"

	"stacsearch/pkg/errors"
)

// Operator symbol to canonical comparison name. Two-character symbols are
// resolved before their one-character prefixes.
var operators = map[string]string{
	"=":  "eq",
	"<":  "lt",
	"<=": "lte",
	">":  "gt",
	">=": "gte",
}

// Query holds the abbreviated keyword set accepted by the client. IDs is
// only meaningful together with Collection; when both are set every other
// filter key is ignored.
type Query struct {
	Bbox       []float64
	Intersects json.RawMessage
	Datetime   string
	Properties []string
	Sort       []string
	IDs        []string
	Collection string
}

// Search is the canonical filter document produced from a Query. It is
// immutable once built.
type Search struct {
	Bbox       []float64                         `json:"bbox,omitempty"`
	Intersects json.RawMessage                   `json:"intersects,omitempty"`
	Time       string                            `json:"time,omitempty"`
	Query      map[string]map[string]interface{} `json:"query,omitempty"`
	Sort       []SortSpec                        `json:"sort,omitempty"`

	// Direct-lookup request: set when IDs and Collection were supplied
	// together. A lookup bypasses the search body entirely.
	IDs        []string `json:"ids,omitempty"`
	Collection string   `json:"collection,omitempty"`
}

// SortSpec is an explicit sort directive
type SortSpec struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Expression is a parsed property comparison
type Expression struct {
	Field    string
	Operator string
	Value    interface{}
}

// IsLookup reports whether the search is a direct ID lookup rather than a
// filter search
func (s *Search) IsLookup() bool {
	return len(s.IDs) > 0
}

// Normalize translates the abbreviated keyword set into the canonical filter
// document. It fails with an invalid_query error when IDs are given without
// a collection or a property expression does not parse.
func (q Query) Normalize() (*Search, error) {
	if len(q.IDs) > 0 {
		if q.Collection == "" {
			return nil, errors.NewInvalidQuery("ids require a collection")
		}
		// IDs + collection short-circuit every other filter
		return &Search{
			IDs:        append([]string(nil), q.IDs...),
			Collection: q.Collection,
		}, nil
	}

	s := &Search{
		Bbox:       q.Bbox,
		Intersects: q.Intersects,
		Time:       q.Datetime,
	}

	for _, prop := range q.Properties {
		expr, err := ParseExpression(prop)
		if err != nil {
			return nil, err
		}
		s.addExpression(expr)
	}

	if q.Collection != "" {
		s.addExpression(Expression{Field: "collection", Operator: "eq", Value: q.Collection})
	}

	for _, sort := range q.Sort {
		spec, err := parseSort(sort)
		if err != nil {
			return nil, err
		}
		s.Sort = append(s.Sort, spec)
	}

	return s, nil
}

// addExpression merges a comparison into the query document. Multiple
// expressions on the same field share one comparison object.
func (s *Search) addExpression(expr Expression) {
	if s.Query == nil {
		s.Query = make(map[string]map[string]interface{})
	}
	if s.Query[expr.Field] == nil {
		s.Query[expr.Field] = make(map[string]interface{})
	}
	s.Query[expr.Field][expr.Operator] = expr.Value
}

// ParseExpression parses a compact property comparison such as
// "eo:cloud_cover<10" into its field, canonical operator and value.
func ParseExpression(expr string) (Expression, error) {
	idx := strings.IndexAny(expr, "<>=")
	if idx <= 0 {
		return Expression{}, errors.NewInvalidQuery("malformed property expression %q", expr)
	}

	symbol := string(expr[idx])
	if idx+1 < len(expr) && expr[idx+1] == '=' && symbol != "=" {
		symbol += "="
	}

	field := strings.TrimSpace(expr[:idx])
	raw := strings.TrimSpace(expr[idx+len(symbol):])
	if field == "" || raw == "" {
		return Expression{}, errors.NewInvalidQuery("malformed property expression %q", expr)
	}

	op, ok := operators[symbol]
	if !ok {
		return Expression{}, errors.NewInvalidQuery("unknown operator %q in %q", symbol, expr)
	}

	return Expression{Field: field, Operator: op, Value: parseValue(raw)}, nil
}

// parseValue interprets numeric literals as numbers and everything else as a
// string
func parseValue(raw string) interface{} {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return strings.Trim(raw, `"'`)
}

// parseSort translates the abbreviated sort form (field name, optionally
// prefixed with '-' for descending) into an explicit directive
func parseSort(field string) (SortSpec, error) {
	direction := "asc"
	if strings.HasPrefix(field, "-") {
		direction = "desc"
		field = field[1:]
	}
	field = strings.TrimSpace(field)
	if field == "" {
		return SortSpec{}, errors.NewInvalidQuery("empty sort field")
	}
	return SortSpec{Field: field, Direction: direction}, nil
}

// ParseBbox parses a comma-separated bounding box of 4 (2D) or 6 (3D)
// coordinates
func ParseBbox(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 && len(parts) != 6 {
		return nil, errors.NewInvalidQuery("bbox needs 4 or 6 coordinates, got %d", len(parts))
	}

	coords := make([]float64, len(parts))
	for i, part := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errors.NewInvalidQuery("bbox coordinate %q is not a number", part)
		}
		coords[i] = n
	}

	return coords, nil
}
