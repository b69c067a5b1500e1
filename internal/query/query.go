// Package query translates the minimal CQL-style filter expressions accepted
// by the list endpoints into GORM query scopes.
//
// Supported grammar (case-insensitive keywords):
//
//	expr     := term { "and" term } [ "sortBy" field [ "asc" | "desc" ] ]
//	term     := field "==" value
//	field    := one of the whitelisted request fields
//	value    := bare word or double-quoted string
//
// Examples:
//
//	itemId==195efae1-588f-47bd-a181-13a2eb437701
//	status=="Open - Not yet filled" and requesterId==21932a85 sortBy position asc
//
// Only whitelisted fields are accepted; anything else is a validation error
// carrying the offending parameter so handlers can surface it verbatim.
package query

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// filterableFields maps expression field names to their SQL columns. The
// whitelist keeps the parser from becoming an injection vector: values are
// always bound, and columns only ever come from this table.
var filterableFields = map[string]string{
	"id":                   "id",
	"itemid":               "item_id",
	"requesterid":          "requester_id",
	"instanceid":           "instance_id",
	"status":               "status",
	"requesttype":          "request_type",
	"cancellationreasonid": "cancellation_reason_id",
	"pickupservicepointid": "pickup_service_point_id",
}

// sortableFields maps sortBy field names to their SQL columns.
var sortableFields = map[string]string{
	"position":    "position",
	"requestdate": "request_date",
	"status":      "status",
	"id":          "id",
}

// ErrSyntax describes a filter expression the parser could not accept. Field
// and Value identify the offending parameter for structured error responses.
type ErrSyntax struct {
	Field string
	Value string
	Msg   string
}

// Error implements the error interface.
func (e *ErrSyntax) Error() string {
	return fmt.Sprintf("invalid query near %q: %s", e.Field, e.Msg)
}

// condition is one parsed field==value term.
type condition struct {
	column string
	value  string
}

// Filter is a parsed expression, ready to be applied to a GORM query.
type Filter struct {
	conds    []condition
	orderBy  string
	orderDir string
}

// Parse parses a filter expression. An empty expression yields a Filter that
// matches everything, ordered by request date.
func Parse(expr string) (*Filter, error) {
	f := &Filter{}
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return f, nil
	}

	tokens, err := tokenize(expr)
	if err != nil {
		return nil, err
	}

	i := 0
	for i < len(tokens) {
		tok := tokens[i]
		if strings.EqualFold(tok, "sortBy") {
			if i != len(tokens)-2 && i != len(tokens)-3 {
				return nil, &ErrSyntax{Field: "sortBy", Value: expr, Msg: "sortBy must end the expression"}
			}
			col, ok := sortableFields[strings.ToLower(tokens[i+1])]
			if !ok {
				return nil, &ErrSyntax{Field: "sortBy", Value: tokens[i+1], Msg: "unsupported sort field"}
			}
			f.orderBy = col
			f.orderDir = "asc"
			if i == len(tokens)-3 {
				switch strings.ToLower(tokens[i+2]) {
				case "asc", "desc":
					f.orderDir = strings.ToLower(tokens[i+2])
				default:
					return nil, &ErrSyntax{Field: "sortBy", Value: tokens[i+2], Msg: "sort direction must be asc or desc"}
				}
			}
			break
		}

		if len(f.conds) > 0 {
			if !strings.EqualFold(tok, "and") {
				return nil, &ErrSyntax{Field: tok, Value: expr, Msg: "terms must be joined with and"}
			}
			i++
			if i >= len(tokens) {
				return nil, &ErrSyntax{Field: "and", Value: expr, Msg: "dangling conjunction"}
			}
			tok = tokens[i]
		}

		name, val, ok := strings.Cut(tok, "==")
		if !ok {
			return nil, &ErrSyntax{Field: tok, Value: expr, Msg: "term must have the form field==value"}
		}
		col, known := filterableFields[strings.ToLower(name)]
		if !known {
			return nil, &ErrSyntax{Field: name, Value: val, Msg: "unsupported filter field"}
		}
		f.conds = append(f.conds, condition{column: col, value: val})
		i++
	}

	return f, nil
}

// tokenize splits an expression on whitespace, honoring double quotes so
// values like "Open - Not yet filled" survive as a single token.
func tokenize(expr string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	for _, r := range expr {
		switch {
		case r == '"':
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\t'):
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, &ErrSyntax{Field: "query", Value: expr, Msg: "unterminated quote"}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// Scope returns a GORM scope applying the filter's conditions and ordering.
// All values are passed as bind parameters.
func (f *Filter) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, c := range f.conds {
			db = db.Where(c.column+" = ?", c.value)
		}
		if f.orderBy != "" {
			db = db.Order(f.orderBy + " " + f.orderDir)
		} else {
			db = db.Order("request_date asc")
		}
		return db
	}
}
