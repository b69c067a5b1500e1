package query

import (
	"errors"
	"testing"
)

func TestParse_Empty_MatchesEverything(t *testing.T) {
	f, err := Parse("   ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.conds) != 0 || f.orderBy != "" {
		t.Fatalf("empty expression must yield an empty filter: %+v", f)
	}
}

func TestParse_SingleTerm(t *testing.T) {
	f, err := Parse("itemId==195efae1-588f-47bd-a181-13a2eb437701")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.conds) != 1 || f.conds[0].column != "item_id" || f.conds[0].value != "195efae1-588f-47bd-a181-13a2eb437701" {
		t.Fatalf("unexpected conditions: %+v", f.conds)
	}
}

func TestParse_QuotedValueAndConjunction(t *testing.T) {
	f, err := Parse(`status=="Open - Not yet filled" and requesterId==21932a85-bd00-446b-9565-46e0c1a5490b`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.conds) != 2 {
		t.Fatalf("expected 2 conditions, got %+v", f.conds)
	}
	if f.conds[0].column != "status" || f.conds[0].value != "Open - Not yet filled" {
		t.Fatalf("quoted value mangled: %+v", f.conds[0])
	}
	if f.conds[1].column != "requester_id" {
		t.Fatalf("second term: %+v", f.conds[1])
	}
}

func TestParse_SortBy(t *testing.T) {
	f, err := Parse("itemId==x sortBy position asc")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.orderBy != "position" || f.orderDir != "asc" {
		t.Fatalf("order = %q %q", f.orderBy, f.orderDir)
	}

	f, err = Parse("itemId==x sortBy requestDate desc")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.orderBy != "request_date" || f.orderDir != "desc" {
		t.Fatalf("order = %q %q", f.orderBy, f.orderDir)
	}

	// Direction defaults to ascending.
	f, err = Parse("sortBy id")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.orderBy != "id" || f.orderDir != "asc" {
		t.Fatalf("order = %q %q", f.orderBy, f.orderDir)
	}
}

func TestParse_FieldNamesAreCaseInsensitive(t *testing.T) {
	f, err := Parse("ITEMID==x AND Status==y SORTBY POSITION DESC")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.conds) != 2 || f.orderBy != "position" || f.orderDir != "desc" {
		t.Fatalf("case-insensitive parse failed: %+v", f)
	}
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name  string
		expr  string
		field string
	}{
		{"unknown field", "holdShelf==x", "holdShelf"},
		{"missing operator", "itemId x", "itemId"},
		{"missing conjunction", "itemId==x status==y", "status==y"},
		{"dangling and", "itemId==x and", "and"},
		{"unknown sort field", "sortBy colour", "sortBy"},
		{"bad sort direction", "sortBy position sideways", "sortBy"},
		{"sortBy not last", "sortBy position asc itemId==x", "sortBy"},
		{"unterminated quote", `status=="Open`, "query"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.expr)
			var syn *ErrSyntax
			if !errors.As(err, &syn) {
				t.Fatalf("expected ErrSyntax, got %v", err)
			}
			if syn.Field != tc.field {
				t.Fatalf("field = %q, want %q", syn.Field, tc.field)
			}
		})
	}
}
