package query

import (
	"reflect"
	"testing"
)

func TestOperator_String(t *testing.T) {
	tests := []struct {
		op       Operator
		expected string
	}{
		{OpEqual, "="},
		{OpNotEqual, "<>"},
		{OpGreaterThan, ">"},
		{OpGreaterThanOrEqual, ">="},
		{OpLessThan, "<"},
		{OpLessThanOrEqual, "<="},
		{OpIn, "IN"},
		{OpContains, "CONTAINS"},
		{OpStartsWith, "STARTS WITH"},
		{OpEndsWith, "ENDS WITH"},
		{OpRegex, "=~"},
		{OpIsNull, "IS NULL"},
		{OpIsNotNull, "IS NOT NULL"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.expected {
			t.Errorf("expected %s, got %s", tt.expected, got)
		}
		parsed, err := ParseOperator(tt.expected)
		if err != nil {
			t.Errorf("unexpected error parsing %s: %v", tt.expected, err)
		}
		if parsed != tt.op {
			t.Errorf("expected %v, got %v", tt.op, parsed)
		}
	}
}

func TestParseOperatorAliases(t *testing.T) {
	tests := []struct {
		input    string
		expected Operator
	}{
		{"", OpEqual},
		{"==", OpEqual},
		{"!=", OpNotEqual},
		{"starts   with", OpStartsWith},
		{"in", OpIn},
		{"gte", OpGreaterThanOrEqual},
	}

	for _, tt := range tests {
		got, err := ParseOperator(tt.input)
		if err != nil {
			t.Errorf("unexpected error for %q: %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("expected %v for %q, got %v", tt.expected, tt.input, got)
		}
	}

	if _, err := ParseOperator("LIKE"); err == nil {
		t.Error("expected error for LIKE")
	}
}

func TestPredicateConstructors(t *testing.T) {
	if Eq("name", "x").IsGroup() {
		t.Error("leaf should not be a group")
	}
	if !And(Eq("a", 1)).IsGroup() || !Or().IsGroup() {
		t.Error("And/Or should be groups")
	}

	in := In("status", "active", "pending")
	if in.Operator != OpIn {
		t.Errorf("expected IN, got %v", in.Operator)
	}
	if !reflect.DeepEqual(in.Value, []interface{}{"active", "pending"}) {
		t.Errorf("unexpected IN values %v", in.Value)
	}
}

func TestFromMap(t *testing.T) {
	preds := FromMap(map[string]interface{}{"name": "x", "age": 3})
	if len(preds) != 2 {
		t.Fatalf("expected 2 predicates, got %d", len(preds))
	}
	if preds[0].Key != "age" || preds[1].Key != "name" {
		t.Errorf("expected keys sorted, got %s, %s", preds[0].Key, preds[1].Key)
	}
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		input string
		key   string
		op    Operator
		value interface{}
	}{
		{"age>=21", "age", OpGreaterThanOrEqual, int64(21)},
		{"role.name=admin", "role.name", OpEqual, "admin"},
		{"name='42'", "name", OpEqual, "42"},
		{"active = true", "active", OpEqual, true},
		{"score<2.5", "score", OpLessThan, 2.5},
		{"email=~'.*@acme.com'", "email", OpRegex, ".*@acme.com"},
		{"status!=banned", "status", OpNotEqual, "banned"},
		{"note=a<b", "note", OpEqual, "a<b"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			p, err := ParseFilter(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Key != tt.key || p.Operator != tt.op || p.Value != tt.value {
				t.Errorf("expected %s %v %v, got %s %v %v", tt.key, tt.op, tt.value, p.Key, p.Operator, p.Value)
			}
		})
	}

	if _, err := ParseFilter("name"); err == nil {
		t.Error("expected error for expression without operator")
	}
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		input    string
		expected interface{}
	}{
		{"true", true},
		{"false", false},
		{"null", nil},
		{"12", int64(12)},
		{"1.5", 1.5},
		{`"12"`, "12"},
		{"v1.2.3", "v1.2.3"},
	}

	for _, tt := range tests {
		if got := ParseLiteral(tt.input); got != tt.expected {
			t.Errorf("ParseLiteral(%q) = %#v, want %#v", tt.input, got, tt.expected)
		}
	}
}
