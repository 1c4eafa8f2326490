// Package query builds parameterised Cypher statements and defines the rows
// returned by the store.
package query

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Operator represents a comparison operator
type Operator int

const (
	OpEqual Operator = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpIn
	OpContains
	OpStartsWith
	OpEndsWith
	OpRegex
	OpIsNull
	OpIsNotNull
)

// String returns the Cypher representation of the operator
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "<>"
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpIn:
		return "IN"
	case OpContains:
		return "CONTAINS"
	case OpStartsWith:
		return "STARTS WITH"
	case OpEndsWith:
		return "ENDS WITH"
	case OpRegex:
		return "=~"
	case OpIsNull:
		return "IS NULL"
	case OpIsNotNull:
		return "IS NOT NULL"
	default:
		return "UNKNOWN"
	}
}

// Unary reports whether the operator binds no value
func (o Operator) Unary() bool {
	return o == OpIsNull || o == OpIsNotNull
}

// ParseOperator converts an operator string to an Operator
func ParseOperator(s string) (Operator, error) {
	switch strings.ToUpper(strings.Join(strings.Fields(s), " ")) {
	case "", "=", "==", "EQ":
		return OpEqual, nil
	case "!=", "<>", "NE":
		return OpNotEqual, nil
	case ">", "GT":
		return OpGreaterThan, nil
	case ">=", "GTE":
		return OpGreaterThanOrEqual, nil
	case "<", "LT":
		return OpLessThan, nil
	case "<=", "LTE":
		return OpLessThanOrEqual, nil
	case "IN":
		return OpIn, nil
	case "CONTAINS":
		return OpContains, nil
	case "STARTS WITH":
		return OpStartsWith, nil
	case "ENDS WITH":
		return OpEndsWith, nil
	case "=~":
		return OpRegex, nil
	case "IS NULL":
		return OpIsNull, nil
	case "IS NOT NULL":
		return OpIsNotNull, nil
	default:
		return OpEqual, fmt.Errorf("unknown operator: %s", s)
	}
}

// Predicate is either a leaf comparison or a boolean group. A leaf names its
// key as given by the caller; Scope and Attr are filled in by Normalize.
type Predicate struct {
	Key      string
	Scope    string
	Attr     string
	Operator Operator
	Value    interface{}

	And []Predicate
	Or  []Predicate
}

// Where creates a leaf predicate
func Where(key string, op Operator, value interface{}) Predicate {
	return Predicate{Key: key, Operator: op, Value: value}
}

// Eq creates an equality predicate
func Eq(key string, value interface{}) Predicate {
	return Where(key, OpEqual, value)
}

// In creates an IN predicate
func In(key string, values ...interface{}) Predicate {
	return Where(key, OpIn, values)
}

// And creates a conjunction group
func And(preds ...Predicate) Predicate {
	return Predicate{And: preds}
}

// Or creates a disjunction group
func Or(preds ...Predicate) Predicate {
	return Predicate{Or: preds}
}

// IsGroup reports whether the predicate is a boolean group
func (p Predicate) IsGroup() bool {
	return p.And != nil || p.Or != nil
}

// FromMap converts an attribute -> value mapping into equality predicates,
// sorted by key
func FromMap(filters map[string]interface{}) []Predicate {
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]Predicate, 0, len(keys))
	for _, k := range keys {
		preds = append(preds, Eq(k, filters[k]))
	}
	return preds
}

var filterOperators = []string{"!=", "<>", ">=", "<=", "=~", "=", ">", "<"}

// ParseFilter parses a "key<op>value" expression such as "age>=21" or
// "role.name=admin". Values are parsed as literals.
func ParseFilter(expr string) (Predicate, error) {
	for idx := 1; idx < len(expr); idx++ {
		for _, op := range filterOperators {
			if !strings.HasPrefix(expr[idx:], op) {
				continue
			}
			operator, err := ParseOperator(op)
			if err != nil {
				return Predicate{}, err
			}
			key := strings.TrimSpace(expr[:idx])
			value := strings.TrimSpace(expr[idx+len(op):])
			return Where(key, operator, ParseLiteral(value)), nil
		}
	}
	return Predicate{}, fmt.Errorf("invalid filter expression: %s", expr)
}

// ParseLiteral parses a literal value from a string. Quoted values stay
// strings; otherwise booleans, integers and decimals are recognised.
func ParseLiteral(s string) interface{} {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}

	switch s {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}

	return s
}
