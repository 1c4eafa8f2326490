package query

import (
	"strings"
)

// orderFunctions are the string functions an order key may apply
var orderFunctions = map[string]bool{
	"toupper":   true,
	"tolower":   true,
	"left":      true,
	"ltrim":     true,
	"replace":   true,
	"right":     true,
	"rtrim":     true,
	"trim":      true,
	"substring": true,
	"tostring":  true,
}

// SortDirection is the direction of an order term
type SortDirection int

const (
	Ascending SortDirection = iota
	Descending
)

// String returns the Cypher keyword of the direction
func (d SortDirection) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// Order is one ORDER BY term. Scope and Attr are filled in by NormalizeOrder.
type Order struct {
	Key       string
	Scope     string
	Attr      string
	Direction SortDirection
}

// Asc orders by key ascending
func Asc(key string) Order {
	return Order{Key: key}
}

// Desc orders by key descending
func Desc(key string) Order {
	return Order{Key: key, Direction: Descending}
}

// ParseOrder parses "key" or "key:desc"
func ParseOrder(s string) Order {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, ":"); i > 0 {
		switch strings.ToLower(s[i+1:]) {
		case "desc":
			return Desc(s[:i])
		case "asc":
			return Asc(s[:i])
		}
	}
	return Asc(s)
}

// NormalizeKey resolves an order key into its scope and fully qualified
// attribute. A function application must use an allowlisted function.
func NormalizeKey(key, alias string) (scope, attr string, err error) {
	return parseKey(key, alias, true)
}

// NormalizeOrder resolves the scope and attribute of an order term.
// Normalizing an already normalized order returns it unchanged.
func NormalizeOrder(o Order, alias string) (Order, error) {
	source := o.Attr
	if source == "" {
		source = o.Key
	}
	scope, attr, err := parseKey(source, alias, true)
	if err != nil {
		return Order{}, err
	}
	o.Scope = scope
	o.Attr = attr
	return o, nil
}

// NormalizeOrders normalizes every order term
func NormalizeOrders(orders []Order, alias string) ([]Order, error) {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		n, err := NormalizeOrder(o, alias)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// NormalizePredicate resolves the scope and attribute of a leaf, and of every
// leaf inside a group. Groups themselves carry no scope. Filter keys may apply
// any function, such as id(user).
func NormalizePredicate(p Predicate, alias string) (Predicate, error) {
	if p.IsGroup() {
		out := Predicate{}
		var err error
		if p.And != nil {
			if out.And, err = NormalizePredicates(p.And, alias); err != nil {
				return Predicate{}, err
			}
		}
		if p.Or != nil {
			if out.Or, err = NormalizePredicates(p.Or, alias); err != nil {
				return Predicate{}, err
			}
		}
		return out, nil
	}

	source := p.Attr
	if source == "" {
		source = p.Key
	}
	scope, attr, err := parseKey(source, alias, false)
	if err != nil {
		return Predicate{}, err
	}
	p.Scope = scope
	p.Attr = attr
	return p, nil
}

// NormalizePredicates normalizes every predicate
func NormalizePredicates(preds []Predicate, alias string) ([]Predicate, error) {
	out := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		n, err := NormalizePredicate(p, alias)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseKey(key, alias string, allowlisted bool) (string, string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", ErrEmptyKey
	}

	if open := strings.Index(key, "("); open > 0 && strings.HasSuffix(key, ")") {
		name := strings.TrimSpace(key[:open])
		if allowlisted && !orderFunctions[strings.ToLower(name)] {
			return "", "", &UnsupportedOrderFunctionError{Function: name}
		}
		inner := key[open+1 : len(key)-1]
		if end := strings.IndexAny(inner, ".,"); end >= 0 {
			inner = inner[:end]
		}
		return strings.TrimSpace(inner), key, nil
	}

	if dot := strings.Index(key, "."); dot > 0 {
		return key[:dot], key, nil
	}

	if alias == "" {
		return "", key, nil
	}
	return alias, alias + "." + key, nil
}
