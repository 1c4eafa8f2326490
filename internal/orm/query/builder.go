package query

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/conduit-lang/graphorm/internal/orm/schema"
)

// MatchSpec describes one node pattern. With From set the pattern is a
// traversal from the From alias through an edge into the node.
type MatchSpec struct {
	Alias  string
	Labels string
	Props  map[string]interface{}

	From      string
	Edge      string
	EdgeType  string
	Direction schema.Direction
	EdgeProps map[string]interface{}

	// Optional is nil to take the builder default, which applies to
	// traversals only
	Optional *bool
}

// RelateSpec describes the relationship written by Relate
type RelateSpec struct {
	Owner     string
	Edge      string
	Target    string
	Type      string
	Direction schema.Direction
}

// Statement is a rendered Cypher statement and its parameters
type Statement struct {
	Text   string
	Params map[string]interface{}
}

// String returns the statement text
func (s Statement) String() string {
	return s.Text
}

// IsWrite reports whether the statement modifies the graph
func (s Statement) IsWrite() bool {
	return IsWriteStatement(s.Text)
}

var writeClause = regexp.MustCompile(`\b(CREATE|MERGE|SET|DELETE|REMOVE)\b`)

// IsWriteStatement reports whether a statement text modifies the graph
func IsWriteStatement(text string) bool {
	return writeClause.MatchString(text)
}

type matchClause struct {
	key      string
	pattern  string
	optional bool
	where    []string
}

// Builder accumulates the clauses of one statement. A builder belongs to a
// single operation and is not safe for concurrent use.
type Builder struct {
	matches []*matchClause
	byKey   map[string]*matchClause
	last    *matchClause
	pending []Predicate
	filters []string

	sets    []string
	returns []string
	orders  []string

	distinct bool
	optional bool
	skip     *int
	limit    *int

	params  map[string]interface{}
	counter int
	err     error
}

// NewBuilder creates a new statement builder
func NewBuilder() *Builder {
	return &Builder{
		byKey:  make(map[string]*matchClause),
		params: make(map[string]interface{}),
	}
}

// SetOptional sets whether generated traversals default to OPTIONAL MATCH
func (b *Builder) SetOptional(optional bool) *Builder {
	b.optional = optional
	return b
}

// Optional reports whether generated traversals default to OPTIONAL MATCH
func (b *Builder) Optional() bool {
	return b.optional
}

// Distinct makes the RETURN clause distinct
func (b *Builder) Distinct() *Builder {
	b.distinct = true
	return b
}

// IsDistinct reports whether the RETURN clause is distinct
func (b *Builder) IsDistinct() bool {
	return b.distinct
}

// SetSkip sets the number of rows to skip
func (b *Builder) SetSkip(n int) *Builder {
	b.skip = &n
	return b
}

// SetLimit sets the maximum number of rows
func (b *Builder) SetLimit(n int) *Builder {
	b.limit = &n
	return b
}

// Err returns the first error recorded while building
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Bind stores value as a fresh parameter and returns its placeholder
func (b *Builder) Bind(value interface{}) string {
	name := fmt.Sprintf("p%d", b.counter)
	b.counter++
	b.params[name] = value
	return "$" + name
}

// Match appends a node or traversal pattern. A pattern identical to an
// earlier one collapses into it; a required occurrence wins over an optional
// one.
func (b *Builder) Match(m MatchSpec) *Builder {
	if err := validateMatch(m); err != nil {
		b.fail(err)
		return b
	}

	optional := m.From != "" && b.optional
	if m.Optional != nil {
		optional = *m.Optional
	}

	key := renderPattern(m, func(v interface{}) string { return fmt.Sprintf("%#v", v) })
	if existing, ok := b.byKey[key]; ok {
		if !optional {
			existing.optional = false
		}
		b.last = existing
		return b
	}

	clause := &matchClause{
		key:      key,
		pattern:  renderPattern(m, b.Bind),
		optional: optional,
	}
	b.matches = append(b.matches, clause)
	b.byKey[key] = clause
	b.last = clause
	return b
}

// AddWhere buffers predicates for the next WriteWhere. Predicates must be
// normalized.
func (b *Builder) AddWhere(preds ...Predicate) *Builder {
	b.pending = append(b.pending, preds...)
	return b
}

// WriteWhere renders the buffered predicates, joined with AND, into the WHERE
// of the most recent match
func (b *Builder) WriteWhere() *Builder {
	if len(b.pending) == 0 {
		return b
	}
	if b.last == nil {
		b.fail(fmt.Errorf("where clause has no match to attach to"))
		return b
	}

	for _, p := range b.pending {
		expr, err := b.renderPredicate(p)
		if err != nil {
			b.fail(err)
			break
		}
		if expr == "" {
			continue
		}
		if p.IsGroup() {
			expr = "(" + expr + ")"
		}
		b.last.where = append(b.last.where, expr)
	}
	b.pending = nil
	return b
}

// Filter renders predicates, joined with AND, into a "WITH * WHERE" clause
// placed after every match. Use it for conditions that span aliases bound by
// different matches.
func (b *Builder) Filter(preds ...Predicate) *Builder {
	for _, p := range preds {
		expr, err := b.renderPredicate(p)
		if err != nil {
			b.fail(err)
			return b
		}
		if expr == "" {
			continue
		}
		if p.IsGroup() {
			expr = "(" + expr + ")"
		}
		b.filters = append(b.filters, expr)
	}
	return b
}

func (b *Builder) renderPredicate(p Predicate) (string, error) {
	if p.IsGroup() {
		children, connector := p.And, " AND "
		if p.Or != nil {
			children, connector = p.Or, " OR "
		}

		parts := make([]string, 0, len(children))
		for _, child := range children {
			expr, err := b.renderPredicate(child)
			if err != nil {
				return "", err
			}
			if expr == "" {
				continue
			}
			if child.IsGroup() {
				expr = "(" + expr + ")"
			}
			parts = append(parts, expr)
		}
		return strings.Join(parts, connector), nil
	}

	if p.Attr == "" {
		return "", fmt.Errorf("predicate %q is not normalized: %w", p.Key, ErrEmptyKey)
	}
	if !isValidAttr(p.Attr) {
		return "", fmt.Errorf("invalid attribute reference: %s", p.Attr)
	}
	if p.Operator.String() == "UNKNOWN" {
		return "", fmt.Errorf("unknown operator for %s", p.Attr)
	}
	if p.Operator.Unary() {
		return fmt.Sprintf("%s %s", p.Attr, p.Operator), nil
	}
	return fmt.Sprintf("%s %s %s", p.Attr, p.Operator, b.Bind(p.Value)), nil
}

// AddOrderBy appends an order term. Terms render in call order.
func (b *Builder) AddOrderBy(attr string, dir SortDirection) *Builder {
	if !isValidAttr(attr) {
		b.fail(fmt.Errorf("invalid order attribute: %s", attr))
		return b
	}
	b.orders = append(b.orders, attr+" "+dir.String())
	return b
}

// AddReturn appends projections to the RETURN clause
func (b *Builder) AddReturn(exprs ...string) *Builder {
	for _, e := range exprs {
		if !containsString(b.returns, e) {
			b.returns = append(b.returns, e)
		}
	}
	return b
}

// AddSet appends "target = $param" to the SET clause
func (b *Builder) AddSet(target string, value interface{}) *Builder {
	if !isValidAttr(target) {
		b.fail(fmt.Errorf("invalid set target: %s", target))
		return b
	}
	b.sets = append(b.sets, fmt.Sprintf("%s = %s", target, b.Bind(value)))
	return b
}

// Find renders a read statement returning the projections added so far
func (b *Builder) Find() (Statement, error) {
	if len(b.returns) == 0 {
		return Statement{}, fmt.Errorf("find requires at least one return expression")
	}
	return b.render(nil, "", true)
}

// Count renders a statement returning count(expr) AS count. expr is "*",
// an attribute or alias, optionally prefixed with DISTINCT.
func (b *Builder) Count(expr string) (Statement, error) {
	if expr == "" {
		expr = "*"
	}
	if expr != "*" && !isValidAttr(strings.TrimPrefix(expr, "DISTINCT ")) {
		return Statement{}, fmt.Errorf("invalid count expression: %s", expr)
	}
	return b.renderWith(nil, "", fmt.Sprintf("RETURN count(%s) AS count", expr), false)
}

// Create renders "CREATE (alias:nodeName)" followed by the SET clause
func (b *Builder) Create(alias, nodeName string) (Statement, error) {
	if err := validateIdentifier(alias); err != nil {
		return Statement{}, err
	}
	if err := validateLabels(nodeName, ":"); err != nil {
		return Statement{}, err
	}
	b.AddReturn(alias)
	return b.render([]string{fmt.Sprintf("CREATE (%s:%s)", alias, nodeName)}, "", false)
}

// Update renders the matches followed by the SET clause
func (b *Builder) Update() (Statement, error) {
	if len(b.sets) == 0 {
		return Statement{}, fmt.Errorf("update requires at least one SET expression")
	}
	return b.render(nil, "", false)
}

// Delete renders the matches followed by "[DETACH] DELETE alias". Return
// expressions are dropped since the deleted entities cannot be read back.
func (b *Builder) Delete(alias string, detach bool) (Statement, error) {
	if err := validateIdentifier(alias); err != nil {
		return Statement{}, err
	}
	clause := "DELETE " + alias
	if detach {
		clause = "DETACH " + clause
	}
	return b.renderWith(nil, clause, "", false)
}

// Relate renders a relationship write between two matched aliases. With
// createIfAbsent the relationship is merged; otherwise an existing
// relationship is matched so its properties can be set.
func (b *Builder) Relate(r RelateSpec, createIfAbsent bool) (Statement, error) {
	for _, id := range []string{r.Owner, r.Edge, r.Target} {
		if err := validateIdentifier(id); err != nil {
			return Statement{}, err
		}
	}
	if err := validateLabels(r.Type, "|"); err != nil {
		return Statement{}, err
	}

	var writes []string
	if createIfAbsent {
		writes = append(writes, "MERGE "+renderPattern(MatchSpec{
			Alias:     r.Target,
			From:      r.Owner,
			Edge:      r.Edge,
			EdgeType:  r.Type,
			Direction: r.Direction,
		}, b.Bind))
	} else {
		b.Match(MatchSpec{
			Alias:     r.Target,
			From:      r.Owner,
			Edge:      r.Edge,
			EdgeType:  r.Type,
			Direction: r.Direction,
			Optional:  boolPtr(false),
		})
	}
	b.AddReturn(r.Owner, r.Edge, r.Target)
	return b.render(writes, "", false)
}

func (b *Builder) render(writes []string, deleteClause string, read bool) (Statement, error) {
	ret := ""
	if len(b.returns) > 0 {
		ret = "RETURN "
		if b.distinct {
			ret += "DISTINCT "
		}
		ret += strings.Join(b.returns, ", ")
	}
	return b.renderWith(writes, deleteClause, ret, read)
}

func (b *Builder) renderWith(writes []string, deleteClause, ret string, paging bool) (Statement, error) {
	if len(b.pending) > 0 {
		b.WriteWhere()
	}
	if b.err != nil {
		return Statement{}, b.err
	}

	var parts []string
	for _, optional := range []bool{false, true} {
		for _, m := range b.matches {
			if m.optional != optional {
				continue
			}
			clause := "MATCH " + m.pattern
			if optional {
				clause = "OPTIONAL " + clause
			}
			if len(m.where) > 0 {
				clause += " WHERE " + strings.Join(m.where, " AND ")
			}
			parts = append(parts, clause)
		}
	}

	if len(b.filters) > 0 {
		parts = append(parts, "WITH * WHERE "+strings.Join(b.filters, " AND "))
	}

	parts = append(parts, writes...)
	if len(b.sets) > 0 {
		parts = append(parts, "SET "+strings.Join(b.sets, ", "))
	}
	if deleteClause != "" {
		parts = append(parts, deleteClause)
	}
	if ret != "" {
		parts = append(parts, ret)
	}
	if paging {
		if len(b.orders) > 0 {
			parts = append(parts, "ORDER BY "+strings.Join(b.orders, ", "))
		}
		if b.skip != nil {
			parts = append(parts, fmt.Sprintf("SKIP %d", *b.skip))
		}
		if b.limit != nil {
			parts = append(parts, fmt.Sprintf("LIMIT %d", *b.limit))
		}
	}

	params := make(map[string]interface{}, len(b.params))
	for k, v := range b.params {
		params[k] = v
	}
	return Statement{Text: strings.Join(parts, " "), Params: params}, nil
}

// Run dispatches stmt through runner exactly once
func Run(ctx context.Context, runner Runner, stmt Statement) ([]Row, error) {
	return runner.Run(ctx, stmt.Text, stmt.Params)
}

func renderPattern(m MatchSpec, bind func(interface{}) string) string {
	node := "(" + m.Alias
	if m.Labels != "" {
		node += ":" + m.Labels
	}
	node += renderProps(m.Props, bind) + ")"

	if m.From == "" {
		return node
	}

	edge := "[" + m.Edge
	if m.EdgeType != "" {
		edge += ":" + m.EdgeType
	}
	edge += renderProps(m.EdgeProps, bind) + "]"

	switch m.Direction {
	case schema.Incoming:
		return fmt.Sprintf("(%s)<-%s-%s", m.From, edge, node)
	case schema.Both:
		return fmt.Sprintf("(%s)-%s-%s", m.From, edge, node)
	default:
		return fmt.Sprintf("(%s)-%s->%s", m.From, edge, node)
	}
}

func renderProps(props map[string]interface{}, bind func(interface{}) string) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, bind(props[k])))
	}
	return " {" + strings.Join(parts, ", ") + "}"
}

func validateMatch(m MatchSpec) error {
	if err := validateIdentifier(m.Alias); err != nil {
		return err
	}
	if m.Labels != "" {
		if err := validateLabels(m.Labels, ":"); err != nil {
			return err
		}
	}
	for k := range m.Props {
		if err := validateIdentifier(k); err != nil {
			return err
		}
	}
	if m.From == "" {
		return nil
	}
	if err := validateIdentifier(m.From); err != nil {
		return err
	}
	if m.Edge != "" {
		if err := validateIdentifier(m.Edge); err != nil {
			return err
		}
	}
	if m.EdgeType != "" {
		if err := validateLabels(m.EdgeType, "|"); err != nil {
			return err
		}
	}
	for k := range m.EdgeProps {
		if err := validateIdentifier(k); err != nil {
			return err
		}
	}
	return nil
}

// validateIdentifier checks that an alias, label or property name only
// contains letters, digits and underscores
func validateIdentifier(identifier string) error {
	if !isValidIdentifier(identifier) {
		return fmt.Errorf("invalid identifier: %q", identifier)
	}
	return nil
}

func validateLabels(labels, sep string) error {
	for _, l := range strings.Split(labels, sep) {
		if err := validateIdentifier(l); err != nil {
			return err
		}
	}
	return nil
}

func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, char := range s {
		if !(char == '_' ||
			(char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char > 127) {
			return false
		}
	}
	return true
}

var (
	dottedAttr   = regexp.MustCompile(`^[\p{L}\w]+(\.[\p{L}\w]+)*$`)
	functionAttr = regexp.MustCompile(`^\w+\([\p{L}\w.\s,'"]*\)$`)
)

func isValidAttr(attr string) bool {
	return dottedAttr.MatchString(attr) || functionAttr.MatchString(attr)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func boolPtr(v bool) *bool {
	return &v
}
