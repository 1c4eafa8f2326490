package query

import (
	"context"
	"errors"
	"testing"

	"github.com/conduit-lang/graphorm/internal/orm/schema"
)

func TestBuilder_BooleanGroups(t *testing.T) {
	b := NewBuilder().Match(MatchSpec{Alias: "u", Labels: "User"})
	b.AddWhere(Or(
		Predicate{Scope: "u", Attr: "u.email", Value: "x"},
		And(Predicate{Scope: "u", Attr: "u.active", Value: true}),
	)).WriteWhere()
	b.AddReturn("u")

	stmt, err := b.Find()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "MATCH (u:User) WHERE (u.email = $p0 OR (u.active = $p1)) RETURN u"
	if stmt.Text != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, stmt.Text)
	}
	if stmt.Params["p0"] != "x" || stmt.Params["p1"] != true {
		t.Errorf("unexpected params %v", stmt.Params)
	}
}

func TestBuilder_NestedGroupsAndTopLevelAnd(t *testing.T) {
	b := NewBuilder().Match(MatchSpec{Alias: "u", Labels: "User"})
	b.AddWhere(Predicate{Attr: "u.age", Operator: OpGreaterThan, Value: 18})
	b.AddWhere(And(
		Or(Predicate{Attr: "u.role", Value: "admin"}, Predicate{Attr: "u.role", Value: "owner"}),
		Predicate{Attr: "u.deleted", Operator: OpIsNull},
	))
	b.WriteWhere().AddReturn("u")

	stmt, err := b.Find()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "MATCH (u:User) WHERE u.age > $p0 AND ((u.role = $p1 OR u.role = $p2) AND u.deleted IS NULL) RETURN u"
	if stmt.Text != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, stmt.Text)
	}
	if len(stmt.Params) != 3 {
		t.Errorf("expected 3 params, got %v", stmt.Params)
	}
	if stmt.Params["p0"] != 18 {
		t.Errorf("expected value type to be preserved, got %#v", stmt.Params["p0"])
	}
}

func TestBuilder_TraversalAndPaging(t *testing.T) {
	b := NewBuilder().
		Match(MatchSpec{Alias: "user", Labels: "User"}).
		Match(MatchSpec{
			Alias:     "role",
			Labels:    "Role",
			From:      "user",
			Edge:      "user_role",
			EdgeType:  "HAS_ROLE",
			EdgeProps: map[string]interface{}{"active": true},
			Optional:  boolPtr(true),
		})
	b.AddWhere(Predicate{Attr: "role.name", Value: "admin"}).WriteWhere()
	b.AddReturn("user", "user_role", "role")
	b.AddOrderBy("user.name", Descending).AddOrderBy("toLower(role.name)", Ascending)
	b.Distinct().SetSkip(5).SetLimit(10)

	stmt, err := b.Find()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := "MATCH (user:User) " +
		"OPTIONAL MATCH (user)-[user_role:HAS_ROLE {active: $p0}]->(role:Role) WHERE role.name = $p1 " +
		"RETURN DISTINCT user, user_role, role " +
		"ORDER BY user.name DESC, toLower(role.name) ASC SKIP 5 LIMIT 10"
	if stmt.Text != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, stmt.Text)
	}
}

func TestBuilder_Directions(t *testing.T) {
	tests := []struct {
		dir      schema.Direction
		expected string
	}{
		{schema.Outgoing, "MATCH (a:A) MATCH (a)-[a_b:REL]->(b:B) RETURN a"},
		{schema.Incoming, "MATCH (a:A) MATCH (a)<-[a_b:REL]-(b:B) RETURN a"},
		{schema.Both, "MATCH (a:A) MATCH (a)-[a_b:REL]-(b:B) RETURN a"},
	}

	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			b := NewBuilder().
				Match(MatchSpec{Alias: "a", Labels: "A"}).
				Match(MatchSpec{Alias: "b", Labels: "B", From: "a", Edge: "a_b", EdgeType: "REL", Direction: tt.dir}).
				AddReturn("a")
			stmt, err := b.Find()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stmt.Text != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, stmt.Text)
			}
		})
	}
}

func TestBuilder_RequiredMatchesRenderFirst(t *testing.T) {
	b := NewBuilder().
		Match(MatchSpec{Alias: "user", Labels: "User"}).
		Match(MatchSpec{Alias: "posts", Labels: "Post", From: "user", Edge: "user_posts", EdgeType: "WROTE", Optional: boolPtr(true)}).
		Match(MatchSpec{Alias: "role", Labels: "Role", From: "user", Edge: "user_role", EdgeType: "HAS_ROLE"}).
		AddReturn("user")

	stmt, err := b.Find()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "MATCH (user:User) MATCH (user)-[user_role:HAS_ROLE]->(role:Role) " +
		"OPTIONAL MATCH (user)-[user_posts:WROTE]->(posts:Post) RETURN user"
	if stmt.Text != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, stmt.Text)
	}
}

func TestBuilder_IdenticalMatchesCollapse(t *testing.T) {
	spec := MatchSpec{Alias: "role", Labels: "Role", From: "user", Edge: "user_role", EdgeType: "HAS_ROLE", Optional: boolPtr(true)}

	b := NewBuilder().Match(MatchSpec{Alias: "user", Labels: "User"})
	b.Match(spec)
	spec.Optional = boolPtr(false)
	b.Match(spec)
	b.AddReturn("user")

	stmt, err := b.Find()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "MATCH (user:User) MATCH (user)-[user_role:HAS_ROLE]->(role:Role) RETURN user"
	if stmt.Text != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, stmt.Text)
	}
}

func TestBuilder_OptionalDefault(t *testing.T) {
	traversal := MatchSpec{Alias: "role", Labels: "Role", From: "user", Edge: "user_role", EdgeType: "HAS_ROLE"}

	tests := []struct {
		name     string
		optional bool
		spec     MatchSpec
		expected string
	}{
		{
			name:     "default optional",
			optional: true,
			spec:     traversal,
			expected: "MATCH (user:User) OPTIONAL MATCH (user)-[user_role:HAS_ROLE]->(role:Role) RETURN user",
		},
		{
			name:     "default required",
			spec:     traversal,
			expected: "MATCH (user:User) MATCH (user)-[user_role:HAS_ROLE]->(role:Role) RETURN user",
		},
		{
			name:     "explicit flag wins",
			optional: true,
			spec:     MatchSpec{Alias: "role", Labels: "Role", From: "user", Edge: "user_role", EdgeType: "HAS_ROLE", Optional: boolPtr(false)},
			expected: "MATCH (user:User) MATCH (user)-[user_role:HAS_ROLE]->(role:Role) RETURN user",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder().SetOptional(tt.optional).
				Match(MatchSpec{Alias: "user", Labels: "User"}).
				Match(tt.spec).
				AddReturn("user")
			stmt, err := b.Find()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stmt.Text != tt.expected {
				t.Errorf("expected:\n%s\ngot:\n%s", tt.expected, stmt.Text)
			}
		})
	}
}

func TestBuilder_FilterAfterMatches(t *testing.T) {
	b := NewBuilder().SetOptional(true).
		Match(MatchSpec{Alias: "user", Labels: "User"}).
		Match(MatchSpec{Alias: "role", Labels: "Role", From: "user", Edge: "user_role", EdgeType: "HAS_ROLE"})
	b.Filter(Or(
		Predicate{Scope: "user", Attr: "user.email", Value: "x"},
		Predicate{Scope: "role", Attr: "role.key", Value: "admin"},
	))
	b.AddReturn("user", "role")

	stmt, err := b.Find()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "MATCH (user:User) OPTIONAL MATCH (user)-[user_role:HAS_ROLE]->(role:Role) " +
		"WITH * WHERE (user.email = $p0 OR role.key = $p1) RETURN user, role"
	if stmt.Text != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, stmt.Text)
	}
	if stmt.Params["p1"] != "admin" {
		t.Errorf("unexpected params %v", stmt.Params)
	}
}

func TestBuilder_Count(t *testing.T) {
	b := NewBuilder().Match(MatchSpec{Alias: "user", Labels: "User"}).SetLimit(3)
	b.AddWhere(Predicate{Attr: "user.active", Value: true})

	stmt, err := b.Count("DISTINCT user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "MATCH (user:User) WHERE user.active = $p0 RETURN count(DISTINCT user) AS count"
	if stmt.Text != expected {
		t.Errorf("expected %s, got %s", expected, stmt.Text)
	}
}

func TestBuilder_Create(t *testing.T) {
	b := NewBuilder().AddSet("user.name", "Ann").AddSet("user.age", int64(30))

	stmt, err := b.Create("user", "User")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "CREATE (user:User) SET user.name = $p0, user.age = $p1 RETURN user"
	if stmt.Text != expected {
		t.Errorf("expected %s, got %s", expected, stmt.Text)
	}
	if !stmt.IsWrite() {
		t.Error("create should be a write")
	}
}

func TestBuilder_UpdateAndDelete(t *testing.T) {
	b := NewBuilder().Match(MatchSpec{Alias: "user", Labels: "User"})
	b.AddWhere(Predicate{Attr: "id(user)", Value: int64(7)}).WriteWhere()
	b.AddSet("user.name", "Bob").AddReturn("user")

	stmt, err := b.Update()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "MATCH (user:User) WHERE id(user) = $p0 SET user.name = $p1 RETURN user"
	if stmt.Text != expected {
		t.Errorf("expected %s, got %s", expected, stmt.Text)
	}

	if _, err := NewBuilder().Update(); err == nil {
		t.Error("expected error for update without SET")
	}

	d := NewBuilder().Match(MatchSpec{Alias: "user", Labels: "User"})
	d.AddWhere(Predicate{Attr: "id(user)", Value: int64(7)}).WriteWhere().AddReturn("user")
	stmt, err = d.Delete("user", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stmt.Text != "MATCH (user:User) WHERE id(user) = $p0 DETACH DELETE user" {
		t.Errorf("unexpected delete %s", stmt.Text)
	}
}

func relateBuilder() *Builder {
	b := NewBuilder()
	b.Match(MatchSpec{Alias: "user", Labels: "User"})
	b.AddWhere(Predicate{Attr: "id(user)", Value: int64(1)}).WriteWhere()
	b.Match(MatchSpec{Alias: "role", Labels: "Role"})
	b.AddWhere(Predicate{Attr: "id(role)", Value: int64(2)}).WriteWhere()
	b.AddSet("user_role.since", 2020)
	return b
}

func TestBuilder_Relate(t *testing.T) {
	spec := RelateSpec{Owner: "user", Edge: "user_role", Target: "role", Type: "HAS_ROLE"}

	stmt, err := relateBuilder().Relate(spec, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := "MATCH (user:User) WHERE id(user) = $p0 MATCH (role:Role) WHERE id(role) = $p1 " +
		"MERGE (user)-[user_role:HAS_ROLE]->(role) SET user_role.since = $p2 RETURN user, user_role, role"
	if stmt.Text != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, stmt.Text)
	}

	stmt, err = relateBuilder().Relate(spec, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected = "MATCH (user:User) WHERE id(user) = $p0 MATCH (role:Role) WHERE id(role) = $p1 " +
		"MATCH (user)-[user_role:HAS_ROLE]->(role) SET user_role.since = $p2 RETURN user, user_role, role"
	if stmt.Text != expected {
		t.Errorf("expected:\n%s\ngot:\n%s", expected, stmt.Text)
	}
}

func TestBuilder_Errors(t *testing.T) {
	t.Run("invalid alias", func(t *testing.T) {
		b := NewBuilder().Match(MatchSpec{Alias: "u) DETACH DELETE (x", Labels: "User"}).AddReturn("u")
		if _, err := b.Find(); err == nil {
			t.Error("expected error for invalid alias")
		}
	})

	t.Run("invalid label", func(t *testing.T) {
		b := NewBuilder().Match(MatchSpec{Alias: "u", Labels: "User`"}).AddReturn("u")
		if _, err := b.Find(); err == nil {
			t.Error("expected error for invalid label")
		}
	})

	t.Run("unnormalized predicate", func(t *testing.T) {
		b := NewBuilder().Match(MatchSpec{Alias: "u", Labels: "User"}).AddReturn("u")
		b.AddWhere(Eq("email", "x")).WriteWhere()
		if _, err := b.Find(); !errors.Is(err, ErrEmptyKey) {
			t.Errorf("expected ErrEmptyKey, got %v", err)
		}
	})

	t.Run("where without match", func(t *testing.T) {
		b := NewBuilder().AddWhere(Predicate{Attr: "u.x", Value: 1}).WriteWhere().AddReturn("u")
		if _, err := b.Find(); err == nil {
			t.Error("expected error for where without match")
		}
	})

	t.Run("invalid order", func(t *testing.T) {
		b := NewBuilder().Match(MatchSpec{Alias: "u", Labels: "User"}).AddReturn("u")
		b.AddOrderBy("u.name; DROP", Ascending)
		if _, err := b.Find(); err == nil {
			t.Error("expected error for invalid order attribute")
		}
	})

	t.Run("find without return", func(t *testing.T) {
		if _, err := NewBuilder().Match(MatchSpec{Alias: "u"}).Find(); err == nil {
			t.Error("expected error for find without return")
		}
	})
}

func TestRunDispatchesOnce(t *testing.T) {
	calls := 0
	runner := RunnerFunc(func(ctx context.Context, statement string, params map[string]interface{}) ([]Row, error) {
		calls++
		if statement != "MATCH (u:User) RETURN u" {
			t.Errorf("unexpected statement %s", statement)
		}
		return []Row{RowOf("u", Node{ID: 1})}, nil
	})

	stmt, _ := NewBuilder().Match(MatchSpec{Alias: "u", Labels: "User"}).AddReturn("u").Find()
	rows, err := Run(context.Background(), runner, stmt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 || len(rows) != 1 {
		t.Errorf("expected one call and one row, got %d calls and %d rows", calls, len(rows))
	}
}

func TestRunPropagatesDriverError(t *testing.T) {
	driverErr := errors.New("connection refused")
	runner := RunnerFunc(func(context.Context, string, map[string]interface{}) ([]Row, error) {
		return nil, driverErr
	})

	_, err := Run(context.Background(), runner, Statement{Text: "RETURN 1"})
	if !errors.Is(err, driverErr) {
		t.Errorf("expected driver error, got %v", err)
	}
}

func TestIsWriteStatement(t *testing.T) {
	tests := []struct {
		text  string
		write bool
	}{
		{"MATCH (u:User) RETURN u", false},
		{"MATCH (u:User) WHERE u.offset = $p0 RETURN u", false},
		{"CREATE (u:User) RETURN u", true},
		{"MATCH (a) MERGE (a)-[:R]->(b)", true},
		{"MATCH (u) SET u.name = $p0", true},
		{"MATCH (u) DETACH DELETE u", true},
	}

	for _, tt := range tests {
		if got := IsWriteStatement(tt.text); got != tt.write {
			t.Errorf("IsWriteStatement(%q) = %v, want %v", tt.text, got, tt.write)
		}
	}
}
