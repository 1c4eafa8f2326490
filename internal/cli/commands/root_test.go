package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conduit-lang/graphorm/internal/orm/query"
)

const testSchema = `
entities:
  Role:
    attributes:
      key: {type: string, required: true}
  User:
    attributes:
      name: string
      password: hash
    relationships:
      role: {target: Role, labels: [HAS_ROLE]}
      friends:
        target: User
        labels: [FRIENDSHIP]
        many: true
        attributes:
          intimacy: string
`

// writeProject writes a schema and a config file pointing at it and returns
// the config path
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "schema.yaml"), []byte(testSchema), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "graphorm.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: none\n"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

type recordingRunner struct {
	statements []string
	rows       []query.Row
}

func (r *recordingRunner) Run(_ context.Context, statement string, _ map[string]interface{}) ([]query.Row, error) {
	r.statements = append(r.statements, statement)
	return r.rows, nil
}

func execute(t *testing.T, opts *options, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(opts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--config", writeProject(t), "--no-color"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.Use != "graphorm" {
		t.Errorf("expected Use to be 'graphorm', got %s", cmd.Use)
	}

	if cmd.Short == "" || cmd.Long == "" {
		t.Error("expected descriptions to be set")
	}

	for _, expected := range []string{"version", "query", "count", "schema"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected command %s to be registered", expected)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"

	stdout, _, err := execute(t, &options{}, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"graphorm version: 1.0.0-test", "Git commit: abc123", "Go version: "} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestQueryDryRun(t *testing.T) {
	runner := &recordingRunner{}
	stdout, _, err := execute(t, &options{runner: runner},
		"query", "User", "--with", "role", "--filter", "name=Ann", "--order", "name:desc", "--limit", "5", "--dry-run")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "MATCH (user:User) WHERE user.name = $p0 " +
		"OPTIONAL MATCH (user)-[user_role:HAS_ROLE]->(role:Role) " +
		"RETURN user, user_role, role ORDER BY user.name DESC LIMIT 5"
	if !strings.HasPrefix(stdout, want+"\n") {
		t.Errorf("unexpected statement:\n%s\nwant:\n%s", stdout, want)
	}
	if !strings.Contains(stdout, `"p0": "Ann"`) {
		t.Errorf("expected params in output:\n%s", stdout)
	}
	if len(runner.statements) != 0 {
		t.Errorf("dry run reached the store: %v", runner.statements)
	}
}

func TestQueryTable(t *testing.T) {
	runner := &recordingRunner{rows: []query.Row{
		query.RowOf(
			"user", query.Node{ID: 1, Props: map[string]interface{}{"name": "Ann", "password": "$2a$10$hidden"}},
			"user_friends", query.Relationship{Type: "FRIENDSHIP"},
			"friends", query.Node{ID: 8, Props: map[string]interface{}{"name": "Cy"}},
		),
		query.RowOf(
			"user", query.Node{ID: 1, Props: map[string]interface{}{"name": "Ann"}},
			"user_friends", query.Relationship{Type: "FRIENDSHIP"},
			"friends", query.Node{ID: 7, Props: map[string]interface{}{"name": "Bob"}},
		),
	}}

	stdout, _, err := execute(t, &options{runner: runner}, "query", "User", "--with", "friends")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(runner.statements) != 1 {
		t.Fatalf("expected one statement, got %v", runner.statements)
	}
	for _, want := range []string{"id  name  friends", "1   Ann   [7 8]", "1 record"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "password") || strings.Contains(stdout, "hidden") {
		t.Errorf("hash field leaked into output:\n%s", stdout)
	}
}

func TestQueryJSON(t *testing.T) {
	runner := &recordingRunner{rows: []query.Row{
		query.RowOf("user", query.Node{ID: 3, Props: map[string]interface{}{"name": "Ann"}}),
	}}

	stdout, _, err := execute(t, &options{runner: runner}, "query", "User", "--output", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, `"name": "Ann"`) || !strings.Contains(stdout, `"id": 3`) {
		t.Errorf("unexpected json output:\n%s", stdout)
	}

	_, _, err = execute(t, &options{runner: runner}, "query", "User", "--output", "xml")
	if err == nil {
		t.Error("expected error for unknown output format")
	}
}

func TestQueryUnknownEntity(t *testing.T) {
	_, stderr, err := execute(t, &options{runner: &recordingRunner{}}, "query", "Usr")
	if err == nil {
		t.Fatal("expected error for unknown entity")
	}
	if !strings.Contains(stderr, "Did you mean: User?") {
		t.Errorf("expected suggestion, got:\n%s", stderr)
	}
}

func TestQueryInvalidFilter(t *testing.T) {
	_, _, err := execute(t, &options{runner: &recordingRunner{}}, "query", "User", "--filter", "name")
	if err == nil || !strings.Contains(err.Error(), "invalid filter expression") {
		t.Errorf("expected invalid filter error, got %v", err)
	}
}

func TestCountCommand(t *testing.T) {
	runner := &recordingRunner{rows: []query.Row{query.RowOf("count", int64(12))}}

	stdout, _, err := execute(t, &options{runner: runner}, "count", "User", "--filter", "name=Ann")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(stdout) != "12" {
		t.Errorf("expected 12, got %q", stdout)
	}
	want := "MATCH (user:User) WHERE user.name = $p0 RETURN count(DISTINCT user) AS count"
	if len(runner.statements) != 1 || runner.statements[0] != want {
		t.Errorf("unexpected statements %v", runner.statements)
	}
}

func TestSchemaCommand(t *testing.T) {
	stdout, _, err := execute(t, &options{}, "schema")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		"Role (role:Role)",
		"key: string (required)",
		"referenced by: User",
		"User (user:User)",
		"role -[HAS_ROLE]-> Role",
		"friends -[FRIENDSHIP]-> User (many) [edge.intimacy]",
		"Relationship cycles",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
}
