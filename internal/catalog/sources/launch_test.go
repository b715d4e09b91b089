package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/workspace"
)

func testRoot(t *testing.T) workspace.Root {
	t.Helper()
	dir := t.TempDir()
	return workspace.Root{Name: filepath.Base(dir), Path: dir}
}

func writeLaunch(t *testing.T, root workspace.Root, content string) {
	t.Helper()
	dir := filepath.Join(root.Path, ".vscode")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "launch.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write launch.json: %v", err)
	}
}

func TestLaunchSource_Scan(t *testing.T) {
	root := testRoot(t)
	writeLaunch(t, root, `{
  "version": "0.2.0",
  // the usual suspects
  "configurations": [
    {"name": "Run B", "type": "node", "request": "launch"},
    {"name": "Run A", "type": "node", "request": "launch"},
  ]
}`)

	s := NewLaunchSource(zap.NewNop())
	tasks := s.Scan(root)

	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Name != "Run A" || tasks[1].Name != "Run B" {
		t.Errorf("tasks not sorted by name: %q, %q", tasks[0].Name, tasks[1].Name)
	}
	for _, task := range tasks {
		if task.Dialect != catalog.DialectDebug {
			t.Errorf("%s: dialect = %s, want %s", task.Name, task.Dialect, catalog.DialectDebug)
		}
		if !task.Exec.Resolved() {
			t.Errorf("%s: exec spec not resolved", task.Name)
		}
		if task.Exec.Debug.ConfigName != task.Name {
			t.Errorf("%s: config name = %q", task.Name, task.Exec.Debug.ConfigName)
		}
	}
}

func TestLaunchSource_PositionContainsName(t *testing.T) {
	root := testRoot(t)
	content := `{
  "configurations": [
    {
      "name": "Server (debug)",
      "type": "go",
      "program": "${workspaceFolder}/cmd/server"
    }
  ]
}`
	writeLaunch(t, root, content)

	s := NewLaunchSource(zap.NewNop())
	tasks := s.Scan(root)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}

	pos := tasks[0].Pos
	if pos == nil {
		t.Fatal("position not resolved")
	}
	span := content[pos.Start:pos.End]
	if !strings.Contains(span, "Server (debug)") {
		t.Errorf("span %q does not contain the configuration name", span)
	}
	if !strings.HasPrefix(span, "{") || !strings.HasSuffix(span, "}") {
		t.Errorf("span is not a balanced block: %q", span)
	}
}

func TestLaunchSource_Compounds(t *testing.T) {
	root := testRoot(t)
	writeLaunch(t, root, `{
  "configurations": [
    {"name": "API", "type": "go"},
    {"name": "Web", "type": "node"}
  ],
  "compounds": [
    {"name": "All", "configurations": ["API", "Web"]}
  ]
}`)

	s := NewLaunchSource(zap.NewNop())
	tasks := s.Scan(root)
	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}

	// "All" sorts first.
	compound := tasks[0]
	if compound.Dialect != catalog.DialectCompound {
		t.Fatalf("dialect = %s, want %s", compound.Dialect, catalog.DialectCompound)
	}
	members := compound.Exec.Debug.Compound
	if len(members) != 2 || members[0] != "API" || members[1] != "Web" {
		t.Errorf("compound members = %v", members)
	}
}

func TestLaunchSource_MalformedYieldsErrorTask(t *testing.T) {
	root := testRoot(t)
	writeLaunch(t, root, `{"configurations": [`)

	s := NewLaunchSource(zap.NewNop())
	tasks := s.Scan(root)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1 error task", len(tasks))
	}
	if !tasks[0].IsError() {
		t.Error("expected an error task")
	}
	if tasks[0].Name == "" {
		t.Error("error task must have a name")
	}
}

func TestLaunchSource_MissingFile(t *testing.T) {
	root := testRoot(t)
	s := NewLaunchSource(zap.NewNop())

	if s.Exists(root) {
		t.Error("Exists() = true for a root without a launch file")
	}
	if tasks := s.Scan(root); tasks != nil {
		t.Errorf("got %d tasks, want none", len(tasks))
	}
}

func TestLaunchSource_NamelessEntriesDropped(t *testing.T) {
	root := testRoot(t)
	writeLaunch(t, root, `{"configurations": [{"type": "node"}, {"name": "Ok", "type": "node"}]}`)

	s := NewLaunchSource(zap.NewNop())
	tasks := s.Scan(root)
	if len(tasks) != 1 || tasks[0].Name != "Ok" {
		t.Errorf("got %v, want only the named entry", tasks)
	}
}

func TestFindConfigSpanRegexSpecialName(t *testing.T) {
	doc := []byte(`{"configurations": [{"name": "Run (all) [x+y]", "type": "node"}]}`)
	pos := findConfigSpan(doc, "Run (all) [x+y]")
	if pos == nil {
		t.Fatal("span not found for a name with regex metacharacters")
	}
	span := string(doc[pos.Start:pos.End])
	if !strings.Contains(span, "Run (all) [x+y]") {
		t.Errorf("span %q missing the name", span)
	}
}

func TestFindConfigSpanUnbalanced(t *testing.T) {
	doc := []byte(`{"configurations": [{"name": "Broken", "type": "node"`)
	if pos := findConfigSpan(doc, "Broken"); pos != nil {
		t.Errorf("got span %+v for an unbalanced document, want nil", pos)
	}
}

func TestFindConfigSpanMissingName(t *testing.T) {
	doc := []byte(`{"configurations": []}`)
	if pos := findConfigSpan(doc, "Absent"); pos != nil {
		t.Errorf("got span %+v for an absent name, want nil", pos)
	}
}
