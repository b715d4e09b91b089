package sources

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/catalog/pkgmgr"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestScriptsSource_Scan(t *testing.T) {
	root := testRoot(t)
	writeFile(t, filepath.Join(root.Path, "package.json"), `{
  "name": "demo",
  "scripts": {
    "test": "jest",
    "build": "tsc -p ."
  }
}`)

	s := NewScriptsSource(zap.NewNop())
	tasks := s.Scan(root, filepath.Join(root.Path, "package.json"))

	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	if tasks[0].Name != "build" || tasks[1].Name != "test" {
		t.Errorf("tasks not sorted: %q, %q", tasks[0].Name, tasks[1].Name)
	}
	if tasks[0].Dialect != catalog.DialectScript {
		t.Errorf("dialect = %s, want %s", tasks[0].Dialect, catalog.DialectScript)
	}
	if got, want := tasks[0].Exec.Shell.Command, "npm run build"; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
	if tasks[0].Exec.Shell.Dir != root.Path {
		t.Errorf("dir = %q, want %q", tasks[0].Exec.Shell.Dir, root.Path)
	}
	if tasks[0].Detail != "tsc -p ." {
		t.Errorf("detail = %q, want the script body", tasks[0].Detail)
	}
}

func TestScriptsSource_Manifests(t *testing.T) {
	root := testRoot(t)
	writeFile(t, filepath.Join(root.Path, "package.json"), `{"scripts": {"a": "x"}}`)
	writeFile(t, filepath.Join(root.Path, "packages", "api", "package.json"), `{"scripts": {"b": "y"}}`)
	writeFile(t, filepath.Join(root.Path, "packages", "web", "package.json"), `{"scripts": {"c": "z"}}`)
	// Too deep: three levels down.
	writeFile(t, filepath.Join(root.Path, "a", "b", "c", "package.json"), `{}`)
	// Dependency cache is never descended into.
	writeFile(t, filepath.Join(root.Path, "node_modules", "dep", "package.json"), `{}`)

	s := NewScriptsSource(zap.NewNop())
	manifests := s.Manifests(root)

	want := []string{
		filepath.Join(root.Path, "package.json"),
		filepath.Join(root.Path, "packages", "api", "package.json"),
		filepath.Join(root.Path, "packages", "web", "package.json"),
	}
	if len(manifests) != len(want) {
		t.Fatalf("got %d manifests %v, want %d", len(manifests), manifests, len(want))
	}
	for i := range want {
		if manifests[i] != want[i] {
			t.Errorf("manifests[%d] = %q, want %q", i, manifests[i], want[i])
		}
	}
}

func TestScriptsSource_NestedInheritsRootManager(t *testing.T) {
	root := testRoot(t)
	// Root resolves to yarn via its lock file; the nested manifest has no
	// marker of its own and must inherit yarn.
	writeFile(t, filepath.Join(root.Path, "package.json"), `{"scripts": {"root": "x"}}`)
	writeFile(t, filepath.Join(root.Path, "yarn.lock"), "")
	nested := filepath.Join(root.Path, "packages", "api", "package.json")
	writeFile(t, nested, `{"scripts": {"serve": "node server.js"}}`)

	s := NewScriptsSource(zap.NewNop())
	tasks := s.Scan(root, nested)
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if got, want := tasks[0].Exec.Shell.Command, "yarn run serve"; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestScriptsSource_ForceManager(t *testing.T) {
	root := testRoot(t)
	writeFile(t, filepath.Join(root.Path, "package.json"), `{"scripts": {"dev": "vite"}}`)
	writeFile(t, filepath.Join(root.Path, "yarn.lock"), "")

	s := NewScriptsSource(zap.NewNop())
	s.ForceManager(pkgmgr.Pnpm)

	tasks := s.Scan(root, filepath.Join(root.Path, "package.json"))
	if got, want := tasks[0].Exec.Shell.Command, "pnpm run dev"; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestScriptsSource_MalformedManifest(t *testing.T) {
	root := testRoot(t)
	writeFile(t, filepath.Join(root.Path, "package.json"), `{"scripts": `)

	s := NewScriptsSource(zap.NewNop())
	if tasks := s.Scan(root, filepath.Join(root.Path, "package.json")); tasks != nil {
		t.Errorf("got %d tasks from a malformed manifest, want none", len(tasks))
	}
}

func TestScriptsSource_LongScriptTruncated(t *testing.T) {
	root := testRoot(t)
	long := ""
	for i := 0; i < 20; i++ {
		long += "0123456789"
	}
	writeFile(t, filepath.Join(root.Path, "package.json"),
		`{"scripts": {"big": "`+long+`"}}`)

	s := NewScriptsSource(zap.NewNop())
	tasks := s.Scan(root, filepath.Join(root.Path, "package.json"))
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if len(tasks[0].Detail) > 80 {
		t.Errorf("detail not truncated: %d bytes", len(tasks[0].Detail))
	}
}
