package execute

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/workspace"
)

func TestBuildShellRequest(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	req, err := b.Build(catalog.Task{
		Name:    "serve",
		Dialect: catalog.DialectScript,
		Exec: catalog.ExecSpec{
			Kind:  catalog.ExecShell,
			Shell: &catalog.ShellSpec{Command: "npm run serve", Dir: "/w/api"},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Kind != KindShell {
		t.Fatalf("kind = %v, want shell", req.Kind)
	}
	if req.Shell.ID == "" {
		t.Error("shell request has no id")
	}
	if req.Shell.CommandLine() != "npm run serve" {
		t.Errorf("command line = %q", req.Shell.CommandLine())
	}
}

func TestBuildShellRequestEnvExports(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	req, err := b.Build(catalog.Task{
		Name: "server",
		Exec: catalog.ExecSpec{
			Kind: catalog.ExecShell,
			Shell: &catalog.ShellSpec{
				Command: "go run ./cmd/server",
				Dir:     "/w",
				Env:     map[string]string{"PORT": "8080", "DEBUG": "1"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	line := req.Shell.CommandLine()
	// Exports precede the command in sorted key order.
	want := `export DEBUG="1"; export PORT="8080"; go run ./cmd/server`
	if line != want {
		t.Errorf("command line = %q, want %q", line, want)
	}
}

func TestBuildDebugRequest(t *testing.T) {
	b := NewBuilder(zap.NewNop())
	root := workspace.Root{Name: "demo", Path: "/w/demo"}

	req, err := b.Build(catalog.Task{
		Name:    "Run API",
		Dialect: catalog.DialectDebug,
		Root:    root,
		Exec: catalog.ExecSpec{
			Kind:  catalog.ExecDebug,
			Debug: &catalog.DebugSpec{ConfigName: "Run API"},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if req.Kind != KindDebug {
		t.Fatalf("kind = %v, want debug", req.Kind)
	}
	if len(req.Debug.ConfigNames) != 1 || req.Debug.ConfigNames[0] != "Run API" {
		t.Errorf("config names = %v", req.Debug.ConfigNames)
	}
	if req.Debug.Root != root {
		t.Errorf("root = %+v", req.Debug.Root)
	}
}

func TestBuildCompoundExpandsMembers(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	req, err := b.Build(catalog.Task{
		Name:    "All",
		Dialect: catalog.DialectCompound,
		Exec: catalog.ExecSpec{
			Kind: catalog.ExecDebug,
			Debug: &catalog.DebugSpec{
				ConfigName: "All",
				Compound:   []string{"API", "Web"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if strings.Join(req.Debug.ConfigNames, ",") != "API,Web" {
		t.Errorf("config names = %v, want the compound members", req.Debug.ConfigNames)
	}
}

func TestBuildUnresolved(t *testing.T) {
	b := NewBuilder(zap.NewNop())

	_, err := b.Build(catalog.Task{Name: "broken"})
	if !errors.Is(err, ErrUnresolved) {
		t.Errorf("error = %v, want ErrUnresolved", err)
	}

	_, err = b.Build(catalog.Task{
		Name: "no dir",
		Exec: catalog.ExecSpec{Kind: catalog.ExecShell, Shell: &catalog.ShellSpec{Command: "x"}},
	})
	if !errors.Is(err, ErrUnresolved) {
		t.Errorf("error = %v, want ErrUnresolved", err)
	}
}
