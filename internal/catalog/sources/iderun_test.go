package sources

import (
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
)

func TestIDERunSource_GoApplication(t *testing.T) {
	root := testRoot(t)
	writeFile(t, filepath.Join(root.Path, ".idea", "runConfigurations", "server.xml"), `
<component name="ProjectRunConfigurationManager">
  <configuration default="false" name="server" type="GoApplicationRunConfiguration" factoryName="Go Application">
    <module name="demo" />
    <working_directory value="$PROJECT_DIR$" />
    <kind value="PACKAGE" />
    <package value="./cmd/server" />
    <envs>
      <env name="PORT" value="8080" />
    </envs>
    <method v="2" />
  </configuration>
</component>`)

	s := NewIDERunSource(zap.NewNop())
	tasks := s.Scan(root)

	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	task := tasks[0]
	if task.Name != "server" {
		t.Errorf("name = %q, want server", task.Name)
	}
	if task.Dialect != catalog.DialectIDERun {
		t.Errorf("dialect = %s", task.Dialect)
	}
	if !strings.Contains(task.Exec.Shell.Command, "./cmd/server") {
		t.Errorf("command %q does not target ./cmd/server", task.Exec.Shell.Command)
	}
	if task.Exec.Shell.Dir != root.Path {
		t.Errorf("working dir = %q, want the substituted project root %q",
			task.Exec.Shell.Dir, root.Path)
	}
	if task.Exec.Shell.Env["PORT"] != "8080" {
		t.Errorf("env = %v, want PORT=8080", task.Exec.Shell.Env)
	}
}

func TestIDERunSource_ShellScriptInline(t *testing.T) {
	root := testRoot(t)
	writeFile(t, filepath.Join(root.Path, ".run", "lint.run.xml"), `
<component name="ProjectRunConfigurationManager">
  <configuration default="false" name="lint" type="ShConfigurationType">
    <option name="SCRIPT_TEXT" value="golangci-lint run ./..." />
    <option name="SCRIPT_WORKING_DIRECTORY" value="$PROJECT_DIR$" />
    <option name="EXECUTE_SCRIPT_FILE" value="false" />
    <option name="EXECUTE_IN_TERMINAL" value="true" />
  </configuration>
</component>`)

	s := NewIDERunSource(zap.NewNop())
	tasks := s.Scan(root)

	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if got, want := tasks[0].Exec.Shell.Command, "golangci-lint run ./..."; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
	if tasks[0].Exec.Shell.Dir != root.Path {
		t.Errorf("dir = %q, want substituted root", tasks[0].Exec.Shell.Dir)
	}
}

func TestIDERunSource_ShellScriptFile(t *testing.T) {
	root := testRoot(t)
	writeFile(t, filepath.Join(root.Path, ".run", "deploy.run.xml"), `
<component name="ProjectRunConfigurationManager">
  <configuration default="false" name="deploy" type="ShConfigurationType">
    <option name="SCRIPT_PATH" value="$PROJECT_DIR$/scripts/deploy.sh" />
    <option name="SCRIPT_OPTIONS" value="--env staging" />
    <option name="INTERPRETER_PATH" value="/bin/bash" />
    <option name="EXECUTE_SCRIPT_FILE" value="true" />
  </configuration>
</component>`)

	s := NewIDERunSource(zap.NewNop())
	tasks := s.Scan(root)

	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	want := "/bin/bash " + root.Path + "/scripts/deploy.sh --env staging"
	if got := tasks[0].Exec.Shell.Command; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestIDERunSource_LegacyNestedValue(t *testing.T) {
	root := testRoot(t)
	// Older schema: bare configuration root, option values as nested
	// value elements.
	writeFile(t, filepath.Join(root.Path, ".idea", "runConfigurations", "old.xml"), `
<configuration name="old-build" type="ShConfigurationType">
  <option name="SCRIPT_TEXT">
    <value>make all</value>
  </option>
  <option name="SCRIPT_WORKING_DIRECTORY">
    <value>$PROJECT_DIR$/sub</value>
  </option>
</configuration>`)

	s := NewIDERunSource(zap.NewNop())
	tasks := s.Scan(root)

	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if got, want := tasks[0].Exec.Shell.Command, "make all"; got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
	if got, want := tasks[0].Exec.Shell.Dir, root.Path+"/sub"; got != want {
		t.Errorf("dir = %q, want %q", got, want)
	}
}

func TestIDERunSource_UnknownTypeDropped(t *testing.T) {
	root := testRoot(t)
	writeFile(t, filepath.Join(root.Path, ".idea", "runConfigurations", "db.xml"), `
<component name="ProjectRunConfigurationManager">
  <configuration default="false" name="db console" type="DatabaseConsole">
    <working_directory value="$PROJECT_DIR$" />
  </configuration>
</component>`)

	s := NewIDERunSource(zap.NewNop())
	if tasks := s.Scan(root); len(tasks) != 0 {
		t.Errorf("got %d tasks for an unrunnable type, want 0", len(tasks))
	}
}

func TestIDERunSource_SkipsBadFilesKeepsGood(t *testing.T) {
	root := testRoot(t)
	writeFile(t, filepath.Join(root.Path, ".idea", "runConfigurations", "bad.xml"),
		"<component><configuration") // not XML
	writeFile(t, filepath.Join(root.Path, ".idea", "runConfigurations", "anon.xml"),
		`<component><configuration><option name="SCRIPT_TEXT" value="true"/></configuration></component>`)
	writeFile(t, filepath.Join(root.Path, ".idea", "runConfigurations", "good.xml"), `
<component name="ProjectRunConfigurationManager">
  <configuration name="ok" type="ShConfigurationType">
    <option name="SCRIPT_TEXT" value="echo ok" />
  </configuration>
</component>`)

	s := NewIDERunSource(zap.NewNop())
	tasks := s.Scan(root)

	if len(tasks) != 1 || tasks[0].Name != "ok" {
		t.Errorf("got %v, want only the valid configuration", tasks)
	}
}

func TestIDERunSource_DefaultTemplateSkipped(t *testing.T) {
	root := testRoot(t)
	writeFile(t, filepath.Join(root.Path, ".run", "tmpl.run.xml"), `
<component>
  <configuration default="true" name="template" type="ShConfigurationType">
    <option name="SCRIPT_TEXT" value="echo template" />
  </configuration>
</component>`)

	s := NewIDERunSource(zap.NewNop())
	if tasks := s.Scan(root); len(tasks) != 0 {
		t.Errorf("got %d tasks from a default template, want 0", len(tasks))
	}
}

func TestIDERunSource_SortedByName(t *testing.T) {
	root := testRoot(t)
	writeFile(t, filepath.Join(root.Path, ".run", "b.run.xml"), `
<component><configuration name="zeta" type="ShConfigurationType">
  <option name="SCRIPT_TEXT" value="true"/>
</configuration></component>`)
	writeFile(t, filepath.Join(root.Path, ".run", "a.run.xml"), `
<component><configuration name="alpha" type="ShConfigurationType">
  <option name="SCRIPT_TEXT" value="true"/>
</configuration></component>`)

	s := NewIDERunSource(zap.NewNop())
	tasks := s.Scan(root)
	if len(tasks) != 2 || tasks[0].Name != "alpha" || tasks[1].Name != "zeta" {
		t.Errorf("tasks not sorted by name: %v", tasks)
	}
}
