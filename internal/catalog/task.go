// Package catalog defines the dialect-neutral task model and the aggregator
// that assembles discovered tasks into a two-level section/task tree.
package catalog

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/taskdeck/internal/workspace"
)

// Dialect identifies the configuration convention a task was discovered from.
type Dialect string

const (
	// DialectDebug is a debug launch configuration (launch.json entry).
	DialectDebug Dialect = "debug"
	// DialectCompound is a compound debug configuration referencing others.
	DialectCompound Dialect = "compound"
	// DialectScript is a package-manifest script.
	DialectScript Dialect = "script"
	// DialectMakeTarget is a build-file target.
	DialectMakeTarget Dialect = "make-target"
	// DialectIDERun is a third-party IDE run configuration.
	DialectIDERun Dialect = "ide-run"
)

// identitySep joins identity fields. NUL cannot appear in names or paths
// surfaced by any dialect, so joined identities are collision-free.
const identitySep = "\x00"

// ExecKind discriminates the ExecSpec union.
type ExecKind int

const (
	// ExecNone marks an unresolved spec; tasks carrying it are dropped.
	ExecNone ExecKind = iota
	// ExecDebug requests a debug session for a named configuration.
	ExecDebug
	// ExecShell requests a shell command in a working directory.
	ExecShell
)

// DebugSpec describes a debug-session launch.
type DebugSpec struct {
	// ConfigName is the configuration to start.
	ConfigName string

	// Compound lists member configuration names for compound entries.
	// Empty for plain configurations.
	Compound []string
}

// ShellSpec describes a shell-command launch.
type ShellSpec struct {
	// Command is the full command line to run.
	Command string

	// Dir is the working directory.
	Dir string

	// Env holds extra environment variables, exported before the command.
	Env map[string]string
}

// ExecSpec is a closed tagged union: exactly one member matches Kind.
type ExecSpec struct {
	Kind  ExecKind
	Debug *DebugSpec
	Shell *ShellSpec
}

// Resolved reports whether the spec names something runnable.
func (e ExecSpec) Resolved() bool {
	switch e.Kind {
	case ExecDebug:
		return e.Debug != nil && e.Debug.ConfigName != ""
	case ExecShell:
		return e.Shell != nil && e.Shell.Command != "" && e.Shell.Dir != ""
	default:
		return false
	}
}

// SourcePosition is a byte span in a source file for jump-to-edit.
type SourcePosition struct {
	// Start and End are byte offsets into the file.
	Start int
	End   int

	// Line is the 1-based line of Start.
	Line int
}

// Task is the normalized unit of "something the user can run".
type Task struct {
	// Name is the display identifier, unique within its section.
	Name string

	// Dialect identifies the source convention.
	Dialect Dialect

	// SourceFile is the absolute path of the defining file.
	SourceFile string

	// Pos is the span of the defining block, when the dialect resolves one.
	Pos *SourcePosition

	// Exec describes what to run.
	Exec ExecSpec

	// Root is the project root the task was discovered under.
	Root workspace.Root

	// Detail is a short human-readable preview (script body, recipe, doc).
	Detail string

	// Err carries a parse diagnostic for error-tasks. Only the debug
	// dialect surfaces these; every other dialect drops malformed items.
	Err string
}

// Identity returns the stable identity used for hiding and recency matching.
func (t Task) Identity() string {
	return t.Name + identitySep + string(t.Dialect)
}

// IsError reports whether the task is a parse-diagnostic placeholder.
func (t Task) IsError() bool {
	return t.Err != ""
}

// Section is a named grouping of tasks sharing a dialect, root, and
// (for script and make-target sections) a manifest or build file.
type Section struct {
	// Title is the display title.
	Title string

	// Dialect is the section's task dialect. The synthetic Recently Used
	// section uses DialectRecent.
	Dialect Dialect

	// Root is the project root the section belongs to.
	Root workspace.Root

	// Manifest is the absolute path of the manifest or build file that
	// defines the section, when applicable. Disambiguates nested manifests.
	Manifest string
}

// DialectRecent marks the synthetic most-recently-used section.
const DialectRecent Dialect = "recent"

// Identity returns the deterministic section identity. It depends only on
// the dialect, the root's display name, and the manifest path relative to
// the root, so two scans of an unchanged project agree.
func (s Section) Identity() string {
	rel := ""
	if s.Manifest != "" {
		if r, err := filepath.Rel(s.Root.Path, s.Manifest); err == nil {
			rel = filepath.ToSlash(r)
		} else {
			rel = filepath.ToSlash(s.Manifest)
		}
	}
	return string(s.Dialect) + identitySep + s.Root.Name + identitySep + rel
}

// Label returns the title annotated with the root name when the workspace
// has more than one root, matching the host tree's disambiguation rule.
func (s Section) Label(multiRoot bool) string {
	if multiRoot && s.Dialect != DialectRecent {
		return fmt.Sprintf("%s (%s)", s.Title, s.Root.Name)
	}
	return s.Title
}

// shortDir renders a manifest's directory relative to its root for titles
// of nested script sections ("scripts — packages/api").
func shortDir(root workspace.Root, manifest string) string {
	rel, err := filepath.Rel(root.Path, filepath.Dir(manifest))
	if err != nil || rel == "." {
		return ""
	}
	return filepath.ToSlash(rel)
}

// cleanName trims whitespace from a discovered name and reports whether
// anything remains. Sources drop nameless entries.
func cleanName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	return name, name != ""
}
