package catalog

import (
	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/workspace"
)

// LaunchReader scans debug launch configurations.
type LaunchReader interface {
	// Exists reports whether the root has a launch file.
	Exists(root workspace.Root) bool

	// File returns the launch file path for the root.
	File(root workspace.Root) string

	// Scan returns that file's tasks, sorted by name. Never fails.
	Scan(root workspace.Root) []Task
}

// ScriptsReader scans package-manifest scripts.
type ScriptsReader interface {
	// Manifests returns the root's manifest files, root manifest first,
	// nested manifests in alphabetical order.
	Manifests(root workspace.Root) []string

	// Scan returns one task per script key of the manifest, sorted.
	Scan(root workspace.Root, manifest string) []Task
}

// MakeReader scans build-file targets.
type MakeReader interface {
	// File returns the root's build file, if one exists.
	File(root workspace.Root) (string, bool)

	// Scan returns the build file's targets in file order.
	Scan(root workspace.Root) []Task
}

// IDERunReader scans third-party IDE run configurations.
type IDERunReader interface {
	// Scan returns the root's valid run-configuration tasks, sorted.
	Scan(root workspace.Root) []Task
}

// Sources bundles the four dialect readers. The set is closed: dispatch
// over it is exhaustive rather than registry-driven.
type Sources struct {
	Launch  LaunchReader
	Scripts ScriptsReader
	Make    MakeReader
	IDERun  IDERunReader
}

// RecencyList supplies the synthetic Recently Used section.
type RecencyList interface {
	// Tasks returns the rehydrated recent tasks, most recent first.
	Tasks() []Task
}

// VisibilityFilter answers hidden checks for tasks and sections.
type VisibilityFilter interface {
	TaskHidden(identity string) bool
	SectionHidden(identity string) bool
}

// recentSectionTitle names the synthetic most-recently-used section.
const recentSectionTitle = "Recently Used"

// Aggregator assembles the two-level section/task tree. Each call scans
// fresh: no tree state survives between calls, so redundant refreshes are
// harmless and two concurrent scans cannot interfere.
type Aggregator struct {
	ws      *workspace.Workspace
	sources Sources
	recency RecencyList
	vis     VisibilityFilter
	log     *zap.Logger
}

// NewAggregator creates an aggregator over the given workspace and
// collaborators.
func NewAggregator(ws *workspace.Workspace, sources Sources, recency RecencyList, vis VisibilityFilter, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		ws:      ws,
		sources: sources,
		recency: recency,
		vis:     vis,
		log:     logger.Named("aggregator"),
	}
}

// MultiRoot reports whether more than one root is open, which switches
// section labels to include the root name.
func (a *Aggregator) MultiRoot() bool {
	return len(a.ws.Roots()) > 1
}

// ListSections returns the current sections: the synthetic Recently Used
// section first, then per-root sections in alphabetical root order, with
// hidden sections filtered out.
//
// Per root the order is: debug configurations (when the launch file
// exists), one scripts section per manifest, IDE run configurations (only
// when at least one file yields a valid task), then make targets (when a
// build file exists).
func (a *Aggregator) ListSections() []Section {
	sections := []Section{{Title: recentSectionTitle, Dialect: DialectRecent}}

	for _, root := range a.ws.Roots() {
		var candidates []Section

		if a.sources.Launch.Exists(root) {
			candidates = append(candidates, Section{
				Title:   "Debug configurations",
				Dialect: DialectDebug,
				Root:    root,
			})
		}

		for _, manifest := range a.sources.Scripts.Manifests(root) {
			title := "Scripts"
			if dir := shortDir(root, manifest); dir != "" {
				title = "Scripts — " + dir
			}
			candidates = append(candidates, Section{
				Title:    title,
				Dialect:  DialectScript,
				Root:     root,
				Manifest: manifest,
			})
		}

		// Existence of the configuration directory is not enough: a
		// directory with zero valid configurations yields no section.
		if len(a.sources.IDERun.Scan(root)) > 0 {
			candidates = append(candidates, Section{
				Title:   "Run configurations",
				Dialect: DialectIDERun,
				Root:    root,
			})
		}

		if buildFile, ok := a.sources.Make.File(root); ok {
			candidates = append(candidates, Section{
				Title:    "Make targets",
				Dialect:  DialectMakeTarget,
				Root:     root,
				Manifest: buildFile,
			})
		}

		for _, sec := range candidates {
			if a.vis.SectionHidden(sec.Identity()) {
				continue
			}
			sections = append(sections, sec)
		}
	}

	return sections
}

// ListTasks returns the section's tasks with hidden tasks filtered out and
// tasks whose execution spec never resolved dropped. The Recently Used
// section is served from the recency store without rescanning or filtering.
func (a *Aggregator) ListTasks(section Section) []Task {
	if section.Dialect == DialectRecent {
		return a.recency.Tasks()
	}

	var out []Task
	for _, t := range a.scan(section) {
		if !t.IsError() && !t.Exec.Resolved() {
			a.log.Debug("dropping unresolved task",
				zap.String("name", t.Name), zap.String("dialect", string(t.Dialect)))
			continue
		}
		if a.vis.TaskHidden(t.Identity()) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// HiddenCount returns how many of the section's tasks are currently
// hidden, for the section's "N hidden" annotation.
func (a *Aggregator) HiddenCount(section Section) int {
	if section.Dialect == DialectRecent {
		return 0
	}
	count := 0
	for _, t := range a.scan(section) {
		if a.vis.TaskHidden(t.Identity()) {
			count++
		}
	}
	return count
}

// scan dispatches to the section's dialect reader. The debug section
// carries both plain and compound configurations, which the launch reader
// returns together.
func (a *Aggregator) scan(section Section) []Task {
	switch section.Dialect {
	case DialectDebug, DialectCompound:
		return a.sources.Launch.Scan(section.Root)
	case DialectScript:
		return a.sources.Scripts.Scan(section.Root, section.Manifest)
	case DialectMakeTarget:
		return a.sources.Make.Scan(section.Root)
	case DialectIDERun:
		return a.sources.IDERun.Scan(section.Root)
	default:
		return nil
	}
}
