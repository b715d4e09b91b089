package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/catalog/pkgmgr"
	"github.com/dshills/taskdeck/internal/catalog/sources"
	"github.com/dshills/taskdeck/internal/config"
	"github.com/dshills/taskdeck/internal/execute"
	"github.com/dshills/taskdeck/internal/notify"
	"github.com/dshills/taskdeck/internal/store"
	"github.com/dshills/taskdeck/internal/watch"
	"github.com/dshills/taskdeck/internal/workspace"
)

// engine bundles the wired collaborators for one command invocation.
type engine struct {
	ws         *workspace.Workspace
	aggregator *catalog.Aggregator
	recency    *store.Recency
	visibility *store.Visibility
	notifier   *notify.Notifier
	builder    *execute.Builder
	scripts    *sources.ScriptsSource
	settings   config.Settings
}

// newEngine builds the engine from global flags and the settings file.
func newEngine() (*engine, error) {
	paths := flagRoots
	if len(paths) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determine working directory: %w", err)
		}
		paths = []string{wd}
	}

	ws, err := workspace.Open(paths...)
	if err != nil {
		return nil, err
	}

	settings, err := loadSettings(ws)
	if err != nil {
		return nil, err
	}

	statePath := settings.StatePath
	if flagState != "" {
		statePath = flagState
	}
	if statePath == "" {
		statePath = config.DefaultStatePath()
	}

	notifier := notify.New()
	kv := store.NewFileKV(statePath)
	recency := store.NewRecency(kv, ws, notifier, settings.RecencyCap, logger)
	visibility := store.NewVisibility(kv, notifier, logger)

	scripts := sources.NewScriptsSource(logger)
	scripts.SetMaxDepth(settings.ScanDepth)
	scripts.AddExcludeDirs(settings.ExcludeDirs...)
	if m := pkgmgr.Manager(settings.PackageManager); m == pkgmgr.Npm || m == pkgmgr.Yarn || m == pkgmgr.Pnpm {
		scripts.ForceManager(m)
	}

	srcs := catalog.Sources{
		Launch:  sources.NewLaunchSource(logger),
		Scripts: scripts,
		Make:    sources.NewMakefileSource(logger),
		IDERun:  sources.NewIDERunSource(logger),
	}

	return &engine{
		ws:         ws,
		aggregator: catalog.NewAggregator(ws, srcs, recency, visibility, logger),
		recency:    recency,
		visibility: visibility,
		notifier:   notifier,
		builder:    execute.NewBuilder(logger),
		scripts:    scripts,
		settings:   settings,
	}, nil
}

// loadSettings reads the settings file from --config or the first root.
func loadSettings(ws *workspace.Workspace) (config.Settings, error) {
	path := flagConfig
	if path == "" {
		roots := ws.Roots()
		if len(roots) == 0 {
			return config.Settings{}, nil
		}
		path = filepath.Join(roots[0].Path, config.DefaultFileName)
	}
	return config.Load(path)
}

// debounce returns the configured watch debounce interval.
func (e *engine) debounce() time.Duration {
	if e.settings.DebounceMS > 0 {
		return time.Duration(e.settings.DebounceMS) * time.Millisecond
	}
	return watch.DefaultDebounce
}

// findSection locates a visible section by its title or label.
func (e *engine) findSection(name string) (catalog.Section, error) {
	multi := e.aggregator.MultiRoot()
	for _, sec := range e.aggregator.ListSections() {
		if sec.Title == name || sec.Label(multi) == name {
			return sec, nil
		}
	}
	return catalog.Section{}, fmt.Errorf("no section named %q", name)
}

// findTask locates a task by name inside a section.
func (e *engine) findTask(sec catalog.Section, name string) (catalog.Task, error) {
	for _, t := range e.aggregator.ListTasks(sec) {
		if t.Name == name {
			return t, nil
		}
	}
	return catalog.Task{}, fmt.Errorf("no task named %q in %q", name, sec.Title)
}
