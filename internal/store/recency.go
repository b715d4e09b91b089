package store

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/notify"
	"github.com/dshills/taskdeck/internal/workspace"
)

// recencyKey is the storage key owned by the Recency store.
const recencyKey = "taskdeck.recent"

// DefaultRecencyCap bounds the most-recently-used list.
const DefaultRecencyCap = 10

// RecentEntry is a denormalized snapshot of an executed task: everything
// needed to re-execute it even before the next scan re-discovers it.
type RecentEntry struct {
	Name       string            `json:"name"`
	Dialect    string            `json:"dialect"`
	RootName   string            `json:"rootName"`
	RootPath   string            `json:"rootPath"`
	SourceFile string            `json:"sourceFile,omitempty"`
	Detail     string            `json:"detail,omitempty"`
	ConfigName string            `json:"configName,omitempty"`
	Compound   []string          `json:"compound,omitempty"`
	Command    string            `json:"command,omitempty"`
	Dir        string            `json:"dir,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
}

// Recency is the bounded most-recently-used list of executed tasks.
// Entries are ordered most-recent-first and deduplicated by (name,
// dialect). Rehydration at construction drops entries whose root folder is
// no longer open; the dropped entries stay in storage until the next
// mutation rewrites the list.
type Recency struct {
	mu       sync.Mutex
	kv       KV
	notifier *notify.Notifier
	cap      int
	entries  []RecentEntry
	log      *zap.Logger
}

// NewRecency creates the store and rehydrates it against the open roots.
func NewRecency(kv KV, ws *workspace.Workspace, notifier *notify.Notifier, capacity int, logger *zap.Logger) *Recency {
	if capacity <= 0 {
		capacity = DefaultRecencyCap
	}
	r := &Recency{
		kv:       kv,
		notifier: notifier,
		cap:      capacity,
		log:      logger.Named("recency"),
	}
	r.rehydrate(ws)
	return r
}

// rehydrate loads the persisted list, keeping only entries whose recorded
// root matches a currently open root by both name and path.
func (r *Recency) rehydrate(ws *workspace.Workspace) {
	raw, ok := r.kv.Get(recencyKey)
	if !ok {
		return
	}

	var persisted []RecentEntry
	if err := json.Unmarshal(raw, &persisted); err != nil {
		r.log.Warn("discarding unreadable recent list", zap.Error(err))
		return
	}

	for _, e := range persisted {
		if _, open := ws.Find(e.RootName, e.RootPath); !open {
			r.log.Debug("dropping recent entry for closed root",
				zap.String("name", e.Name), zap.String("root", e.RootName))
			continue
		}
		r.entries = append(r.entries, e)
	}
	if len(r.entries) > r.cap {
		r.entries = r.entries[:r.cap]
	}
}

// Record moves the task to the front of the list, inserting it if absent
// and evicting from the tail past capacity. Persists and notifies.
func (r *Recency) Record(t catalog.Task) {
	entry := entryFromTask(t)

	r.mu.Lock()
	r.entries = removeEntry(r.entries, entry.Name, entry.Dialect)
	r.entries = append([]RecentEntry{entry}, r.entries...)
	if len(r.entries) > r.cap {
		r.entries = r.entries[:r.cap]
	}
	r.persistLocked()
	r.mu.Unlock()

	r.notifier.Notify(notify.Change{Reason: notify.ReasonRecency})
}

// Remove deletes the task's entry if present. Persists and notifies only
// when something changed.
func (r *Recency) Remove(t catalog.Task) {
	r.mu.Lock()
	before := len(r.entries)
	r.entries = removeEntry(r.entries, t.Name, string(t.Dialect))
	changed := len(r.entries) != before
	if changed {
		r.persistLocked()
	}
	r.mu.Unlock()

	if changed {
		r.notifier.Notify(notify.Change{Reason: notify.ReasonRecency})
	}
}

// List returns the entries most-recent-first.
func (r *Recency) List() []RecentEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RecentEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Tasks returns the entries reconstructed as tasks, most-recent-first.
// Implements the aggregator's RecencyList.
func (r *Recency) Tasks() []catalog.Task {
	entries := r.List()
	out := make([]catalog.Task, 0, len(entries))
	for _, e := range entries {
		out = append(out, taskFromEntry(e))
	}
	return out
}

func (r *Recency) persistLocked() {
	data, err := json.Marshal(r.entries)
	if err != nil {
		r.log.Error("encode recent list", zap.Error(err))
		return
	}
	if err := r.kv.Set(recencyKey, data); err != nil {
		r.log.Error("persist recent list", zap.Error(err))
	}
}

func removeEntry(entries []RecentEntry, name, dialect string) []RecentEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.Name == name && e.Dialect == dialect {
			continue
		}
		out = append(out, e)
	}
	return out
}

// entryFromTask denormalizes a task into a self-contained snapshot.
func entryFromTask(t catalog.Task) RecentEntry {
	e := RecentEntry{
		Name:       t.Name,
		Dialect:    string(t.Dialect),
		RootName:   t.Root.Name,
		RootPath:   t.Root.Path,
		SourceFile: t.SourceFile,
		Detail:     t.Detail,
	}
	switch t.Exec.Kind {
	case catalog.ExecDebug:
		e.ConfigName = t.Exec.Debug.ConfigName
		e.Compound = append([]string(nil), t.Exec.Debug.Compound...)
	case catalog.ExecShell:
		e.Command = t.Exec.Shell.Command
		e.Dir = t.Exec.Shell.Dir
		if len(t.Exec.Shell.Env) > 0 {
			e.Env = make(map[string]string, len(t.Exec.Shell.Env))
			for k, v := range t.Exec.Shell.Env {
				e.Env[k] = v
			}
		}
	}
	return e
}

// taskFromEntry reconstructs a runnable task from a snapshot.
func taskFromEntry(e RecentEntry) catalog.Task {
	t := catalog.Task{
		Name:       e.Name,
		Dialect:    catalog.Dialect(e.Dialect),
		SourceFile: e.SourceFile,
		Detail:     e.Detail,
		Root:       workspace.Root{Name: e.RootName, Path: e.RootPath},
	}
	if e.ConfigName != "" {
		t.Exec = catalog.ExecSpec{
			Kind: catalog.ExecDebug,
			Debug: &catalog.DebugSpec{
				ConfigName: e.ConfigName,
				Compound:   append([]string(nil), e.Compound...),
			},
		}
	} else if e.Command != "" {
		t.Exec = catalog.ExecSpec{
			Kind: catalog.ExecShell,
			Shell: &catalog.ShellSpec{
				Command: e.Command,
				Dir:     e.Dir,
				Env:     e.Env,
			},
		}
	}
	return t
}
