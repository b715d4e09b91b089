package store

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/notify"
)

// Storage keys owned by the Visibility store.
const (
	hiddenTasksKey    = "taskdeck.hiddenTasks"
	hiddenSectionsKey = "taskdeck.hiddenSections"
)

// HiddenEntry is one hidden task or section: the identity used for
// filtering plus denormalized display metadata for the restore dialog.
type HiddenEntry struct {
	Identity string `json:"identity"`
	Title    string `json:"title"`
	Detail   string `json:"detail,omitempty"`
}

// Visibility is the persisted user exclusion set. Hiding is a pure filter
// consulted by the aggregator; nothing is ever deleted from scan results.
// Entries never expire — only an explicit restore removes one.
type Visibility struct {
	mu       sync.Mutex
	kv       KV
	notifier *notify.Notifier
	tasks    []HiddenEntry
	sections []HiddenEntry
	log      *zap.Logger
}

// NewVisibility creates the store and loads both persisted sets.
func NewVisibility(kv KV, notifier *notify.Notifier, logger *zap.Logger) *Visibility {
	v := &Visibility{
		kv:       kv,
		notifier: notifier,
		log:      logger.Named("visibility"),
	}
	v.tasks = v.load(hiddenTasksKey)
	v.sections = v.load(hiddenSectionsKey)
	return v
}

func (v *Visibility) load(key string) []HiddenEntry {
	raw, ok := v.kv.Get(key)
	if !ok {
		return nil
	}
	var entries []HiddenEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		v.log.Warn("discarding unreadable hidden list", zap.String("key", key), zap.Error(err))
		return nil
	}
	return entries
}

// HideTask hides a task by its identity.
func (v *Visibility) HideTask(t catalog.Task) {
	v.hide(&v.tasks, hiddenTasksKey, HiddenEntry{
		Identity: t.Identity(),
		Title:    t.Name,
		Detail:   t.Detail,
	})
}

// HideSection hides a whole section by its computed identity.
func (v *Visibility) HideSection(s catalog.Section) {
	v.hide(&v.sections, hiddenSectionsKey, HiddenEntry{
		Identity: s.Identity(),
		Title:    s.Title,
		Detail:   s.Root.Name,
	})
}

// RestoreTask removes a hidden-task entry by identity.
func (v *Visibility) RestoreTask(identity string) {
	v.restore(&v.tasks, hiddenTasksKey, identity)
}

// RestoreSection removes a hidden-section entry by identity.
func (v *Visibility) RestoreSection(identity string) {
	v.restore(&v.sections, hiddenSectionsKey, identity)
}

// TaskHidden reports whether the identity is in the hidden-task set.
func (v *Visibility) TaskHidden(identity string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return contains(v.tasks, identity)
}

// SectionHidden reports whether the identity is in the hidden-section set.
func (v *Visibility) SectionHidden(identity string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return contains(v.sections, identity)
}

// HiddenTasks lists the hidden-task entries for the restore dialog.
func (v *Visibility) HiddenTasks() []HiddenEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]HiddenEntry, len(v.tasks))
	copy(out, v.tasks)
	return out
}

// HiddenSections lists the hidden-section entries for the restore dialog.
func (v *Visibility) HiddenSections() []HiddenEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]HiddenEntry, len(v.sections))
	copy(out, v.sections)
	return out
}

// ClearAll empties both sets, persists, and notifies once.
func (v *Visibility) ClearAll() {
	v.mu.Lock()
	changed := len(v.tasks) > 0 || len(v.sections) > 0
	v.tasks = nil
	v.sections = nil
	if changed {
		v.persistLocked(hiddenTasksKey, v.tasks)
		v.persistLocked(hiddenSectionsKey, v.sections)
	}
	v.mu.Unlock()

	if changed {
		v.notifier.Notify(notify.Change{Reason: notify.ReasonVisibility})
	}
}

func (v *Visibility) hide(set *[]HiddenEntry, key string, entry HiddenEntry) {
	v.mu.Lock()
	changed := !contains(*set, entry.Identity)
	if changed {
		*set = append(*set, entry)
		v.persistLocked(key, *set)
	}
	v.mu.Unlock()

	if changed {
		v.notifier.Notify(notify.Change{Reason: notify.ReasonVisibility})
	}
}

func (v *Visibility) restore(set *[]HiddenEntry, key string, identity string) {
	v.mu.Lock()
	before := len(*set)
	filtered := (*set)[:0]
	for _, e := range *set {
		if e.Identity != identity {
			filtered = append(filtered, e)
		}
	}
	*set = filtered
	changed := len(*set) != before
	if changed {
		v.persistLocked(key, *set)
	}
	v.mu.Unlock()

	if changed {
		v.notifier.Notify(notify.Change{Reason: notify.ReasonVisibility})
	}
}

func (v *Visibility) persistLocked(key string, entries []HiddenEntry) {
	if entries == nil {
		entries = []HiddenEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		v.log.Error("encode hidden list", zap.String("key", key), zap.Error(err))
		return
	}
	if err := v.kv.Set(key, data); err != nil {
		v.log.Error("persist hidden list", zap.String("key", key), zap.Error(err))
	}
}

func contains(entries []HiddenEntry, identity string) bool {
	for _, e := range entries {
		if e.Identity == identity {
			return true
		}
	}
	return false
}
