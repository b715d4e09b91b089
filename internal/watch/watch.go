// Package watch maps filesystem change notifications for the dialect
// files onto refresh requests. Every relevant change, after debouncing,
// publishes a single model-change notification; the renderer then re-pulls
// the tree, so redundant triggers cost one idempotent scan and nothing else.
package watch

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/notify"
	"github.com/dshills/taskdeck/internal/workspace"
)

// ErrWatcherClosed is returned by operations on a closed watcher.
var ErrWatcherClosed = errors.New("watcher is closed")

// DefaultDebounce coalesces bursts of change events.
const DefaultDebounce = 300 * time.Millisecond

// relevantNames are base names that belong to a dialect or influence
// package-manager resolution.
var relevantNames = map[string]bool{
	"launch.json":         true,
	"package.json":        true,
	"Makefile":            true,
	"makefile":            true,
	"GNUmakefile":         true,
	"package-lock.json":   true,
	"yarn.lock":           true,
	"pnpm-lock.yaml":      true,
	"pnpm-workspace.yaml": true,
}

// watchSubdirs are per-root directories holding dialect files.
var watchSubdirs = []string{
	".vscode",
	filepath.Join(".idea", "runConfigurations"),
	".run",
}

// Watcher watches each root's dialect locations and publishes a debounced
// refresh request through the notifier.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	ws       *workspace.Workspace
	scripts  catalog.ScriptsReader
	notifier *notify.Notifier
	debounce time.Duration
	log      *zap.Logger

	timer    *time.Timer
	lastPath string

	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New creates a watcher over the workspace. The scripts reader supplies
// nested manifest directories to watch; a nil reader watches roots only.
func New(ws *workspace.Workspace, scripts catalog.ScriptsReader, notifier *notify.Notifier, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		ws:       ws,
		scripts:  scripts,
		notifier: notifier,
		debounce: debounce,
		log:      logger.Named("watch"),
		closeCh:  make(chan struct{}),
	}

	w.addAll()

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// addAll registers every existing watch location across the roots.
func (w *Watcher) addAll() {
	for _, root := range w.ws.Roots() {
		w.add(root.Path)
		for _, sub := range watchSubdirs {
			w.add(filepath.Join(root.Path, sub))
		}
		if w.scripts != nil {
			for _, manifest := range w.scripts.Manifests(root) {
				w.add(filepath.Dir(manifest))
			}
		}
	}
}

// add watches a directory if it exists. Missing directories are picked up
// later when their creation is seen under an already-watched parent.
func (w *Watcher) add(dir string) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.fsw.Add(dir); err != nil {
		w.log.Debug("watch add", zap.String("dir", dir), zap.Error(err))
	}
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.closeCh)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New dialect directories come into existence after the watcher
	// started; pick them up as soon as their parent reports the create.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.interestingDir(event.Name) {
				w.add(event.Name)
			}
			return
		}
	}

	if !relevant(event.Name) {
		return
	}

	w.log.Debug("dialect file changed",
		zap.String("path", event.Name), zap.String("op", event.Op.String()))
	w.schedule(event.Name)
}

// schedule arms (or re-arms) the debounce timer. All changes within the
// window collapse into one refresh notification.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.lastPath = path

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	path := w.lastPath
	w.mu.Unlock()

	w.notifier.Notify(notify.Change{Reason: notify.ReasonWatch, Path: path})
}

// interestingDir reports whether dir is one of the per-root dialect
// directories or a nested-manifest directory candidate.
func (w *Watcher) interestingDir(dir string) bool {
	for _, root := range w.ws.Roots() {
		for _, sub := range watchSubdirs {
			if dir == filepath.Join(root.Path, sub) {
				return true
			}
		}
		if dir == filepath.Join(root.Path, ".idea") {
			return true
		}
	}
	return false
}

// relevant reports whether a changed path belongs to any dialect.
func relevant(path string) bool {
	base := filepath.Base(path)
	if relevantNames[base] {
		return true
	}
	if !strings.HasSuffix(base, ".xml") {
		return false
	}
	dir := filepath.Base(filepath.Dir(path))
	return dir == "runConfigurations" || dir == ".run"
}
