package sources

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/catalog/pkgmgr"
	"github.com/dshills/taskdeck/internal/workspace"
)

// manifestName is the package manifest file name.
const manifestName = "package.json"

// maxManifestDepth bounds the nested-manifest descent below each root.
const maxManifestDepth = 2

// defaultExcludeDirs are directory names never descended into when looking
// for nested manifests.
var defaultExcludeDirs = []string{
	"node_modules",
	".git",
	"vendor",
	"dist",
	"build",
	".cache",
}

// ScriptsSource reads package-manifest script maps.
type ScriptsSource struct {
	log      *zap.Logger
	maxDepth int
	exclude  map[string]bool
	forced   pkgmgr.Manager
}

// NewScriptsSource creates a package.json script reader.
func NewScriptsSource(logger *zap.Logger) *ScriptsSource {
	s := &ScriptsSource{
		log:      logger.Named("scripts"),
		maxDepth: maxManifestDepth,
		exclude:  make(map[string]bool),
	}
	for _, d := range defaultExcludeDirs {
		s.exclude[d] = true
	}
	return s
}

// ForceManager bypasses resolution with a fixed package manager, for
// hosts configured to always use one tool.
func (s *ScriptsSource) ForceManager(m pkgmgr.Manager) {
	s.forced = m
}

// SetMaxDepth overrides the nested-manifest descent depth.
func (s *ScriptsSource) SetMaxDepth(depth int) {
	if depth > 0 {
		s.maxDepth = depth
	}
}

// AddExcludeDirs adds directory names to skip during the nested walk.
func (s *ScriptsSource) AddExcludeDirs(names ...string) {
	for _, n := range names {
		s.exclude[n] = true
	}
}

// Manifests returns the manifest files under a root: the root manifest
// first when present, then nested manifests in alphabetical path order.
// Dependency-cache directories are never descended into.
func (s *ScriptsSource) Manifests(root workspace.Root) []string {
	var manifests []string

	rootManifest := filepath.Join(root.Path, manifestName)
	if fileExists(rootManifest) {
		manifests = append(manifests, rootManifest)
	}

	var nested []string
	s.walk(root.Path, 0, &nested)
	sort.Strings(nested)

	return append(manifests, nested...)
}

// walk descends up to maxDepth levels collecting nested manifests.
// The root's own manifest is handled by the caller.
func (s *ScriptsSource) walk(dir string, depth int, out *[]string) {
	if depth >= s.maxDepth {
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.log.Debug("read dir", zap.String("dir", dir), zap.Error(err))
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if s.exclude[name] {
			continue
		}
		sub := filepath.Join(dir, name)
		if candidate := filepath.Join(sub, manifestName); fileExists(candidate) {
			*out = append(*out, candidate)
		}
		s.walk(sub, depth+1, out)
	}
}

// Scan returns one task per script key of the given manifest, sorted by
// key. The package manager is resolved per manifest, inheriting the root
// manifest's resolution for nested manifests.
func (s *ScriptsSource) Scan(root workspace.Root, manifest string) []catalog.Task {
	data, err := os.ReadFile(manifest)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("read manifest", zap.String("path", manifest), zap.Error(err))
		}
		return nil
	}
	if !gjson.ValidBytes(data) {
		s.log.Warn("malformed manifest", zap.String("path", manifest))
		return nil
	}

	manager := s.resolveManager(root, manifest)
	dir := filepath.Dir(manifest)

	var tasks []catalog.Task
	gjson.GetBytes(data, "scripts").ForEach(func(key, body gjson.Result) bool {
		name, ok := cleanScriptName(key.String())
		if !ok {
			return true
		}
		tasks = append(tasks, catalog.Task{
			Name:       name,
			Dialect:    catalog.DialectScript,
			SourceFile: manifest,
			Pos:        keySpan(data, key),
			Root:       root,
			Detail:     previewScript(body.String()),
			Exec: catalog.ExecSpec{
				Kind: catalog.ExecShell,
				Shell: &catalog.ShellSpec{
					Command: string(manager) + " run " + name,
					Dir:     dir,
				},
			},
		})
		return true
	})

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks
}

// resolveManager resolves the manifest's package manager, feeding the root
// manifest's own resolution to nested manifests as the inherited choice.
func (s *ScriptsSource) resolveManager(root workspace.Root, manifest string) pkgmgr.Manager {
	if s.forced != pkgmgr.None {
		return s.forced
	}

	rootManifest := filepath.Join(root.Path, manifestName)
	if filepath.Clean(manifest) == filepath.Clean(rootManifest) {
		return pkgmgr.Resolve(manifest, root.Path, pkgmgr.None)
	}

	inherited := pkgmgr.None
	if fileExists(rootManifest) {
		inherited = pkgmgr.Resolve(rootManifest, root.Path, pkgmgr.None)
	}
	return pkgmgr.Resolve(manifest, root.Path, inherited)
}

// keySpan converts a gjson key result into a source position, when the
// parser reported a byte offset for it.
func keySpan(data []byte, key gjson.Result) *catalog.SourcePosition {
	if key.Index <= 0 || key.Index >= len(data) {
		return nil
	}
	line := 1
	for i := 0; i < key.Index; i++ {
		if data[i] == '\n' {
			line++
		}
	}
	return &catalog.SourcePosition{
		Start: key.Index,
		End:   key.Index + len(key.Raw),
		Line:  line,
	}
}

func cleanScriptName(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	return name, true
}

// previewScript truncates a script body for display.
func previewScript(body string) string {
	const max = 80
	if len(body) > max {
		return body[:max-3] + "..."
	}
	return body
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
