// Package pkgmgr decides which package-manager binary runs a manifest's
// scripts. Resolution is a pure priority chain over the manifest's own
// declarations and nearby lock files; it has no state and no side effects.
package pkgmgr

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Manager is one of the supported package-manager tools.
type Manager string

const (
	// Npm is the default tool.
	Npm Manager = "npm"
	// Yarn is the yarn tool.
	Yarn Manager = "yarn"
	// Pnpm is the pnpm tool.
	Pnpm Manager = "pnpm"
	// None means no choice; used for the inherited parameter.
	None Manager = ""
)

// lockFiles maps lock-file names to the tool that writes them, in the
// order they are checked.
var lockFiles = []struct {
	file    string
	manager Manager
}{
	{"pnpm-lock.yaml", Pnpm},
	{"yarn.lock", Yarn},
	{"package-lock.json", Npm},
}

// Resolve returns the tool that should execute scripts of the given
// manifest. rootDir is the workspace root the manifest lives under;
// inherited is the root manifest's resolution, passed down to nested
// manifests so a monorepo runs every package with one tool.
//
// Priority, each step short-circuiting: inherited choice (non-root
// manifests only), the manifest's own packageManager declaration, exclusive
// tool syntax in the manifest's script bodies, a lock file beside the
// manifest, a lock file at the workspace root, then npm.
func Resolve(manifestPath, rootDir string, inherited Manager) Manager {
	manifestDir := filepath.Dir(manifestPath)
	isRoot := sameDir(manifestDir, rootDir)

	if !isRoot && inherited != None {
		return inherited
	}

	data, err := os.ReadFile(manifestPath)
	if err == nil {
		if m := declaredManager(data); m != None {
			return m
		}
		if m := scriptSyntaxManager(data); m != None {
			return m
		}
	}

	if m := lockFileManager(manifestDir); m != None {
		return m
	}
	if !isRoot {
		if m := lockFileManager(rootDir); m != None {
			return m
		}
	}

	return Npm
}

// declaredManager reads the manifest's packageManager field ("pnpm@8.6.0").
func declaredManager(manifest []byte) Manager {
	decl := gjson.GetBytes(manifest, "packageManager").String()
	if decl == "" {
		return None
	}
	name, _, _ := strings.Cut(decl, "@")
	return known(name)
}

// scriptSyntaxManager scans script bodies for exclusive usage of one tool's
// invocation syntax. Mixed or absent usage resolves nothing.
func scriptSyntaxManager(manifest []byte) Manager {
	var uses []Manager
	seen := map[Manager]bool{}

	gjson.GetBytes(manifest, "scripts").ForEach(func(_, body gjson.Result) bool {
		script := body.String()
		for _, probe := range []struct {
			needle  string
			manager Manager
		}{
			{"yarn ", Yarn},
			{"pnpm ", Pnpm},
			{"npm run ", Npm},
		} {
			if strings.Contains(script, probe.needle) && !seen[probe.manager] {
				seen[probe.manager] = true
				uses = append(uses, probe.manager)
			}
		}
		return true
	})

	if len(uses) == 1 {
		return uses[0]
	}
	return None
}

// lockFileManager checks a directory for tool-specific lock files.
// A pnpm-workspace.yaml that declares packages counts as a pnpm marker.
func lockFileManager(dir string) Manager {
	for _, lf := range lockFiles {
		if fileExists(filepath.Join(dir, lf.file)) {
			return lf.manager
		}
	}
	if declaresPnpmWorkspace(filepath.Join(dir, "pnpm-workspace.yaml")) {
		return Pnpm
	}
	return None
}

// declaresPnpmWorkspace reports whether the file is a pnpm workspace
// manifest with a packages list.
func declaresPnpmWorkspace(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var ws struct {
		Packages []string `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return false
	}
	return len(ws.Packages) > 0
}

func known(name string) Manager {
	switch Manager(name) {
	case Npm, Yarn, Pnpm:
		return Manager(name)
	default:
		return None
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sameDir(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
