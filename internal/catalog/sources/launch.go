// Package sources provides the dialect readers that turn raw configuration
// files into catalog tasks. Every reader follows the same contract: Scan
// never fails — malformed input becomes an empty result or, for the debug
// dialect only, a distinguished error-task carrying the diagnostic.
package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/workspace"
)

// launchRelPath is the conventional launch-configuration location.
const launchRelPath = ".vscode/launch.json"

// LaunchSource reads debug launch configurations and compounds.
type LaunchSource struct {
	log *zap.Logger
}

// NewLaunchSource creates a launch.json reader.
func NewLaunchSource(logger *zap.Logger) *LaunchSource {
	return &LaunchSource{log: logger.Named("launch")}
}

// File returns the launch file path for a root.
func (s *LaunchSource) File(root workspace.Root) string {
	return filepath.Join(root.Path, ".vscode", "launch.json")
}

// Exists reports whether the root has a launch file.
func (s *LaunchSource) Exists(root workspace.Root) bool {
	info, err := os.Stat(s.File(root))
	return err == nil && !info.IsDir()
}

// Scan reads the root's launch file and returns one task per configuration
// and one per compound, each sorted by name. A file that fails to parse
// yields a single error-task with the diagnostic; a missing file yields nil.
func (s *LaunchSource) Scan(root workspace.Root) []catalog.Task {
	path := s.File(root)

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("read launch file", zap.String("path", path), zap.Error(err))
		}
		return nil
	}

	doc := blankComments(raw)
	if !gjson.ValidBytes(doc) {
		return []catalog.Task{s.errorTask(root, path, "launch.json is not valid JSON")}
	}
	parsed := gjson.ParseBytes(doc)

	var tasks []catalog.Task

	parsed.Get("configurations").ForEach(func(_, entry gjson.Result) bool {
		name, ok := cleanLaunchName(entry)
		if !ok {
			return true
		}
		tasks = append(tasks, catalog.Task{
			Name:       name,
			Dialect:    catalog.DialectDebug,
			SourceFile: path,
			Pos:        findConfigSpan(raw, name),
			Root:       root,
			Detail:     entry.Get("type").String(),
			Exec: catalog.ExecSpec{
				Kind:  catalog.ExecDebug,
				Debug: &catalog.DebugSpec{ConfigName: name},
			},
		})
		return true
	})

	parsed.Get("compounds").ForEach(func(_, entry gjson.Result) bool {
		name, ok := cleanLaunchName(entry)
		if !ok {
			return true
		}
		var members []string
		entry.Get("configurations").ForEach(func(_, m gjson.Result) bool {
			if v := m.String(); v != "" {
				members = append(members, v)
			}
			return true
		})
		tasks = append(tasks, catalog.Task{
			Name:       name,
			Dialect:    catalog.DialectCompound,
			SourceFile: path,
			Pos:        findConfigSpan(raw, name),
			Root:       root,
			Detail:     fmt.Sprintf("%d configurations", len(members)),
			Exec: catalog.ExecSpec{
				Kind:  catalog.ExecDebug,
				Debug: &catalog.DebugSpec{ConfigName: name, Compound: members},
			},
		})
		return true
	})

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks
}

// errorTask builds the distinguished parse-diagnostic task for this dialect.
func (s *LaunchSource) errorTask(root workspace.Root, path, diag string) catalog.Task {
	s.log.Warn("malformed launch file", zap.String("path", path), zap.String("diag", diag))
	return catalog.Task{
		Name:       "launch.json",
		Dialect:    catalog.DialectDebug,
		SourceFile: path,
		Root:       root,
		Err:        diag,
	}
}

func cleanLaunchName(entry gjson.Result) (string, bool) {
	name := entry.Get("name").String()
	if name == "" {
		return "", false
	}
	return name, true
}

// findConfigSpan locates the byte range of the configuration block with the
// given name. It anchors on the block's "name" field and balances brace
// depth outward to the enclosing object. Returns nil when the name cannot
// be found or brace balancing runs off the end of the document.
func findConfigSpan(data []byte, name string) *catalog.SourcePosition {
	// Names may contain regex-special characters; match them literally.
	pat, err := regexp.Compile(`"name"\s*:\s*"` + regexp.QuoteMeta(escapeJSONString(name)) + `"`)
	if err != nil {
		return nil
	}
	loc := pat.FindIndex(data)
	if loc == nil {
		return nil
	}

	// Walk backward to the opening brace of the enclosing block. Any
	// closing brace passed on the way closes a nested sibling object.
	depth := 0
	start := -1
	for i := loc[0]; i >= 0; i-- {
		switch data[i] {
		case '}':
			depth++
		case '{':
			if depth == 0 {
				start = i
			} else {
				depth--
			}
		}
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return nil
	}

	// Walk forward balancing braces to the block's end, skipping strings.
	depth = 0
	end := -1
	inString := false
	for i := start; i < len(data); i++ {
		c := data[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
		if end >= 0 {
			break
		}
	}
	if end < 0 {
		return nil
	}

	line := 1
	for i := 0; i < start; i++ {
		if data[i] == '\n' {
			line++
		}
	}

	return &catalog.SourcePosition{Start: start, End: end, Line: line}
}

// escapeJSONString renders name as it appears inside a JSON string literal,
// covering the escapes that occur in practice in configuration names.
func escapeJSONString(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}
