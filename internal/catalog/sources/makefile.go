package sources

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/workspace"
)

// makefileNames are the build-file names checked in order.
var makefileNames = []string{"Makefile", "makefile", "GNUmakefile"}

// targetPattern matches a target definition at the start of a line. The
// trailing alternation rejects variable assignments (name := value).
var targetPattern = regexp.MustCompile(`^([A-Za-z0-9_][A-Za-z0-9_.-]*)\s*:(?:[^=]|$)`)

// docCommentPattern matches a "## description" documentation comment.
var docCommentPattern = regexp.MustCompile(`^##\s*(.*)$`)

// MakefileSource reads build-file targets.
type MakefileSource struct {
	log *zap.Logger
}

// NewMakefileSource creates a Makefile target reader.
func NewMakefileSource(logger *zap.Logger) *MakefileSource {
	return &MakefileSource{log: logger.Named("makefile")}
}

// File returns the root's build file, if one exists.
func (s *MakefileSource) File(root workspace.Root) (string, bool) {
	for _, name := range makefileNames {
		path := filepath.Join(root.Path, name)
		if fileExists(path) {
			return path, true
		}
	}
	return "", false
}

// Scan returns one task per top-level target in file order. Each task's
// Detail is the target's recipe preview: the indented, non-comment lines
// immediately following the target, up to the first non-indented line.
// Targets with no recipe yield an empty preview.
func (s *MakefileSource) Scan(root workspace.Root) []catalog.Task {
	path, ok := s.File(root)
	if !ok {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		s.log.Warn("open build file", zap.String("path", path), zap.Error(err))
		return nil
	}
	defer file.Close()

	var tasks []catalog.Task
	var currentDoc string
	offset := 0
	lineNum := 0

	scanner := bufio.NewScanner(file)
	// Recipe collection state for the most recently seen target.
	var openTask *catalog.Task
	var openDoc string
	var recipe []string

	flush := func() {
		if openTask != nil {
			if len(recipe) > 0 {
				openTask.Detail = strings.Join(recipe, "\n")
			} else {
				openTask.Detail = openDoc
			}
			openTask = nil
			openDoc = ""
			recipe = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineNum++
		lineStart := offset
		offset += len(line) + 1

		// Indented lines extend the open target's recipe.
		if len(line) > 0 && (line[0] == '\t' || line[0] == ' ') {
			if openTask != nil {
				trimmed := strings.TrimSpace(line)
				if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
					recipe = append(recipe, trimmed)
				}
			}
			continue
		}

		flush()

		if matches := docCommentPattern.FindStringSubmatch(line); matches != nil {
			currentDoc = matches[1]
			continue
		}
		if strings.HasPrefix(line, "#") {
			currentDoc = ""
			continue
		}

		matches := targetPattern.FindStringSubmatch(line)
		if matches == nil {
			currentDoc = ""
			continue
		}
		name := matches[1]

		// Skip special and pattern targets.
		if strings.HasPrefix(name, ".") || strings.Contains(name, "%") {
			currentDoc = ""
			continue
		}

		tasks = append(tasks, catalog.Task{
			Name:       name,
			Dialect:    catalog.DialectMakeTarget,
			SourceFile: path,
			Root:       root,
			Pos: &catalog.SourcePosition{
				Start: lineStart,
				End:   lineStart + len(line),
				Line:  lineNum,
			},
			Exec: catalog.ExecSpec{
				Kind: catalog.ExecShell,
				Shell: &catalog.ShellSpec{
					Command: "make " + name,
					Dir:     root.Path,
				},
			},
		})
		openTask = &tasks[len(tasks)-1]
		// Doc comment fills Detail only for targets with no recipe lines.
		openDoc = currentDoc
		currentDoc = ""
	}
	flush()

	if err := scanner.Err(); err != nil {
		s.log.Warn("scan build file", zap.String("path", path), zap.Error(err))
	}

	return tasks
}
