package sources

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/workspace"
)

// ideRunDirs are the conventional run-configuration directories, relative
// to a project root.
var ideRunDirs = []string{
	filepath.Join(".idea", "runConfigurations"),
	".run",
}

// projectDirToken is the IDE's path-substitution token for the project root.
const projectDirToken = "$PROJECT_DIR$"

// IDERunSource reads third-party IDE run-configuration XML files.
//
// The on-disk schema has shifted over the years: current files wrap a
// <configuration> in a <component> and express fields as <option name
// value/> children; older files use a bare <configuration> root, flattened
// configuration attributes, or <option><value/></option> nesting. Parse
// strategies are tried newest first; a file matching none is skipped.
type IDERunSource struct {
	log *zap.Logger
}

// NewIDERunSource creates an IDE run-configuration reader.
func NewIDERunSource(logger *zap.Logger) *IDERunSource {
	return &IDERunSource{log: logger.Named("iderun")}
}

// Scan reads every run-configuration file under the root's conventional
// directories and returns the valid tasks sorted by name. Files that fail
// to parse, lack both a name and a type, or resolve to nothing runnable
// are skipped without aborting the remaining files.
func (s *IDERunSource) Scan(root workspace.Root) []catalog.Task {
	var tasks []catalog.Task

	for _, rel := range ideRunDirs {
		dir := filepath.Join(root.Path, rel)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".xml") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			for _, cfg := range s.readFile(path) {
				if task, ok := s.extract(root, path, cfg); ok {
					tasks = append(tasks, task)
				}
			}
		}
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks
}

// xmlValue covers both value representations: an attribute (<package
// value="x"/>) and element text (<value>x</value>).
type xmlValue struct {
	Attr string `xml:"value,attr"`
	Text string `xml:",chardata"`
}

func (v *xmlValue) value() string {
	if v == nil {
		return ""
	}
	if v.Attr != "" {
		return v.Attr
	}
	return strings.TrimSpace(v.Text)
}

// xmlOption is one <option> child in any of its historical shapes.
type xmlOption struct {
	Name  string    `xml:"name,attr"`
	Value string    `xml:"value,attr"`
	Inner *xmlValue `xml:"value"`
}

// xmlEnv is one <env name value/> entry.
type xmlEnv struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// xmlConfiguration is a <configuration> element across schema versions.
type xmlConfiguration struct {
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Default string `xml:"default,attr"`

	Options []xmlOption `xml:"option"`

	WorkingDirectory *xmlValue `xml:"working_directory"`
	Package          *xmlValue `xml:"package"`
	FilePath         *xmlValue `xml:"filePath"`
	Kind             *xmlValue `xml:"kind"`
	Parameters       *xmlValue `xml:"parameters"`
	Envs             []xmlEnv  `xml:"envs>env"`

	// Flattened legacy attributes land here.
	Attrs []xml.Attr `xml:",any,attr"`
}

// wrappedDocument is the current schema: a component wrapping one or more
// configurations, optionally under a project root element.
type wrappedDocument struct {
	Component struct {
		Configurations []xmlConfiguration `xml:"configuration"`
	} `xml:"component"`
	// Some files make <component> itself the document root; its
	// configurations then parse as direct children.
	Configurations []xmlConfiguration `xml:"configuration"`
}

// readFile parses one file, trying the newest schema shape first and
// falling back to the bare-configuration root used by older versions.
func (s *IDERunSource) readFile(path string) []xmlConfiguration {
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn("read run configuration", zap.String("path", path), zap.Error(err))
		return nil
	}

	// Strategy 1: component-wrapped configurations.
	var doc wrappedDocument
	if err := xml.Unmarshal(data, &doc); err == nil {
		cfgs := append(doc.Component.Configurations, doc.Configurations...)
		if usable := filterUsable(cfgs); len(usable) > 0 {
			return usable
		}
	}

	// Strategy 2: the document root is the configuration itself.
	var cfg xmlConfiguration
	if err := xml.Unmarshal(data, &cfg); err == nil {
		if usable := filterUsable([]xmlConfiguration{cfg}); len(usable) > 0 {
			return usable
		}
	}

	s.log.Debug("no parse strategy matched", zap.String("path", path))
	return nil
}

// filterUsable drops template entries and entries missing both name and type.
func filterUsable(cfgs []xmlConfiguration) []xmlConfiguration {
	var out []xmlConfiguration
	for _, cfg := range cfgs {
		if cfg.Name == "" && cfg.Type == "" {
			continue
		}
		if cfg.Default == "true" {
			continue
		}
		out = append(out, cfg)
	}
	return out
}

// extract dispatches to a type-specific extractor by substring of the
// declared type, since vendors encode language and version in the string.
func (s *IDERunSource) extract(root workspace.Root, path string, cfg xmlConfiguration) (catalog.Task, bool) {
	name, ok := cleanIDEName(cfg)
	if !ok {
		return catalog.Task{}, false
	}

	fields := newFieldReader(root, cfg)

	var spec catalog.ExecSpec
	switch {
	case strings.Contains(cfg.Type, "ShConfigurationType"):
		spec = extractShell(root, fields)
	case strings.Contains(cfg.Type, "Application"):
		spec = extractApplication(root, fields)
	default:
		spec = extractGeneric(root, fields)
	}

	if !spec.Resolved() {
		s.log.Debug("unresolved run configuration",
			zap.String("path", path), zap.String("name", name), zap.String("type", cfg.Type))
		return catalog.Task{}, false
	}

	return catalog.Task{
		Name:       name,
		Dialect:    catalog.DialectIDERun,
		SourceFile: path,
		Root:       root,
		Detail:     cfg.Type,
		Exec:       spec,
	}, true
}

// fieldReader answers field lookups across schema shapes: option children
// with value attributes, option children with nested value elements, then
// flattened configuration attributes. Every answer has the project-root
// token substituted.
type fieldReader struct {
	root    workspace.Root
	options map[string]string
	attrs   map[string]string
	cfg     xmlConfiguration
}

func newFieldReader(root workspace.Root, cfg xmlConfiguration) *fieldReader {
	fr := &fieldReader{
		root:    root,
		options: make(map[string]string, len(cfg.Options)),
		attrs:   make(map[string]string, len(cfg.Attrs)),
		cfg:     cfg,
	}
	for _, opt := range cfg.Options {
		if opt.Name == "" {
			continue
		}
		if opt.Value != "" {
			fr.options[opt.Name] = opt.Value
		} else if v := opt.Inner.value(); v != "" {
			fr.options[opt.Name] = v
		}
	}
	for _, attr := range cfg.Attrs {
		fr.attrs[attr.Name.Local] = attr.Value
	}
	return fr
}

// field returns the named field, checking each schema shape in order.
func (fr *fieldReader) field(names ...string) string {
	for _, name := range names {
		if v, ok := fr.options[name]; ok {
			return fr.substitute(v)
		}
	}
	for _, name := range names {
		if v, ok := fr.attrs[name]; ok {
			return fr.substitute(v)
		}
	}
	return ""
}

// element returns a named child-element value of the configuration.
func (fr *fieldReader) element(v *xmlValue) string {
	return fr.substitute(v.value())
}

// env returns the configuration's environment map, token-substituted.
func (fr *fieldReader) env() map[string]string {
	if len(fr.cfg.Envs) == 0 {
		return nil
	}
	out := make(map[string]string, len(fr.cfg.Envs))
	for _, e := range fr.cfg.Envs {
		if e.Name != "" {
			out[e.Name] = fr.substitute(e.Value)
		}
	}
	return out
}

func (fr *fieldReader) substitute(v string) string {
	return strings.ReplaceAll(v, projectDirToken, fr.root.Path)
}

// extractShell handles the generic shell-command configuration type.
func extractShell(root workspace.Root, fr *fieldReader) catalog.ExecSpec {
	dir := fr.field("SCRIPT_WORKING_DIRECTORY", "WORKING_DIRECTORY")
	if dir == "" {
		dir = root.Path
	}

	executeFile := fr.field("EXECUTE_SCRIPT_FILE") == "true"
	scriptPath := fr.field("SCRIPT_PATH")
	scriptText := fr.field("SCRIPT_TEXT")

	var parts []string
	if executeFile || (scriptText == "" && scriptPath != "") {
		if scriptPath == "" {
			return catalog.ExecSpec{}
		}
		if interp := fr.field("INTERPRETER_PATH"); interp != "" {
			parts = append(parts, interp)
			if opts := fr.field("INTERPRETER_OPTIONS_TEXT", "INTERPRETER_OPTIONS"); opts != "" {
				parts = append(parts, opts)
			}
		}
		parts = append(parts, scriptPath)
	} else {
		if scriptText == "" {
			return catalog.ExecSpec{}
		}
		parts = append(parts, scriptText)
	}
	if extra := fr.field("SCRIPT_OPTIONS"); extra != "" {
		parts = append(parts, extra)
	}

	return catalog.ExecSpec{
		Kind: catalog.ExecShell,
		Shell: &catalog.ShellSpec{
			Command: strings.Join(parts, " "),
			Dir:     dir,
			Env:     fr.env(),
		},
	}
}

// extractApplication handles compiled-language application types. The
// invocation target is the configured package or file path.
func extractApplication(root workspace.Root, fr *fieldReader) catalog.ExecSpec {
	target := fr.element(fr.cfg.Package)
	if target == "" {
		target = fr.field("PACKAGE")
	}
	if target == "" {
		target = fr.element(fr.cfg.FilePath)
	}
	if target == "" {
		target = fr.field("FILE_PATH", "filePath")
	}
	if target == "" {
		return catalog.ExecSpec{}
	}

	dir := fr.element(fr.cfg.WorkingDirectory)
	if dir == "" {
		dir = fr.field("WORKING_DIRECTORY", "working_directory")
	}
	if dir == "" {
		dir = root.Path
	}

	command := "go run " + target
	params := fr.element(fr.cfg.Parameters)
	if params == "" {
		params = fr.field("PARAMETERS", "parameters")
	}
	if params != "" {
		command += " " + params
	}

	return catalog.ExecSpec{
		Kind: catalog.ExecShell,
		Shell: &catalog.ShellSpec{
			Command: command,
			Dir:     dir,
			Env:     fr.env(),
		},
	}
}

// extractGeneric is the catch-all: it can only determine a working
// directory, which is not enough to run anything, so the task is dropped
// by the Resolved check upstream.
func extractGeneric(root workspace.Root, fr *fieldReader) catalog.ExecSpec {
	dir := fr.element(fr.cfg.WorkingDirectory)
	if dir == "" {
		dir = fr.field("WORKING_DIRECTORY", "working_directory")
	}
	if dir == "" {
		dir = root.Path
	}
	return catalog.ExecSpec{
		Kind:  catalog.ExecShell,
		Shell: &catalog.ShellSpec{Dir: dir},
	}
}

func cleanIDEName(cfg xmlConfiguration) (string, bool) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = strings.TrimSpace(cfg.Type)
	}
	return name, name != ""
}
