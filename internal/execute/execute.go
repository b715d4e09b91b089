// Package execute builds launch requests at the execution boundary. The
// engine decides what to run — a named debug configuration or a shell
// command line with its working directory — and hands the request to the
// host, which owns terminals and debug sessions.
package execute

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dshills/taskdeck/internal/catalog"
	"github.com/dshills/taskdeck/internal/workspace"
)

// ErrUnresolved is returned for tasks whose execution spec never resolved.
var ErrUnresolved = errors.New("task has no resolved execution spec")

// Kind discriminates the request union.
type Kind int

const (
	// KindDebug asks the host to start a debug session.
	KindDebug Kind = iota
	// KindShell asks the host to run a command line.
	KindShell
)

// DebugRequest names a debug configuration to start against a root.
// Compound configurations expand to their member names.
type DebugRequest struct {
	Root        workspace.Root
	ConfigNames []string
}

// ShellRequest is a command line to run in a working directory. Exports,
// when present, is a prefix of environment-variable export statements.
type ShellRequest struct {
	ID      string
	Command string
	Dir     string
	Exports string
}

// CommandLine returns the full line to hand to a shell.
func (r ShellRequest) CommandLine() string {
	if r.Exports == "" {
		return r.Command
	}
	return r.Exports + r.Command
}

// Request is the launch-request union handed to the host.
type Request struct {
	Kind  Kind
	Debug *DebugRequest
	Shell *ShellRequest
}

// Builder converts tasks into launch requests.
type Builder struct {
	log *zap.Logger
}

// NewBuilder creates a request builder.
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{log: logger.Named("execute")}
}

// Build produces the launch request for a task. Callers record the task
// into the recency store only after a successful build; a failed build or
// a failed host launch never mutates store state.
func (b *Builder) Build(t catalog.Task) (Request, error) {
	switch t.Exec.Kind {
	case catalog.ExecDebug:
		return b.buildDebug(t)
	case catalog.ExecShell:
		return b.buildShell(t)
	default:
		return Request{}, fmt.Errorf("%w: %s", ErrUnresolved, t.Name)
	}
}

func (b *Builder) buildDebug(t catalog.Task) (Request, error) {
	spec := t.Exec.Debug
	if spec == nil || spec.ConfigName == "" {
		return Request{}, fmt.Errorf("%w: %s", ErrUnresolved, t.Name)
	}

	names := []string{spec.ConfigName}
	if len(spec.Compound) > 0 {
		names = append([]string(nil), spec.Compound...)
	}

	b.log.Info("debug launch request",
		zap.String("task", t.Name), zap.Strings("configurations", names))

	return Request{
		Kind:  KindDebug,
		Debug: &DebugRequest{Root: t.Root, ConfigNames: names},
	}, nil
}

func (b *Builder) buildShell(t catalog.Task) (Request, error) {
	spec := t.Exec.Shell
	if spec == nil || spec.Command == "" || spec.Dir == "" {
		return Request{}, fmt.Errorf("%w: %s", ErrUnresolved, t.Name)
	}

	req := &ShellRequest{
		ID:      uuid.NewString(),
		Command: spec.Command,
		Dir:     spec.Dir,
		Exports: renderExports(spec.Env),
	}

	b.log.Info("shell launch request",
		zap.String("task", t.Name), zap.String("id", req.ID),
		zap.String("dir", req.Dir))

	return Request{Kind: KindShell, Shell: req}, nil
}

// renderExports renders an environment map as export statements in sorted
// key order, ready to prepend to the command line.
func renderExports(env map[string]string) string {
	if len(env) == 0 {
		return ""
	}

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "export %s=%q; ", k, env[k])
	}
	return sb.String()
}
