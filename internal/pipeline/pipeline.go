// Package pipeline provisions a native library: it fetches the pinned source,
// builds one target, stages the produced shared libraries and registers the
// installation directory on the library search path.
//
// A run moves through the states Uninitialized, Fetched, Built, Staged and
// Done. The first fatal error stops the run in the last state reached and
// leaves the work tree on disk for inspection; only a fully successful run
// removes it.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/goplus/llprov/internal/cmake"
	"github.com/goplus/llprov/internal/config"
	"github.com/goplus/llprov/internal/env"
	"github.com/goplus/llprov/internal/staging"
	"github.com/goplus/llprov/internal/vcs"
)

// BuildDirName is the build tree inside the work tree.
const BuildDirName = "build"

// State is the last stage a run completed.
type State int

const (
	Uninitialized State = iota
	Fetched
	Built
	Staged
	Done
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Fetched:
		return "fetched"
	case Built:
		return "built"
	case Staged:
		return "staged"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Builder configures and compiles the fetched source.
type Builder interface {
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, target string, args ...string) error
}

// Result describes what a run did.
type Result struct {
	State State
	// Commit is the checked out commit of the source.
	Commit string
	// Staged lists the installed files.
	Staged []string
	// SearchPath is the new value of the search path variable.
	SearchPath string
	// Warnings are non-fatal registration and cleanup errors.
	Warnings []error
}

// Pipeline runs the provisioning stages for one configuration.
type Pipeline struct {
	cfg     config.Config
	vcs     vcs.VCS
	builder Builder
	stdout  io.Writer
	stderr  io.Writer
	cmake   string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithVCS sets the source fetcher.
func WithVCS(v vcs.VCS) Option {
	return func(p *Pipeline) { p.vcs = v }
}

// WithBuilder replaces the cmake based builder.
func WithBuilder(b Builder) Option {
	return func(p *Pipeline) { p.builder = b }
}

// WithCMakePath sets a custom cmake executable path.
func WithCMakePath(path string) Option {
	return func(p *Pipeline) { p.cmake = path }
}

// WithOutput sets where external tools write their output.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(p *Pipeline) {
		p.stdout = stdout
		p.stderr = stderr
	}
}

// New creates a Pipeline for cfg. cfg should be resolved and validated.
func New(cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(p)
	}
	if p.vcs == nil {
		p.vcs = vcs.NewGitVCS(vcs.WithOutput(p.stdout, p.stderr))
	}
	if p.builder == nil {
		p.builder = p.newCMake()
	}
	return p
}

func (p *Pipeline) newCMake() *cmake.CMake {
	b := p.cfg.Build
	c := cmake.New(p.cfg.WorkDir, filepath.Join(p.cfg.WorkDir, BuildDirName))
	if p.cmake != "" {
		c.Bin(p.cmake)
	}
	c.Output(p.stdout, p.stderr)
	c.BuildType(b.BuildType)
	c.Generator(b.Generator)
	c.Jobs(b.Jobs)
	for k, v := range b.Options {
		c.DefineBool(k, v)
	}
	return c
}

// Run executes all stages. searchPath is the current value of the library
// search path; the registered value is returned in Result.SearchPath and
// the caller decides how to apply it. The returned Result is never nil.
func (p *Pipeline) Run(ctx context.Context, searchPath string) (*Result, error) {
	res := &Result{State: Uninitialized, SearchPath: searchPath}
	cfg := p.cfg

	if err := p.Acquire(ctx); err != nil {
		return res, &Error{Stage: StageAcquire, Err: err}
	}
	res.State = Fetched
	if commit, err := p.vcs.Head(ctx, cfg.WorkDir); err == nil {
		res.Commit = commit
		log.Infof("fetched %s at %s", cfg.Source.Revision, commit)
	} else {
		log.Warnf("fetched %s, commit unknown: %v", cfg.Source.Revision, err)
	}

	log.Infof("configuring %s", cfg.WorkDir)
	if err := p.builder.Configure(ctx); err != nil {
		return res, &Error{Stage: StageConfigure, Err: err}
	}
	log.Infof("building target %s", cfg.Build.Target)
	if err := p.builder.Build(ctx, cfg.Build.Target); err != nil {
		return res, &Error{Stage: StageCompile, Err: err}
	}
	res.State = Built

	staged, err := staging.Stage(cfg.WorkDir, cfg.Build.Artifacts, cfg.InstallDir)
	res.Staged = staged
	if err != nil {
		return res, &Error{Stage: StageStage, Err: err}
	}
	res.State = Staged
	for _, f := range staged {
		log.Debugf("staged %s", f)
	}

	if sp, err := Register(searchPath, cfg.InstallDir); err != nil {
		res.Warnings = append(res.Warnings, &Error{Stage: StageRegister, Err: err})
	} else {
		res.SearchPath = sp
	}
	if err := Cleanup(cfg.WorkDir); err != nil {
		res.Warnings = append(res.Warnings, &Error{Stage: StageCleanup, Err: err})
	}
	for _, w := range res.Warnings {
		log.Warn(w)
	}
	res.State = Done
	return res, nil
}

// Acquire fetches the pinned source into the work tree.
func (p *Pipeline) Acquire(ctx context.Context) error {
	src := p.cfg.Source
	kind := vcs.ClassifyRevision(src.Revision)
	if !kind.Pinned() {
		log.Warnf("revision %q looks like a branch, the build may not be reproducible", src.Revision)
	}
	log.Infof("fetching %s %s (%s, depth %d) into %s", src.URL, src.Revision, kind, src.Depth, p.cfg.WorkDir)
	return p.vcs.Clone(ctx, src.URL, src.Revision, p.cfg.WorkDir, src.Depth)
}

// Register appends dir to the search path value. It fails when dir cannot
// be represented as a single entry of the list.
func Register(searchPath, dir string) (string, error) {
	if dir == "" {
		return searchPath, fmt.Errorf("empty directory")
	}
	if strings.ContainsRune(dir, filepath.ListSeparator) {
		return searchPath, fmt.Errorf("%s contains the list separator %q", dir, filepath.ListSeparator)
	}
	return env.AppendPath(searchPath, dir), nil
}

// Cleanup removes the work tree. A missing tree is not an error.
func Cleanup(dir string) error {
	if _, err := os.Lstat(dir); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.RemoveAll(dir)
}
