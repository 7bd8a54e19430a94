// Copyright 2024 The llar Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrDirNotEmpty is returned by Clone when the destination already holds files.
var ErrDirNotEmpty = errors.New("destination exists and is not empty")

// VCS defines the interface for version control operations.
type VCS interface {
	// Clone fetches ref from remote into dir with at most depth commits of
	// history and checks it out. ref can be branch, tag, or commit hash.
	// dir must be absent or empty. On failure the partial clone is removed.
	Clone(ctx context.Context, remote, ref, dir string, depth int) error

	// Head returns the commit hash checked out in dir.
	Head(ctx context.Context, dir string) (string, error)
}

// gitVCS implements VCS using git.
type gitVCS struct {
	git    string
	stdout io.Writer
	stderr io.Writer
}

// GitOption configures gitVCS.
type GitOption func(*gitVCS)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitVCS) {
		g.git = path
	}
}

// WithOutput sets where git progress and diagnostics are written.
func WithOutput(stdout, stderr io.Writer) GitOption {
	return func(g *gitVCS) {
		g.stdout = stdout
		g.stderr = stderr
	}
}

// NewGitVCS creates a new git VCS instance.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{git: "git", stdout: os.Stdout, stderr: os.Stderr}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gitVCS) Clone(ctx context.Context, remote, ref, dir string, depth int) (err error) {
	if remote == "" {
		return errors.New("empty remote")
	}
	if ref == "" {
		return errors.New("empty revision")
	}
	if depth < 1 {
		return fmt.Errorf("invalid clone depth %d", depth)
	}

	created, err := prepareDir(dir)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			discard(dir, created)
		}
	}()

	if err = g.run(ctx, dir, "init", "--quiet"); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err = g.run(ctx, dir, "remote", "add", "origin", remote); err != nil {
		return fmt.Errorf("add remote: %w", err)
	}
	if err = g.fetch(ctx, dir, ref, depth); err != nil {
		return err
	}
	return g.checkout(ctx, dir, "FETCH_HEAD")
}

func (g *gitVCS) Head(ctx context.Context, dir string) (string, error) {
	output, err := g.output(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(output), nil
}

func (g *gitVCS) fetch(ctx context.Context, dir, ref string, depth int) error {
	args := []string{"fetch", "--depth", fmt.Sprint(depth), "origin", ref}
	if err := g.run(ctx, dir, args...); err != nil {
		return fmt.Errorf("fetch %s: %w", ref, err)
	}
	return nil
}

func (g *gitVCS) checkout(ctx context.Context, dir, ref string) error {
	if err := g.run(ctx, dir, "checkout", "--quiet", ref); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

func (g *gitVCS) command(ctx context.Context, dir string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, g.git, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	return cmd
}

// run streams git's own output so failures are reported verbatim.
func (g *gitVCS) run(ctx context.Context, dir string, args ...string) error {
	cmd := g.command(ctx, dir, args...)
	cmd.Stdout = g.stdout
	cmd.Stderr = g.stderr
	return cmd.Run()
}

func (g *gitVCS) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := g.command(ctx, dir, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

// prepareDir makes sure dir exists and is empty. It returns the topmost
// directory created by this call, or "" if dir already existed.
func prepareDir(dir string) (created string, err error) {
	entries, err := os.ReadDir(dir)
	switch {
	case err == nil:
		if len(entries) > 0 {
			return "", fmt.Errorf("%s: %w", dir, ErrDirNotEmpty)
		}
		return "", nil
	case !os.IsNotExist(err):
		return "", err
	}
	top := filepath.Clean(dir)
	for {
		parent := filepath.Dir(top)
		if parent == top {
			break
		}
		if _, err := os.Stat(parent); err == nil {
			break
		}
		top = parent
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return top, nil
}

// discard removes a failed clone along with any parents prepareDir created.
// A directory that existed before the clone is kept, only its new contents
// are removed.
func discard(dir, created string) {
	if created != "" {
		os.RemoveAll(created)
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		os.RemoveAll(filepath.Join(dir, e.Name()))
	}
}
