// Package staging copies build outputs into a persistent installation
// directory.
package staging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrMissingArtifact reports an artifact the build did not produce.
var ErrMissingArtifact = errors.New("artifact missing")

// Stage copies each artifact, given relative to srcRoot, into destDir under
// its base name and returns the destination paths in the same order.
// destDir is created if needed. Files already in destDir with the same name
// are replaced.
//
// All artifacts are checked before the first copy. Every artifact is first
// written to a temporary file in destDir, and only once all copies succeed
// are they renamed into place. A failed copy leaves the previous files in
// destDir untouched.
func Stage(srcRoot string, artifacts []string, destDir string) ([]string, error) {
	if len(artifacts) == 0 {
		return nil, errors.New("no artifacts to stage")
	}
	srcs := make([]string, len(artifacts))
	for i, a := range artifacts {
		src := filepath.Join(srcRoot, a)
		if err := Check(src); err != nil {
			return nil, err
		}
		srcs[i] = src
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	if err := checkWritable(destDir); err != nil {
		return nil, fmt.Errorf("%s: not writable: %w", destDir, err)
	}

	tmps := make([]string, 0, len(srcs))
	for i, src := range srcs {
		tmp, err := copyTemp(src, destDir)
		if err != nil {
			for _, name := range tmps {
				os.Remove(name)
			}
			return nil, fmt.Errorf("copy %s: %w", artifacts[i], err)
		}
		tmps = append(tmps, tmp)
	}

	staged := make([]string, 0, len(srcs))
	for i, src := range srcs {
		dst := filepath.Join(destDir, filepath.Base(src))
		if err := os.Rename(tmps[i], dst); err != nil {
			for _, name := range tmps[i:] {
				os.Remove(name)
			}
			return staged, fmt.Errorf("install %s: %w", artifacts[i], err)
		}
		staged = append(staged, dst)
	}
	return staged, nil
}

// Check verifies that path names a regular file, following symlinks.
func Check(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s: %w", path, ErrMissingArtifact)
		}
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s: not a regular file", path)
	}
	return nil
}

// copyTemp copies src to a new temporary file in dir and returns its name.
func copyTemp(src, dir string) (name string, err error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(src)+".tmp-*")
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return "", err
	}
	if err = tmp.Chmod(fi.Mode().Perm()); err != nil {
		return "", err
	}
	if err = tmp.Close(); err != nil {
		return "", err
	}
	return tmp.Name(), nil
}
