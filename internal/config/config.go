// Package config describes what to provision: the pinned source, the build
// target with its options, the artifacts it produces and where they go.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
	"github.com/qiniu/x/errors"

	"github.com/goplus/llprov/internal/env"
)

// Build types accepted for CMAKE_BUILD_TYPE.
const (
	Debug   = "Debug"
	Release = "Release"
)

// Config is the full description of one provisioning run.
type Config struct {
	// Project names the library. The installation directory defaults to
	// <home>/.<project>_c.
	Project string `toml:"project"`
	// WorkDir holds the fetched source and its build tree for the duration
	// of a run.
	WorkDir    string `toml:"work_dir"`
	InstallDir string `toml:"install_dir,omitempty"`
	Source     Source `toml:"source"`
	Build      Build  `toml:"build"`
}

// Source is the pinned source reference.
type Source struct {
	URL      string `toml:"url"`
	Revision string `toml:"revision"`
	Depth    int    `toml:"depth"`
}

// Build is the build target descriptor and the artifacts it yields.
type Build struct {
	Target    string          `toml:"target"`
	BuildType string          `toml:"build_type"`
	Generator string          `toml:"generator,omitempty"`
	Jobs      int             `toml:"jobs,omitempty"`
	Options   map[string]bool `toml:"options"`
	// Artifacts are paths relative to WorkDir.
	Artifacts []string `toml:"artifacts"`
}

// Default returns the configuration that provisions the FAISS C API.
func Default() Config {
	ext := sharedLibExt()
	return Config{
		Project: "faiss",
		WorkDir: "faiss",
		Source: Source{
			URL:      "https://github.com/facebookresearch/faiss.git",
			Revision: "v1.8.0",
			Depth:    1,
		},
		Build: Build{
			Target:    "faiss_c",
			BuildType: Release,
			Options: map[string]bool{
				"FAISS_ENABLE_C_API":  true,
				"BUILD_SHARED_LIBS":   true,
				"FAISS_ENABLE_PYTHON": false,
				"FAISS_ENABLE_GPU":    false,
				"BUILD_TESTING":       false,
			},
			Artifacts: []string{
				"build/c_api/libfaiss_c" + ext,
				"build/faiss/libfaiss" + ext,
			},
		},
	}
}

func sharedLibExt() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}

// Load returns the defaults overlaid with the TOML file at path.
// A missing file is an error only when required is set.
func Load(path string, required bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return cfg, nil
		}
		return Config{}, err
	}
	defer f.Close()

	file, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Merge(file)
	return cfg, nil
}

// Decode parses a TOML configuration. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	var cfg Config
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes c as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).SetIndentTables(true).Encode(c)
}

// Merge overlays the non-zero fields of o onto c. Options are merged key by
// key. A non-empty artifact list replaces the current one.
func (c *Config) Merge(o Config) {
	setString(&c.Project, o.Project)
	setString(&c.WorkDir, o.WorkDir)
	setString(&c.InstallDir, o.InstallDir)
	setString(&c.Source.URL, o.Source.URL)
	setString(&c.Source.Revision, o.Source.Revision)
	if o.Source.Depth != 0 {
		c.Source.Depth = o.Source.Depth
	}
	setString(&c.Build.Target, o.Build.Target)
	setString(&c.Build.BuildType, o.Build.BuildType)
	setString(&c.Build.Generator, o.Build.Generator)
	if o.Build.Jobs != 0 {
		c.Build.Jobs = o.Build.Jobs
	}
	if len(o.Build.Options) > 0 && c.Build.Options == nil {
		c.Build.Options = make(map[string]bool, len(o.Build.Options))
	}
	for k, v := range o.Build.Options {
		c.Build.Options[k] = v
	}
	if len(o.Build.Artifacts) > 0 {
		c.Build.Artifacts = append([]string(nil), o.Build.Artifacts...)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Resolve fills in the installation directory from the project name and
// makes the directories absolute.
func (c *Config) Resolve() error {
	if c.InstallDir == "" {
		dir, err := env.InstallDir(c.Project)
		if err != nil {
			return err
		}
		c.InstallDir = dir
	}
	for _, p := range []*string{&c.WorkDir, &c.InstallDir} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return err
		}
		*p = abs
	}
	return nil
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var errs errors.List
	if c.Project == "" {
		errs.Add(fmt.Errorf("project: must not be empty"))
	}
	if c.WorkDir == "" {
		errs.Add(fmt.Errorf("work_dir: must not be empty"))
	}
	if c.Source.URL == "" {
		errs.Add(fmt.Errorf("source.url: must not be empty"))
	}
	if c.Source.Revision == "" {
		errs.Add(fmt.Errorf("source.revision: must not be empty"))
	}
	if c.Source.Depth < 1 {
		errs.Add(fmt.Errorf("source.depth: must be a positive integer, got %d", c.Source.Depth))
	}
	if c.Build.Target == "" {
		errs.Add(fmt.Errorf("build.target: must not be empty"))
	}
	switch c.Build.BuildType {
	case Debug, Release:
	default:
		errs.Add(fmt.Errorf("build.build_type: must be %s or %s, got %q", Debug, Release, c.Build.BuildType))
	}
	if c.Build.Jobs < 0 {
		errs.Add(fmt.Errorf("build.jobs: must not be negative"))
	}
	if len(c.Build.Artifacts) == 0 {
		errs.Add(fmt.Errorf("build.artifacts: must list at least one file"))
	}
	seen := make(map[string]string, len(c.Build.Artifacts))
	for _, a := range c.Build.Artifacts {
		if a == "" || filepath.IsAbs(a) || !filepath.IsLocal(a) {
			errs.Add(fmt.Errorf("build.artifacts: %q must be a relative path inside the work tree", a))
			continue
		}
		base := filepath.Base(a)
		if prev, ok := seen[base]; ok {
			errs.Add(fmt.Errorf("build.artifacts: %q and %q would both be installed as %s", prev, a, base))
		}
		seen[base] = a
	}
	if c.WorkDir != "" && c.InstallDir != "" {
		// cleanup removes the work tree, so neither dir may hold the other.
		switch {
		case within(c.WorkDir, c.InstallDir):
			errs.Add(fmt.Errorf("install_dir: %s must not be work_dir or inside it", c.InstallDir))
		case within(c.InstallDir, c.WorkDir):
			errs.Add(fmt.Errorf("work_dir: %s must not be inside install_dir", c.WorkDir))
		}
	}
	return errs.ToError()
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || filepath.IsLocal(rel)
}
