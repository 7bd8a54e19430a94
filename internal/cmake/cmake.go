// Package cmake wraps the cmake configure/build workflow for a single target.
package cmake

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"
)

type defineValue struct {
	value    string
	typeName string
}

// CMake drives CMake-based builds.
type CMake struct {
	bin       string
	sourceDir string
	buildDir  string
	generator string
	buildType string
	jobs      int
	defines   map[string]defineValue

	stdout io.Writer
	stderr io.Writer
}

// New returns a ready-to-use CMake.
func New(sourceDir, buildDir string) *CMake {
	return &CMake{
		bin:       "cmake",
		sourceDir: sourceDir,
		buildDir:  buildDir,
		defines:   make(map[string]defineValue),
		stdout:    os.Stdout,
		stderr:    os.Stderr,
	}
}

// Bin overrides the cmake executable.
func (c *CMake) Bin(path string) { c.bin = path }

// Output sets where cmake's own output is written.
func (c *CMake) Output(stdout, stderr io.Writer) {
	c.stdout = stdout
	c.stderr = stderr
}

// BuildDir returns the binary directory passed to -B.
func (c *CMake) BuildDir() string { return c.buildDir }

// Generator sets the CMake generator (e.g. "Ninja", "Unix Makefiles").
func (c *CMake) Generator(name string) { c.generator = name }

// BuildType sets CMAKE_BUILD_TYPE (e.g. "Release", "Debug").
func (c *CMake) BuildType(name string) { c.buildType = name }

// Jobs sets the build parallelism. Zero leaves it to the generator.
func (c *CMake) Jobs(n int) { c.jobs = n }

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	v := "OFF"
	if value {
		v = "ON"
	}
	c.defines[key] = defineValue{value: v, typeName: "BOOL"}
}

// Configure runs "cmake -S <source> -B <build>" with all configured options.
// Extra args are appended at the end.
func (c *CMake) Configure(ctx context.Context, args ...string) error {
	return c.run(ctx, c.ConfigureArgs(args...))
}

// ConfigureArgs returns the arguments Configure passes to cmake.
func (c *CMake) ConfigureArgs(args ...string) []string {
	cmakeArgs := []string{"-S", c.sourceDir, "-B", c.buildDir}
	if c.generator != "" {
		cmakeArgs = append(cmakeArgs, "-G", c.generator)
	}
	if c.buildType != "" {
		c.Define("CMAKE_BUILD_TYPE", c.buildType)
	}
	cmakeArgs = append(cmakeArgs, c.definesArgs()...)
	return append(cmakeArgs, args...)
}

// Build runs "cmake --build <build> --target <target>" so that only target
// and its dependencies are compiled.
func (c *CMake) Build(ctx context.Context, target string, args ...string) error {
	return c.run(ctx, c.BuildArgs(target, args...))
}

// BuildArgs returns the arguments Build passes to cmake.
func (c *CMake) BuildArgs(target string, args ...string) []string {
	cmakeArgs := []string{"--build", c.buildDir}
	if target != "" {
		cmakeArgs = append(cmakeArgs, "--target", target)
	}
	if c.buildType != "" {
		cmakeArgs = append(cmakeArgs, "--config", c.buildType)
	}
	if c.jobs > 0 {
		cmakeArgs = append(cmakeArgs, "--parallel", strconv.Itoa(c.jobs))
	}
	return append(cmakeArgs, args...)
}

func (c *CMake) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	return cmd.Run()
}

func (c *CMake) definesArgs() []string {
	if len(c.defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.defines))
	for k := range c.defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := c.defines[k]
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}
