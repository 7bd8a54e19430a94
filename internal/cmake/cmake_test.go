package cmake

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureArgs(t *testing.T) {
	c := New("/src", "/src/build")
	c.Generator("Ninja")
	c.BuildType("Release")
	c.DefineBool("FAISS_ENABLE_C_API", true)
	c.DefineBool("BUILD_TESTING", false)
	c.Define("FOO", "BAR")

	got := c.ConfigureArgs("--fresh")
	want := []string{
		"-S", "/src", "-B", "/src/build", "-G", "Ninja",
		"-DBUILD_TESTING:BOOL=OFF",
		"-DCMAKE_BUILD_TYPE:STRING=Release",
		"-DFAISS_ENABLE_C_API:BOOL=ON",
		"-DFOO:STRING=BAR",
		"--fresh",
	}
	assert.Equal(t, want, got)
}

func TestConfigureArgsMinimal(t *testing.T) {
	c := New("src", "build")
	assert.Equal(t, []string{"-S", "src", "-B", "build"}, c.ConfigureArgs())
}

func TestBuildArgs(t *testing.T) {
	c := New("src", "build")
	assert.Equal(t, []string{"--build", "build", "--target", "faiss_c"}, c.BuildArgs("faiss_c"))

	c.BuildType("Debug")
	c.Jobs(8)
	assert.Equal(t,
		[]string{"--build", "build", "--target", "faiss_c", "--config", "Debug", "--parallel", "8", "-v"},
		c.BuildArgs("faiss_c", "-v"))
}

func writeFakeCMake(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake cmake is a shell script")
	}
	path := filepath.Join(t.TempDir(), "cmake")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestRunUsesBinAndStreamsOutput(t *testing.T) {
	log := filepath.Join(t.TempDir(), "calls.log")
	t.Setenv("FAKE_CMAKE_LOG", log)
	bin := writeFakeCMake(t, `echo "$@" >> "$FAKE_CMAKE_LOG"; echo configured; echo warn >&2`)

	var stdout, stderr strings.Builder
	c := New("src", "build")
	c.Bin(bin)
	c.Output(&stdout, &stderr)
	c.DefineBool("BUILD_SHARED_LIBS", true)

	ctx := context.Background()
	require.NoError(t, c.Configure(ctx))
	require.NoError(t, c.Build(ctx, "libX"))

	data, err := os.ReadFile(log)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "-S src -B build -DBUILD_SHARED_LIBS:BOOL=ON", lines[0])
	assert.Equal(t, "--build build --target libX", lines[1])
	assert.Equal(t, "configured\nconfigured\n", stdout.String())
	assert.Equal(t, "warn\nwarn\n", stderr.String())
}

func TestRunReportsExitCode(t *testing.T) {
	bin := writeFakeCMake(t, `echo "CMake Error: bad option" >&2; exit 3`)

	var stderr strings.Builder
	c := New("src", "build")
	c.Bin(bin)
	c.Output(io.Discard, &stderr)

	err := c.Configure(context.Background())
	require.Error(t, err)

	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())
	assert.Contains(t, stderr.String(), "CMake Error: bad option")
}

func TestConfigureBuildE2E(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping cmake build in short mode")
	}
	if _, err := exec.LookPath("cmake"); err != nil {
		t.Skip("cmake not found in PATH")
	}
	if _, err := exec.LookPath("cc"); err != nil {
		t.Skip("C compiler not found in PATH")
	}

	src := t.TempDir()
	lists := "cmake_minimum_required(VERSION 3.10)\n" +
		"project(x C)\n" +
		"add_library(x SHARED x.c)\n" +
		"add_library(unrelated SHARED missing.c)\n" +
		"set_target_properties(unrelated PROPERTIES EXCLUDE_FROM_ALL TRUE)\n"
	require.NoError(t, os.WriteFile(filepath.Join(src, "CMakeLists.txt"), []byte(lists), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "x.c"), []byte("int x(void) { return 1; }\n"), 0o644))

	c := New(src, filepath.Join(src, "build"))
	c.Output(io.Discard, io.Discard)
	c.BuildType("Release")
	c.DefineBool("BUILD_SHARED_LIBS", true)

	ctx := context.Background()
	require.NoError(t, c.Configure(ctx))
	require.NoError(t, c.Build(ctx, "x"))

	lib := "libx.so"
	if runtime.GOOS == "darwin" {
		lib = "libx.dylib"
	}
	_, err := os.Stat(filepath.Join(src, "build", lib))
	assert.NoError(t, err)
}
