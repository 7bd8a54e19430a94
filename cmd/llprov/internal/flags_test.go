package internal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goplus/llprov/internal/config"
	"github.com/goplus/llprov/internal/env"
)

func TestParseSourceArg(t *testing.T) {
	tests := []struct {
		arg     string
		wantURL string
		wantRev string
	}{
		{"https://github.com/facebookresearch/faiss.git@v1.8.0", "https://github.com/facebookresearch/faiss.git", "v1.8.0"},
		{"https://github.com/facebookresearch/faiss.git", "https://github.com/facebookresearch/faiss.git", ""},
		{"git@github.com:facebookresearch/faiss.git", "git@github.com:facebookresearch/faiss.git", ""},
		{"git@github.com:facebookresearch/faiss.git@main-pinned", "git@github.com:facebookresearch/faiss.git", "main-pinned"},
		{"/srv/git/X@0123456789abcdef0123456789abcdef01234567", "/srv/git/X", "0123456789abcdef0123456789abcdef01234567"},
		{"@v1", "@v1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			url, rev := parseSourceArg(tt.arg)
			if url != tt.wantURL || rev != tt.wantRev {
				t.Errorf("parseSourceArg(%q) = (%q, %q), want (%q, %q)", tt.arg, url, rev, tt.wantURL, tt.wantRev)
			}
		})
	}
}

func TestParseOption(t *testing.T) {
	for _, v := range []string{"ON", "on", "true", "1", "YES"} {
		b, err := parseOption(v)
		require.NoError(t, err, v)
		assert.True(t, b, v)
	}
	for _, v := range []string{"OFF", "off", "false", "0", "no"} {
		b, err := parseOption(v)
		require.NoError(t, err, v)
		assert.False(t, b, v)
	}
	_, err := parseOption("maybe")
	assert.Error(t, err)
}

// execute runs the root command with args and returns its standard output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	t.Setenv("LLPROV_CONFIG", filepath.Join(home, "absent.toml"))
	t.Cleanup(func() {
		overrides = config.Config{}
		flagOptions = map[string]string{}
		flagConfig = ""
		provisionExport = ""
		rootCmd.SetOut(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestEnvCommand(t *testing.T) {
	key := env.SearchPathVar()
	t.Setenv(key, "/usr/lib")
	dir := filepath.Join(t.TempDir(), ".X_c")

	out, err := execute(t, "env", "--install-dir", dir)
	require.NoError(t, err)

	want, err := env.ExportLine("sh", key, env.AppendPath("/usr/lib", dir))
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, "config", "--rev", "main-pinned", "-D", "BUILD_TESTING=ON", "--install-dir", "/opt/X")
	require.NoError(t, err)

	cfg, err := config.Decode(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Equal(t, "main-pinned", cfg.Source.Revision)
	assert.True(t, cfg.Build.Options["BUILD_TESTING"])
	assert.True(t, cfg.Build.Options["FAISS_ENABLE_C_API"])
	assert.Equal(t, "X", filepath.Base(cfg.InstallDir))
}

func TestConfigCommandRejectsInvalid(t *testing.T) {
	_, err := execute(t, "config", "--depth=-1", "--build-type", "Fast")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source.depth")
	assert.Contains(t, err.Error(), "build.build_type")
}

func TestCleanCommand(t *testing.T) {
	work := filepath.Join(t.TempDir(), "X")
	require.NoError(t, os.MkdirAll(filepath.Join(work, "build"), 0o755))

	_, err := execute(t, "clean", "--work-dir", work)
	require.NoError(t, err)
	_, err = os.Stat(work)
	assert.True(t, os.IsNotExist(err))

	_, err = execute(t, "clean", "--work-dir", work)
	assert.NoError(t, err)
}

func TestProvisionRejectsUnknownShellFirst(t *testing.T) {
	work := filepath.Join(t.TempDir(), "X")

	_, err := execute(t, "provision", "file:///nonexistent/X.git@v1.0.0",
		"--work-dir", work, "--export", "bash5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported shell "bash5"`)

	_, err = os.Stat(work)
	assert.True(t, os.IsNotExist(err), "nothing is fetched when --export is invalid")
}
