package env

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// SearchPathVar returns the environment variable the dynamic linker of the
// host consults for shared libraries.
func SearchPathVar() string {
	return searchPathVar(runtime.GOOS)
}

func searchPathVar(goos string) string {
	switch goos {
	case "darwin":
		return "DYLD_LIBRARY_PATH"
	case "windows":
		return "PATH"
	default:
		return "LD_LIBRARY_PATH"
	}
}

// AppendPath returns current with dir appended as the last entry.
// Existing entries are kept in order. If dir is already present current is
// returned unchanged, so repeated registration is a no-op.
func AppendPath(current, dir string) string {
	if Contains(current, dir) {
		return current
	}
	if current == "" {
		return dir
	}
	return current + string(filepath.ListSeparator) + dir
}

// Contains reports whether the path list contains dir.
func Contains(list, dir string) bool {
	want := filepath.Clean(dir)
	for _, p := range filepath.SplitList(list) {
		if p != "" && filepath.Clean(p) == want {
			return true
		}
	}
	return false
}

// ExportLine renders a command that sets key to value in the given shell.
// Supported shells are "sh" (also bash, zsh) and "fish".
func ExportLine(shell, key, value string) (string, error) {
	switch shell {
	case "sh", "bash", "zsh", "":
		return fmt.Sprintf("export %s=%s", key, shQuote(value)), nil
	case "fish":
		parts := filepath.SplitList(value)
		for i, p := range parts {
			parts[i] = shQuote(p)
		}
		return fmt.Sprintf("set -gx %s %s", key, strings.Join(parts, " ")), nil
	default:
		return "", fmt.Errorf("unsupported shell %q", shell)
	}
}

func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
