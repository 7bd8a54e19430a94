package env

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// InstallDir returns the per-user directory that receives the staged
// libraries of project: <home>/.<project>_c.
func InstallDir(project string) (string, error) {
	if project == "" {
		return "", fmt.Errorf("empty project name")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "."+project+"_c"), nil
}

// ConfigFile returns the default location of the configuration file.
// LLPROV_CONFIG takes precedence when set.
func ConfigFile() (string, error) {
	if p := strings.TrimSpace(os.Getenv("LLPROV_CONFIG")); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "llprov", "config.toml"), nil
}
