package internal

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goplus/llprov/internal/config"
	"github.com/goplus/llprov/internal/env"
)

var flagConfig string

// overrides holds the command line values that take precedence over the
// configuration file.
var overrides config.Config

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVarP(&flagConfig, "config", "c", "", "Configuration file (default $LLPROV_CONFIG or <user config dir>/llprov/config.toml)")
	f.StringVar(&overrides.Project, "project", "", "Project name, used to derive ~/.<project>_c")
	f.StringVar(&overrides.WorkDir, "work-dir", "", "Directory for the source and build tree")
	f.StringVar(&overrides.InstallDir, "install-dir", "", "Directory receiving the shared libraries")
	f.StringVar(&overrides.Source.URL, "url", "", "Repository URL")
	f.StringVar(&overrides.Source.Revision, "rev", "", "Tag, branch or commit to build")
	f.IntVar(&overrides.Source.Depth, "depth", 0, "Clone depth")
	f.StringVar(&overrides.Build.Target, "target", "", "Build target")
	f.StringVar(&overrides.Build.BuildType, "build-type", "", "Build type (Debug or Release)")
	f.StringVar(&overrides.Build.Generator, "generator", "", "CMake generator")
	f.IntVarP(&overrides.Build.Jobs, "jobs", "j", 0, "Parallel build jobs")
	f.StringToStringVarP(&flagOptions, "option", "D", nil, "Build option NAME=ON|OFF, may be repeated")
}

var flagOptions map[string]string

// loadConfig reads the configuration file, applies command line overrides
// and resolves and validates the result.
func loadConfig() (config.Config, error) {
	path, required := flagConfig, flagConfig != ""
	if path == "" {
		p, err := env.ConfigFile()
		if err == nil {
			path = p
		}
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return config.Config{}, err
	}

	o := overrides
	if len(flagOptions) > 0 {
		o.Build.Options = make(map[string]bool, len(flagOptions))
		for k, v := range flagOptions {
			b, err := parseOption(v)
			if err != nil {
				return config.Config{}, err
			}
			o.Build.Options[k] = b
		}
	}
	cfg.Merge(o)

	if err := cfg.Resolve(); err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func parseOption(v string) (bool, error) {
	switch strings.ToUpper(v) {
	case "ON", "TRUE", "YES", "1":
		return true, nil
	case "OFF", "FALSE", "NO", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid option value %q, want ON or OFF", v)
}

// parseSourceArg splits "url@revision". The revision is only split off when
// it cannot be part of the URL, so scp-like URLs such as
// git@github.com:org/repo.git are kept whole.
func parseSourceArg(arg string) (url, rev string) {
	i := strings.LastIndexByte(arg, '@')
	if i <= 0 {
		return arg, ""
	}
	rev = arg[i+1:]
	if strings.ContainsAny(rev, "/:") {
		return arg, ""
	}
	return arg[:i], rev
}
