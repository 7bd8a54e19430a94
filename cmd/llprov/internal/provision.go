package internal

import (
	"context"
	"fmt"
	"os"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/llprov/internal/env"
	"github.com/goplus/llprov/internal/pipeline"
	"github.com/goplus/llprov/internal/vcs"
)

var (
	provisionExport string
	provisionGit    string
	provisionCMake  string
)

var provisionCmd = &cobra.Command{
	Use:   "provision [url[@revision]]",
	Short: "Fetch, build and install the library",
	Long: `Provision fetches the configured source at its pinned revision, configures
and builds the configured target, copies the produced shared libraries into
the installation directory and removes the work tree.

On failure the work tree is kept so the build logs can be inspected.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().StringVar(&provisionExport, "export", "", "Print a line for the given shell (sh, fish) that sets the search path")
	provisionCmd.Flags().StringVar(&provisionGit, "git", "git", "git executable")
	provisionCmd.Flags().StringVar(&provisionCMake, "cmake", "cmake", "cmake executable")
	rootCmd.AddCommand(provisionCmd)
}

func runProvision(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		overrides.Source.URL, overrides.Source.Revision = parseSourceArg(args[0])
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	key := env.SearchPathVar()
	if provisionExport != "" {
		if _, err := env.ExportLine(provisionExport, key, ""); err != nil {
			return err
		}
	}

	ctx := context.Background()
	stdout, stderr := os.Stdout, os.Stderr
	p := pipeline.New(cfg,
		pipeline.WithVCS(vcs.NewGitVCS(vcs.WithGitPath(provisionGit), vcs.WithOutput(stdout, stderr))),
		pipeline.WithCMakePath(provisionCMake),
		pipeline.WithOutput(stdout, stderr),
	)

	res, err := p.Run(ctx, os.Getenv(key))
	if err != nil {
		log.Debugf("stopped in state %s", res.State)
		return err
	}
	if err := os.Setenv(key, res.SearchPath); err != nil {
		log.Warnf("registration failed: set %s: %v", key, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "installed %d libraries to %s\n", len(res.Staged), cfg.InstallDir)
	if provisionExport != "" {
		line, err := env.ExportLine(provisionExport, key, res.SearchPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, line)
	}
	return nil
}
