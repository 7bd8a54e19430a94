package internal

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goplus/llprov/internal/env"
)

var envShell string

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Print the search path registration for the installation directory",
	Long: `Env prints a shell command that appends the installation directory to the
dynamic library search path, e.g.

	eval "$(llprov env)"`,
	Args: cobra.NoArgs,
	RunE: runEnv,
}

func init() {
	envCmd.Flags().StringVar(&envShell, "export", "sh", "Shell syntax (sh, fish)")
	rootCmd.AddCommand(envCmd)
}

func runEnv(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	key := env.SearchPathVar()
	line, err := env.ExportLine(envShell, key, env.AppendPath(os.Getenv(key), cfg.InstallDir))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
	return nil
}
