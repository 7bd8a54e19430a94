package internal

import (
	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/llprov/internal/pipeline"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the work tree left by a failed run",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := pipeline.Cleanup(cfg.WorkDir); err != nil {
		return &pipeline.Error{Stage: pipeline.StageCleanup, Err: err}
	}
	log.Infof("removed %s", cfg.WorkDir)
	return nil
}
