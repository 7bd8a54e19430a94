package internal

import (
	"os"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"

	"github.com/goplus/llprov/internal/pipeline"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "llprov",
	Short: "llprov provisions prebuilt native libraries",
	Long: `llprov fetches a native library at a pinned revision, builds one of its
targets and installs the resulting shared libraries into ~/.<project>_c.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := log.Linfo
		if verbose {
			level = log.Ldebug
		}
		log.SetOutputLevel(level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	addConfigFlags(rootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(pipeline.ExitCode(err))
	}
}
