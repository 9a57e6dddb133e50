// Package cmd implements the rigup CLI commands.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	logFile string

	appVersion = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "rigup",
	Short: "rigup brings a fresh project checkout to a runnable state",
	Long: `rigup bootstraps a development environment by running named stages:
toolchain install, backend configuration, signing-key generation, git
initialization, CI scaffolding, and remote secret provisioning. Every stage
checks whether its work is already done, so a partially failed run can be
re-run safely.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "rigup.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", filepath.Join(".rigup", "run.log"), "append-only run log file")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(stagesCmd)
}

func initConfig() {
	viper.SetEnvPrefix("RIGUP")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// SetVersionInfo sets the version and commit for display.
func SetVersionInfo(version, commit string) {
	appVersion = version
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("rigup %s (commit: %s)\n", version, commit))
}

// Execute runs the root command and exits with the documented codes:
// 0 aggregate success, 1 when any stage failed or was aborted, 2 for an
// invalid invocation (unknown stage, bad registry, malformed config).
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errRunFailed) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
