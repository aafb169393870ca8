package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "wzpatch",
	Short: "Extract, edit and patch WZSound audio records",
	Long: `wzpatch splits the WZSound sound archive into indexed containers, extracts
the records chosen by instruction documents, packs them into a container for
editing, and turns the edits into a patch that can be applied to pristine
archives.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .wzpatch.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("ui", "auto", "progress display: auto, tui, plain or log")
	rootCmd.PersistentFlags().StringP("project", "p", "", "project name")
	rootCmd.PersistentFlags().String("work-dir", "", "work directory holding ProgramData, Indexes and Projects")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("ui", rootCmd.PersistentFlags().Lookup("ui"))
	_ = viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".wzpatch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("WZPATCH")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()

	// An empty flag must not mask the configured work_dir.
	if wd, _ := rootCmd.PersistentFlags().GetString("work-dir"); wd != "" {
		viper.Set("work_dir", wd)
	}
}
