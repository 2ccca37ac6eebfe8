package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pders01/schedule-context/internal/config"
)

var (
	cfgFile   string
	storePath string
)

var rootCmd = &cobra.Command{
	Use:   "schedctx",
	Short: "Versioned conference schedules with release diffs",
	Long: `schedctx keeps a conference schedule as a series of snapshots:
  - one editable work-in-progress (WIP) schedule per event
  - immutable, named releases frozen from the WIP
  - per-release change sets (new, canceled and moved talks)
  - room and speaker availability windows

Releases can be rolled back with unfreeze without losing WIP work on
talks the release never contained.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/schedctx/config.toml)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "database directory (overrides store.path)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := config.DefaultConfigDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		viper.AddConfigPath(configDir)
		viper.SetConfigType("toml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("SCHEDCTX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	config.SetDefaults(viper.GetViper())
	if storePath != "" {
		viper.Set(config.KeyStorePath, storePath)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
