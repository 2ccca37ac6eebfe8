package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/pders01/schedule-context/internal/config"
)

var initConfigDir string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the default configuration and database",
	Long: `Create configuration and storage for schedctx.

This command:
  - Creates a default config file if it doesn't exist
  - Creates the database directory

Run this once per machine.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initConfigDir, "config-dir", "", "Directory for config.toml (default is $HOME/.config/schedctx)")
}

type fileConfig struct {
	Store  storeSection  `toml:"store"`
	Cache  cacheSection  `toml:"cache"`
	Freeze freezeSection `toml:"freeze"`
	Event  eventSection  `toml:"event"`
	Log    logSection    `toml:"log"`
	Notify notifySection `toml:"notify"`
	Daemon daemonSection `toml:"daemon"`
}

type storeSection struct {
	Path string `toml:"path"`
}

type cacheSection struct {
	WIPTTL        string `toml:"wip_ttl"`
	ReleasedTTL   string `toml:"released_ttl"`
	UnreleasedTTL string `toml:"unreleased_ttl"`
}

type freezeSection struct {
	ReservedNames []string `toml:"reserved_names"`
}

type eventSection struct {
	Timezone string `toml:"timezone"`
}

type logSection struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

type notifySection struct {
	Workers int `toml:"workers"`
}

type daemonSection struct {
	Refresh string `toml:"refresh"`
	GC      string `toml:"gc"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Store: storeSection{Path: config.GetStorePath()},
		Cache: cacheSection{
			WIPTTL:        config.GetWIPTTL().String(),
			ReleasedTTL:   config.GetReleasedTTL().String(),
			UnreleasedTTL: config.GetUnreleasedTTL().String(),
		},
		Freeze: freezeSection{ReservedNames: config.GetReservedNames()},
		Event:  eventSection{Timezone: config.GetEventTimezone()},
		Log:    logSection{Level: config.GetLogLevel(), Development: config.GetLogDevelopment()},
		Notify: notifySection{Workers: config.GetNotifyWorkers()},
		Daemon: daemonSection{Refresh: config.GetDaemonRefresh(), GC: config.GetDaemonGC()},
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir := initConfigDir
	if configDir == "" {
		dir, err := config.DefaultConfigDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = dir
	}
	configPath := filepath.Join(configDir, "config.toml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		f, err := os.OpenFile(configPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		encErr := toml.NewEncoder(f).Encode(defaultFileConfig())
		if err := f.Close(); encErr == nil {
			encErr = err
		}
		if encErr != nil {
			return fmt.Errorf("failed to write config file: %w", encErr)
		}

		fmt.Printf("✓ Created default config: %s\n", configPath)
	} else {
		fmt.Printf("Config already exists: %s\n", configPath)
	}

	path := config.GetStorePath()
	if err := os.MkdirAll(path, 0750); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	fmt.Printf("✓ Database directory: %s\n", path)

	fmt.Println("\n✓ schedctx initialized successfully!")
	fmt.Println("  You can now use: schedctx event create <id>")

	return nil
}
