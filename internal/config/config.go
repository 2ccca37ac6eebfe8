package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Keys and defaults of every setting
const (
	KeyStorePath         = "store.path"
	KeyStoreInMemory     = "store.in_memory"
	KeyWIPTTL            = "cache.wip_ttl"
	KeyReleasedTTL       = "cache.released_ttl"
	KeyUnreleasedTTL     = "cache.unreleased_ttl"
	KeyReservedNames     = "freeze.reserved_names"
	KeyEventTimezone     = "event.timezone"
	KeyLogLevel          = "log.level"
	KeyLogDevelopment    = "log.development"
	KeyNotifyWorkers     = "notify.workers"
	KeyDaemonRefresh     = "daemon.refresh"
	KeyDaemonGC          = "daemon.gc"
	KeyDaemonGCRatio     = "daemon.gc_discard_ratio"
	KeyDaemonMetricsAddr = "daemon.metrics_addr"
)

// SetDefaults registers the default value of every setting
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyStorePath, DefaultStorePath())
	v.SetDefault(KeyStoreInMemory, false)
	v.SetDefault(KeyWIPTTL, 60*time.Second)
	v.SetDefault(KeyReleasedTTL, 600*time.Second)
	v.SetDefault(KeyUnreleasedTTL, 24*time.Hour)
	v.SetDefault(KeyReservedNames, []string{"wip", "latest"})
	v.SetDefault(KeyEventTimezone, "UTC")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogDevelopment, false)
	v.SetDefault(KeyNotifyWorkers, 4)
	v.SetDefault(KeyDaemonRefresh, "*/5 * * * *")
	v.SetDefault(KeyDaemonGC, "@hourly")
	v.SetDefault(KeyDaemonGCRatio, 0.5)
	v.SetDefault(KeyDaemonMetricsAddr, "")
}

// DefaultStorePath returns $HOME/.local/share/schedctx/db
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".schedctx", "db")
	}
	return filepath.Join(home, ".local", "share", "schedctx", "db")
}

// DefaultConfigDir returns $HOME/.config/schedctx
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "schedctx"), nil
}

// GetStorePath returns the database directory
func GetStorePath() string {
	return viper.GetString(KeyStorePath)
}

// GetStoreInMemory reports whether the store should live in memory only
func GetStoreInMemory() bool {
	return viper.GetBool(KeyStoreInMemory)
}

// GetWIPTTL returns how long a WIP diff stays cached
func GetWIPTTL() time.Duration {
	return viper.GetDuration(KeyWIPTTL)
}

// GetReleasedTTL returns how long a released diff stays cached
func GetReleasedTTL() time.Duration {
	return viper.GetDuration(KeyReleasedTTL)
}

// GetUnreleasedTTL returns how long the unreleased flag stays cached
func GetUnreleasedTTL() time.Duration {
	return viper.GetDuration(KeyUnreleasedTTL)
}

// GetReservedNames returns the version names a freeze may not use
func GetReservedNames() []string {
	return viper.GetStringSlice(KeyReservedNames)
}

// GetEventTimezone returns the timezone given to new events
func GetEventTimezone() string {
	return viper.GetString(KeyEventTimezone)
}

// GetLogLevel returns the log level name
func GetLogLevel() string {
	return viper.GetString(KeyLogLevel)
}

// GetLogDevelopment reports whether to log in console format
func GetLogDevelopment() bool {
	return viper.GetBool(KeyLogDevelopment)
}

// GetNotifyWorkers returns the number of concurrent release handlers
func GetNotifyWorkers() int {
	return viper.GetInt(KeyNotifyWorkers)
}

// GetDaemonRefresh returns the cron spec of the WIP diff warm-up
func GetDaemonRefresh() string {
	return viper.GetString(KeyDaemonRefresh)
}

// GetDaemonGC returns the cron spec of value log garbage collection
func GetDaemonGC() string {
	return viper.GetString(KeyDaemonGC)
}

// GetDaemonGCRatio returns the discard ratio used for garbage collection
func GetDaemonGCRatio() float64 {
	return viper.GetFloat64(KeyDaemonGCRatio)
}

// GetDaemonMetricsAddr returns the address for the metrics endpoint, or ""
func GetDaemonMetricsAddr() string {
	return viper.GetString(KeyDaemonMetricsAddr)
}
