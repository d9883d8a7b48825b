package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/BartoszJatczyszyn/journai/internal/connectivity"
	"github.com/BartoszJatczyszyn/journai/internal/remote"
	"github.com/BartoszJatczyszyn/journai/internal/storage"
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("server", "", "Remote entry store URL (overrides config)")
	rootCmd.PersistentFlags().String("data-dir", "", "Data directory (overrides config)")
	_ = viper.BindPFlag("server_url", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

// initConfig loads configuration from ~/.journai/config.yaml, the
// JOURNAI_* environment, and flags, in increasing precedence.
func initConfig() {
	viper.SetDefault("server_url", "http://localhost:8787")
	viper.SetDefault("data_dir", defaultDataDir())
	viper.SetDefault("debounce_ms", 1200)
	viper.SetDefault("dashboard_port", 8990)
	viper.SetDefault("probe_interval_s", 30)
	viper.SetDefault("flush_interval_s", 30)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultDataDir())

	viper.SetEnvPrefix("JOURNAI")
	viper.AutomaticEnv()

	// A missing config file is fine; defaults and env carry the day.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: failed to read config: %v\n", err)
		}
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".journai"
	}
	return filepath.Join(home, ".journai")
}

func dataDir() string {
	return viper.GetString("data_dir")
}

func serverURL() string {
	return viper.GetString("server_url")
}

func dbPath() string {
	return filepath.Join(dataDir(), "journai.db")
}

func spoolDir() string {
	return filepath.Join(dataDir(), "drafts")
}

func debounceInterval() time.Duration {
	return time.Duration(viper.GetInt("debounce_ms")) * time.Millisecond
}

func probeInterval() time.Duration {
	return time.Duration(viper.GetInt("probe_interval_s")) * time.Second
}

func flushInterval() time.Duration {
	return time.Duration(viper.GetInt("flush_interval_s")) * time.Second
}

// openStore opens the local SQLite store, creating the data directory
// as needed.
func openStore() (*storage.SQLiteStore, error) {
	store, err := storage.OpenSQLite(dbPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open local store at %s: %w", dbPath(), err)
	}
	return store, nil
}

// newClient creates the remote entry store client from configuration.
func newClient() remote.Client {
	return remote.NewHTTPClient(serverURL(), 15*time.Second)
}

// newMonitor creates a connectivity monitor without a probe. One-shot
// commands assume online and let the first request correct them.
func newMonitor(logger *log.Logger) *connectivity.Monitor {
	return connectivity.NewMonitor(nil, logger)
}

// serviceLogger builds a logger that writes both to stderr and to a
// rotated log file under the data directory.
func serviceLogger(prefix string) *log.Logger {
	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(dataDir(), "journai.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	return log.New(io.MultiWriter(os.Stderr, rotated), prefix, log.LstdFlags)
}

func quietLogger(prefix string) *log.Logger {
	return log.New(io.Discard, prefix, 0)
}
