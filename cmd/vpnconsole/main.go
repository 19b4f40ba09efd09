package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/vpnconsole/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("vpnconsole - OpenVPN Web Console\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultDBPath := filepath.Join(home, ".local", "share", "vpnconsole", "logs.duckdb")

	v := viper.New()
	v.SetEnvPrefix("VPNCONSOLE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("api-addr", defaultAPIAddr)
	v.SetDefault("log-path", defaultLogPath)
	v.SetDefault("db-path", defaultDBPath)
	v.SetDefault("service-name", defaultServiceName)
	v.SetDefault("config-dir", defaultConfigDir)
	v.SetDefault("config-file", defaultConfigFile)
	v.SetDefault("status-file", defaultStatusFile)
	v.SetDefault("management-addr", defaultManagementAddr)
	v.SetDefault("backup-dir", defaultBackupDir)
	v.SetDefault("backup-keep", defaultBackupKeep)
	v.SetDefault("backup-interval", 0) // periodic backups off by default
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("tail-interval", defaultTailInterval)
	v.SetDefault("log-retention-rows", defaultRetentionRows)
	v.SetDefault("prune-interval", defaultPruneInterval)
	v.SetDefault("log-level", "info")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "vpnconsole", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	// Expand ~ in db-path
	if strings.HasPrefix(cfg.DBPath, "~/") {
		cfg.DBPath = filepath.Join(home, cfg.DBPath[2:])
	}

	return cfg, nil
}
