package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/vpntools/vpnconsole/internal/model"
)

const (
	defaultServerURL = "http://127.0.0.1:5000"
	defaultLogBuffer = model.DefaultLogBuffer
)

// cliConfig is the TUI client configuration.
type cliConfig struct {
	ServerURL string `mapstructure:"server-url"`
	LogBuffer int    `mapstructure:"log-buffer"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	v := viper.New()
	v.SetEnvPrefix("VPNCONSOLE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("server-url", defaultServerURL)
	v.SetDefault("log-buffer", defaultLogBuffer)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, err
		}
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
	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	return cfg, nil
}
