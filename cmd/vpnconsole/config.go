package main

import (
	"time"

	"github.com/vpntools/vpnconsole/internal/model"
)

const (
	defaultAPIAddr        = "0.0.0.0:5000"
	defaultLogPath        = "/var/log/openvpn/openvpn.log"
	defaultServiceName    = "openvpn@server"
	defaultConfigDir      = "/etc/openvpn"
	defaultConfigFile     = "/etc/openvpn/server.conf"
	defaultStatusFile     = "/var/log/openvpn/status.log"
	defaultManagementAddr = "127.0.0.1:7505"
	defaultBackupDir      = "/etc/openvpn/backups"
	defaultBackupKeep     = 24
	defaultQueryTimeout   = 30 * time.Second
	defaultTailInterval   = model.DefaultTailInterval
	defaultRetentionRows  = 200_000
	defaultPruneInterval  = time.Hour
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	APIAddr        string        `mapstructure:"api-addr"`
	LogPath        string        `mapstructure:"log-path"`
	DBPath         string        `mapstructure:"db-path"`
	ServiceName    string        `mapstructure:"service-name"`
	ConfigDir      string        `mapstructure:"config-dir"`
	ConfigFile     string        `mapstructure:"config-file"`
	StatusFile     string        `mapstructure:"status-file"`
	ManagementAddr string        `mapstructure:"management-addr"`
	BackupDir      string        `mapstructure:"backup-dir"`
	BackupKeep     int           `mapstructure:"backup-keep"`
	BackupInterval time.Duration `mapstructure:"backup-interval"`
	QueryTimeout   time.Duration `mapstructure:"query-timeout"`
	TailInterval   time.Duration `mapstructure:"tail-interval"`
	RetentionRows  int64         `mapstructure:"log-retention-rows"`
	PruneInterval  time.Duration `mapstructure:"prune-interval"`
	LogLevel       string        `mapstructure:"log-level"`
	ConfigPath     string        `mapstructure:"-"` // not from config file
}
