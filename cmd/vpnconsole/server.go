package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vpntools/vpnconsole/internal/backup"
	"github.com/vpntools/vpnconsole/internal/httpserver"
	"github.com/vpntools/vpnconsole/internal/logstore"
	"github.com/vpntools/vpnconsole/internal/logtail"
	"github.com/vpntools/vpnconsole/internal/vpn"
)

// runServer starts the log pipeline and the HTTP API.
func runServer(cfg appConfig) error {
	configureLogger(cfg.LogLevel)

	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}
	store, err := logstore.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("opening log store: %w", err)
	}
	defer store.Close()

	manager := vpn.NewManager(vpn.Config{
		ServiceName:    cfg.ServiceName,
		ConfigDir:      cfg.ConfigDir,
		StatusFile:     cfg.StatusFile,
		ManagementAddr: cfg.ManagementAddr,
	}, nil)

	backups, err := backup.NewManager(backup.Config{
		SourceDir: cfg.ConfigDir,
		LocalDir:  cfg.BackupDir,
		KeepLast:  cfg.BackupKeep,
	})
	if err != nil {
		return fmt.Errorf("initializing backups: %w", err)
	}

	hub := logtail.NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tailer := logtail.NewTailer(ctx, cfg.LogPath, logtail.TailConfig{
		Interval: cfg.TailInterval,
	})
	defer tailer.Stop()

	api := httpserver.NewServer(cfg.APIAddr, httpserver.Deps{
		Archive:    store,
		Hub:        hub,
		Service:    manager,
		Backups:    backups,
		ConfigPath: cfg.ConfigFile,
	})
	if err := api.Start(); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer api.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	printStartupBanner(cfg)

	g, gctx := errgroup.WithContext(ctx)

	// Log pipeline: tailed batches land in the store and fan out to
	// stream subscribers.
	g.Go(func() error {
		for batch := range tailer.Batches() {
			if err := store.InsertBatch(batch); err != nil {
				log.WithError(err).Warn("failed to persist log batch")
			}
			hub.Publish(batch)
		}
		return nil
	})

	// Retention pruning keeps the store bounded.
	if cfg.RetentionRows > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.PruneInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if n, err := store.Prune(cfg.RetentionRows); err != nil {
						log.WithError(err).Warn("retention prune failed")
					} else if n > 0 {
						log.WithField("rows", n).Debug("pruned old log records")
					}
				}
			}
		})
	}

	// Optional periodic backups alongside the on-demand endpoint.
	if cfg.BackupInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.BackupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if path, err := backups.RunOnce(); err != nil {
						log.WithError(err).Warn("periodic backup failed")
					} else {
						log.WithField("path", path).Info("periodic backup written")
					}
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("server exited with error")
	}

	cancel()
	signal.Stop(sigCh)
	return nil
}

func configureLogger(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

func printStartupBanner(cfg appConfig) {
	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00CAC7")).
		Bold(true).
		Render("vpnconsole")

	fmt.Printf("%s - OpenVPN Web Console\n", title)
	fmt.Printf("  API:       http://%s\n", cfg.APIAddr)
	fmt.Printf("  Log file:  %s\n", cfg.LogPath)
	fmt.Printf("  Service:   %s\n", cfg.ServiceName)
	fmt.Printf("  Database:  %s\n", cfg.DBPath)
	if cfg.ConfigPath != "" {
		fmt.Printf("  Config:    %s\n", cfg.ConfigPath)
	}
}
