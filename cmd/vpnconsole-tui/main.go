package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vpntools/vpnconsole/internal/apiclient"
	"github.com/vpntools/vpnconsole/internal/stream"
	"github.com/vpntools/vpnconsole/internal/tui"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var serverURL string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/vpnconsole/config.yml)")
	flag.StringVar(&serverURL, "server", "", "override console server URL")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("vpnconsole-tui - OpenVPN Console Client\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if serverURL != "" {
		cfg.ServerURL = strings.TrimRight(serverURL, "/")
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	client := apiclient.New(cfg.ServerURL, nil)

	// The stream client carries no timeout; the SSE connection stays
	// open indefinitely.
	manager := stream.NewManager(cfg.ServerURL, nil)

	logsPage := tui.NewLogsPage(manager, cfg.LogBuffer)
	statusPage := tui.NewStatusPage(client)
	app := tui.NewApp(logsPage, statusPage)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	logsPage.Close()
	return nil
}

// configureRuntimeLogger sends the standard logger to a state-dir file
// so stray log output never corrupts the alternate screen.
func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "vpnconsole")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}

	f, err := os.OpenFile(filepath.Join(logDir, "tui.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(io.Discard)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}
