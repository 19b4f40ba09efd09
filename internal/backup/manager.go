package backup

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultKeepLast = 24
	archivePrefix   = "openvpn_config_"
	archiveSuffix   = ".tar.gz"
)

// Config holds backup settings.
type Config struct {
	// SourceDir is the OpenVPN configuration directory to archive.
	SourceDir string
	// LocalDir receives the tar.gz snapshots.
	LocalDir string
	// KeepLast bounds how many snapshots are retained.
	KeepLast int
}

// Manager creates tar.gz snapshots of the configuration directory and
// prunes old ones.
type Manager struct {
	cfg Config
	now func() time.Time
}

// NewManager validates the config and prepares the backup directory.
func NewManager(cfg Config) (*Manager, error) {
	if strings.TrimSpace(cfg.SourceDir) == "" {
		return nil, fmt.Errorf("backup: source-dir is required")
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, fmt.Errorf("backup: local-dir is required")
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create local-dir: %w", err)
	}
	return &Manager{cfg: cfg, now: time.Now}, nil
}

// RunOnce creates one snapshot, prunes old local copies and returns the
// archive path.
func (m *Manager) RunOnce() (string, error) {
	fileName := archivePrefix + m.now().Format("20060102_150405") + archiveSuffix
	localPath := filepath.Join(m.cfg.LocalDir, fileName)

	if err := archiveDir(m.cfg.SourceDir, localPath, m.cfg.LocalDir); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	log.WithField("path", localPath).Info("backup: created snapshot")

	if err := pruneLocalBackups(m.cfg.LocalDir, m.cfg.KeepLast); err != nil {
		return "", fmt.Errorf("prune local backups: %w", err)
	}
	return localPath, nil
}

// archiveDir writes a gzipped tarball of srcDir. Symlinks and special
// files are skipped; certificate material keeps its file modes.
func archiveDir(srcDir, dstPath, excludeDir string) error {
	out, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	excludeDir = filepath.Clean(excludeDir)

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// The backup directory may live inside the config directory.
		if filepath.Clean(path) == excludeDir {
			return filepath.SkipDir
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
}

func pruneLocalBackups(localDir string, keepLast int) error {
	if keepLast <= 0 {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(localDir, archivePrefix+"*"+archiveSuffix))
	if err != nil {
		return err
	}
	if len(matches) <= keepLast {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		// timestamp is embedded in filename and lexical sort matches chronology
		return matches[i] > matches[j]
	})

	for _, oldPath := range matches[keepLast:] {
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
