// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/war100ck/Steam-Account-Manager/internal/logging"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// IDPrefix starts every backup directory name.
	IDPrefix = "backup_"

	// IDLayout is the timestamp part of a backup ID.
	IDLayout = "20060102_150405"

	// ManifestName is the manifest file inside each backup directory.
	ManifestName = "manifest.json"

	// DefaultMaxBackups is how many backups retention keeps.
	DefaultMaxBackups = 20

	// ManifestVersion is written into new manifests.
	ManifestVersion = 1

	avatarsDirName = "avatars"
	maFileExt      = ".maFile"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBackupNotFound is returned for unknown backup IDs.
	ErrBackupNotFound = errors.New("backup not found")

	// ErrInvalidBackupID is returned for IDs that are not backup directory names.
	ErrInvalidBackupID = errors.New("invalid backup ID")

	// ErrNothingToBackup is returned when the accounts directory has no maFiles.
	ErrNothingToBackup = errors.New("no maFiles to back up")

	// ErrIntegrity is returned when a backup's files do not match its manifest.
	ErrIntegrity = errors.New("backup integrity check failed")
)

// =============================================================================
// MANIFEST
// =============================================================================

// FileEntry is one file in a backup. Path is relative to the accounts
// directory and uses forward slashes.
type FileEntry struct {
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Checksum string `json:"sha256,omitempty"`
}

// Manifest describes one backup.
type Manifest struct {
	Version   int         `json:"version"`
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Accounts  int         `json:"accounts"`
	Files     []FileEntry `json:"files"`

	// Legacy marks backups without a manifest, which cannot be verified.
	Legacy bool `json:"-"`
}

// TotalSize sums the file sizes.
func (m *Manifest) TotalSize() int64 {
	return lo.SumBy(m.Files, func(f FileEntry) int64 { return f.Size })
}

// =============================================================================
// MANAGER
// =============================================================================

// Manager creates and restores backups of an accounts directory.
type Manager struct {
	mu          sync.Mutex
	accountsDir string
	backupsDir  string
	maxBackups  int
	now         func() time.Time
	log         *logrus.Entry
}

// NewManager backs up accountsDir into backupsDir.
func NewManager(accountsDir, backupsDir string, logger *logrus.Logger) *Manager {
	return &Manager{
		accountsDir: accountsDir,
		backupsDir:  backupsDir,
		maxBackups:  DefaultMaxBackups,
		now:         time.Now,
		log:         logging.Component(logger, "backup"),
	}
}

// WithMaxBackups sets retention. Zero keeps every backup.
func (m *Manager) WithMaxBackups(n int) *Manager {
	if n >= 0 {
		m.maxBackups = n
	}
	return m
}

// WithClock replaces time.Now, for tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Dir returns the backups directory.
func (m *Manager) Dir() string {
	return m.backupsDir
}

// Create copies every maFile and cached avatar into a new
// backup_YYYYMMDD_HHMMSS directory. The directory appears only once all
// files and the manifest are written.
func (m *Manager) Create() (*Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	opID := uuid.New().String()
	log := m.log.WithField("op", opID)

	files, err := m.collect()
	if err != nil {
		return nil, err
	}
	accounts := lo.CountBy(files, func(rel string) bool { return strings.HasSuffix(rel, maFileExt) })
	if accounts == 0 {
		return nil, ErrNothingToBackup
	}

	if err := os.MkdirAll(m.backupsDir, util.PrivateDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}

	created := m.now()
	id := m.uniqueID(created)

	staging, err := os.MkdirTemp(m.backupsDir, ".staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	manifest := &Manifest{
		Version:   ManifestVersion,
		ID:        id,
		CreatedAt: created,
		Accounts:  accounts,
	}
	for _, rel := range files {
		src := filepath.Join(m.accountsDir, filepath.FromSlash(rel))
		sum, err := fileChecksum(src)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		n, err := util.CopyFile(src, filepath.Join(staging, filepath.FromSlash(rel)), util.PrivateFilePerm)
		if err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", rel, err)
		}
		manifest.Files = append(manifest.Files, FileEntry{Path: rel, Size: n, Checksum: sum})
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := util.AtomicWriteFile(filepath.Join(staging, ManifestName), data, util.PrivateFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := os.Rename(staging, filepath.Join(m.backupsDir, id)); err != nil {
		return nil, fmt.Errorf("failed to finalize backup: %w", err)
	}

	log.WithFields(logrus.Fields{
		"backup_id": id,
		"accounts":  accounts,
		"files":     len(manifest.Files),
		"bytes":     manifest.TotalSize(),
	}).Info("backup created")

	if err := m.applyRetentionLocked(); err != nil {
		log.WithError(err).Warn("retention policy failed")
	}
	return manifest, nil
}

// List returns every backup, newest first.
func (m *Manager) List() ([]*Manifest, error) {
	entries, err := os.ReadDir(m.backupsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Manifest{}, nil
		}
		return nil, fmt.Errorf("failed to read backups directory: %w", err)
	}

	var out []*Manifest
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), IDPrefix) {
			continue
		}
		man, err := m.load(e.Name())
		if err != nil {
			m.log.WithError(err).WithField("backup_id", e.Name()).Warn("skipping unreadable backup")
			continue
		}
		out = append(out, man)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// Get loads one backup's manifest.
func (m *Manager) Get(id string) (*Manifest, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return m.load(id)
}

// Verify checks every file in the backup against its manifest checksum.
// Legacy backups only have their files' presence checked.
func (m *Manager) Verify(id string) (*Manifest, error) {
	man, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	var bad []string
	for _, f := range man.Files {
		path := filepath.Join(m.backupsDir, id, filepath.FromSlash(f.Path))
		if man.Legacy {
			if !util.FileExists(path) {
				bad = append(bad, f.Path+" (missing)")
			}
			continue
		}
		sum, err := fileChecksum(path)
		switch {
		case err != nil:
			bad = append(bad, f.Path+" (missing)")
		case sum != f.Checksum:
			bad = append(bad, f.Path+" (checksum mismatch)")
		}
	}
	if len(bad) > 0 {
		return man, fmt.Errorf("%w: %s", ErrIntegrity, strings.Join(bad, ", "))
	}
	return man, nil
}

// Restore verifies the backup, then writes its files into the accounts
// directory. Accounts not in the backup are left alone.
func (m *Manager) Restore(id string) (*Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	man, err := m.Verify(id)
	if err != nil {
		return nil, err
	}

	opID := uuid.New().String()
	for _, f := range man.Files {
		data, err := os.ReadFile(filepath.Join(m.backupsDir, id, filepath.FromSlash(f.Path)))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f.Path, err)
		}
		dest := filepath.Join(m.accountsDir, filepath.FromSlash(f.Path))
		if err := util.AtomicWriteFile(dest, data, util.PrivateFilePerm); err != nil {
			return nil, fmt.Errorf("failed to restore %s: %w", f.Path, err)
		}
	}

	m.log.WithFields(logrus.Fields{
		"op":        opID,
		"backup_id": id,
		"files":     len(man.Files),
	}).Info("backup restored")
	return man, nil
}

// Delete removes a backup.
func (m *Manager) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	path := filepath.Join(m.backupsDir, id)
	if !dirExists(path) {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	m.log.WithField("backup_id", id).Info("backup deleted")
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// collect lists maFiles and avatars relative to the accounts directory.
func (m *Manager) collect() ([]string, error) {
	entries, err := os.ReadDir(m.accountsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNothingToBackup
		}
		return nil, fmt.Errorf("failed to read accounts directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), maFileExt) {
			files = append(files, e.Name())
		}
	}

	avatars, err := os.ReadDir(filepath.Join(m.accountsDir, avatarsDirName))
	if err == nil {
		for _, e := range avatars {
			if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
				files = append(files, avatarsDirName+"/"+e.Name())
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// uniqueID returns the timestamp ID, suffixed when a backup from the same
// second already exists.
func (m *Manager) uniqueID(t time.Time) string {
	base := IDPrefix + t.Format(IDLayout)
	id := base
	for i := 2; dirExists(filepath.Join(m.backupsDir, id)); i++ {
		id = fmt.Sprintf("%s_%d", base, i)
	}
	return id
}

func (m *Manager) load(id string) (*Manifest, error) {
	dir := filepath.Join(m.backupsDir, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if os.IsNotExist(err) {
		return m.legacyManifest(id, info.ModTime())
	}
	if err != nil {
		return nil, err
	}

	var man Manifest
	if err := json.Unmarshal(data, &man); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	for _, f := range man.Files {
		if !safeRelPath(f.Path) {
			return nil, fmt.Errorf("invalid manifest: unsafe path %q", f.Path)
		}
	}
	man.ID = id
	return &man, nil
}

// legacyManifest describes a backup directory written without a manifest.
func (m *Manager) legacyManifest(id string, modTime time.Time) (*Manifest, error) {
	created := modTime
	if t, err := time.ParseInLocation(IDLayout, strings.TrimPrefix(id, IDPrefix), time.Local); err == nil {
		created = t
	}

	man := &Manifest{ID: id, CreatedAt: created, Legacy: true}
	root := filepath.Join(m.backupsDir, id)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		man.Files = append(man.Files, FileEntry{Path: rel, Size: info.Size()})
		if strings.HasSuffix(rel, maFileExt) && !strings.Contains(rel, "/") {
			man.Accounts++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return man, nil
}

func (m *Manager) applyRetentionLocked() error {
	if m.maxBackups <= 0 {
		return nil
	}
	all, err := m.List()
	if err != nil {
		return err
	}
	if len(all) <= m.maxBackups {
		return nil
	}

	var errs []error
	for _, old := range all[m.maxBackups:] {
		if err := os.RemoveAll(filepath.Join(m.backupsDir, old.ID)); err != nil {
			errs = append(errs, err)
			continue
		}
		m.log.WithField("backup_id", old.ID).Info("old backup removed")
	}
	return errors.Join(errs...)
}

func validateID(id string) error {
	if !strings.HasPrefix(id, IDPrefix) || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidBackupID, id)
	}
	return nil
}

// safeRelPath rejects manifest paths that would escape the accounts
// directory on restore.
func safeRelPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, `\`) {
		return false
	}
	for _, part := range strings.Split(p, "/") {
		if part == ".." || part == "" {
			return false
		}
	}
	return true
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
