// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package account

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/war100ck/Steam-Account-Manager/internal/logging"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrAccountNotFound is returned when no account matches a lookup.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists is returned by Import when the target file exists
	// and force is not set.
	ErrAccountExists = errors.New("account already exists")

	// ErrInvalidMaFile is returned for files that are not a JSON object.
	ErrInvalidMaFile = errors.New("invalid maFile")

	// ErrInvalidAccountName is returned when account_name cannot be used
	// as a file name.
	ErrInvalidAccountName = errors.New("account name cannot be used as a file name")
)

// unknownAccountName names imports that carry no account_name.
const unknownAccountName = "unknown"

// =============================================================================
// STORE
// =============================================================================

// Store manages the maFiles in one directory. Safe for concurrent use.
type Store struct {
	dir string
	log *logrus.Entry

	mu       sync.RWMutex
	accounts map[string]*Account
}

// NewStore opens dir, creating it with owner-only permissions if needed.
func NewStore(dir string, logger *logrus.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("accounts directory not set")
	}
	if err := os.MkdirAll(dir, util.PrivateDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create accounts directory: %w", err)
	}
	return &Store{
		dir:      dir,
		log:      logging.Component(logger, "store"),
		accounts: make(map[string]*Account),
	}, nil
}

// Dir returns the accounts directory.
func (s *Store) Dir() string {
	return s.dir
}

// LoadAll reads every *.maFile in the directory and replaces the in-memory
// set. Unreadable files are skipped with a warning. A SteamID found in the
// session but not stored at top level is written back to the file.
// Accounts are returned sorted by name.
func (s *Store) LoadAll() ([]*Account, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.replace(map[string]*Account{})
			return []*Account{}, nil
		}
		return nil, fmt.Errorf("failed to read accounts directory: %w", err)
	}

	loaded := make(map[string]*Account)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExt) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		acc, err := s.loadFile(path)
		if err != nil {
			s.log.WithError(err).WithField("file", entry.Name()).Warn("skipping unreadable maFile")
			continue
		}

		if acc.SteamID != "" && !acc.HasStoredSteamID() {
			acc.SetSteamID(acc.SteamID)
			if err := s.write(acc); err != nil {
				s.log.WithError(err).WithField("account", acc.Name()).Warn("failed to store extracted SteamID")
			} else {
				s.log.WithFields(logrus.Fields{"account": acc.Name(), "steamid": acc.SteamID}).Info("stored extracted SteamID")
			}
		}
		loaded[acc.ID] = acc
	}

	s.replace(loaded)
	s.log.WithField("count", len(loaded)).Debug("accounts loaded")
	return sortAccounts(lo.Values(loaded)), nil
}

// Accounts returns the accounts from the last LoadAll, sorted by name.
func (s *Store) Accounts() []*Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortAccounts(lo.Values(s.accounts))
}

// Get finds an account by file ID, account name (case-insensitive, after
// NFC normalization) or SteamID.
func (s *Store) Get(key string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if acc, ok := s.accounts[key]; ok {
		return acc, nil
	}
	want := norm.NFC.String(key)
	acc, ok := lo.Find(lo.Values(s.accounts), func(a *Account) bool {
		return strings.EqualFold(norm.NFC.String(a.AccountName), want) || (a.SteamID != "" && a.SteamID == key)
	})
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return acc, nil
}

// Import copies an external maFile into the store as
// <account_name>.maFile. An existing file is only replaced when force is
// set.
func (s *Store) Import(path string, force bool) (*Account, error) {
	acc, err := s.loadFile(path)
	if err != nil {
		return nil, err
	}

	// File names use NFC so the same name typed on another OS maps to
	// the same file.
	name := norm.NFC.String(acc.AccountName)
	if name == "" {
		name = unknownAccountName
	}
	if err := validateFileName(name); err != nil {
		return nil, err
	}

	acc.ID = name
	acc.Path = filepath.Join(s.dir, name+FileExt)
	if acc.SteamID != "" {
		acc.SetSteamID(acc.SteamID)
	}

	if !force && util.FileExists(acc.Path) {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, name)
	}
	if err := s.write(acc); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.accounts[acc.ID] = acc
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"account": name, "steamid": acc.SteamID, "source": path}).Info("imported maFile")
	return acc, nil
}

// Export writes the account to dest with 4-space indentation. When dest is
// a directory the file is named <id>.maFile inside it.
func (s *Store) Export(key, dest string) (string, error) {
	acc, err := s.Get(key)
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = filepath.Join(dest, acc.ID+FileExt)
	}

	data, err := acc.MarshalIndent()
	if err != nil {
		return "", fmt.Errorf("failed to encode maFile: %w", err)
	}
	if err := util.AtomicWriteFile(dest, data, util.PrivateFilePerm); err != nil {
		return "", fmt.Errorf("failed to export maFile: %w", err)
	}

	s.log.WithFields(logrus.Fields{"account": acc.Name(), "dest": dest}).Info("exported maFile")
	return dest, nil
}

// Remove deletes the account's file.
func (s *Store) Remove(key string) error {
	acc, err := s.Get(key)
	if err != nil {
		return err
	}

	if err := os.Remove(acc.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove maFile: %w", err)
	}

	s.mu.Lock()
	delete(s.accounts, acc.ID)
	s.mu.Unlock()

	s.log.WithField("account", acc.Name()).Info("removed account")
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (s *Store) loadFile(path string) (*Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	acc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	acc.Path = path
	acc.ID = strings.TrimSuffix(filepath.Base(path), FileExt)
	return acc, nil
}

func (s *Store) write(acc *Account) error {
	data, err := acc.MarshalIndent()
	if err != nil {
		return fmt.Errorf("failed to encode maFile: %w", err)
	}
	return util.AtomicWriteFile(acc.Path, data, util.PrivateFilePerm)
}

func (s *Store) replace(accounts map[string]*Account) {
	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
}

func sortAccounts(accounts []*Account) []*Account {
	sort.Slice(accounts, func(i, j int) bool {
		a, b := strings.ToLower(accounts[i].Name()), strings.ToLower(accounts[j].Name())
		if a != b {
			return a < b
		}
		return accounts[i].ID < accounts[j].ID
	})
	return accounts
}

// validateFileName rejects names that would escape the accounts directory.
func validateFileName(name string) error {
	if name == "." || name == ".." || strings.ContainsAny(name, `/\:`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidAccountName, name)
	}
	return nil
}
