// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package account manages Steam Desktop Authenticator credential files.
//
// Each account is one JSON maFile in the accounts directory, named
// <account_name>.maFile. The store reads the handful of fields sam needs
// (shared_secret, identity_secret, account_name, the SteamID) and keeps
// everything else untouched when it rewrites a file.
//
// # Key Types
//
//   - Account: Parsed maFile with status and SteamID
//   - Store: Directory-backed set with import, export and remove
//   - Watcher: fsnotify watcher that reports debounced maFile changes
//
// # Usage
//
//	store, err := account.NewStore(cfg.Storage.AccountsDir, logger)
//	accounts, err := store.LoadAll()
//	for _, acc := range accounts {
//	    code, err := steamguard.GenerateCode(acc.SharedSecret, time.Now())
//	    ...
//	}
package account
