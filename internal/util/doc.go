// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the store, the CLI and the TUI.
//
// # Key Functions
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//   - CopyFile: Atomic copy used by backups and restore
//
// Display:
//   - TruncateWidth, PadRight: Column-aware truncation (go-runewidth)
//   - Mask: Hide secrets except for a short suffix
//   - FormatAge, FormatBytes, FormatCountdown: Human readable values
//
// # Usage
//
//	err := util.AtomicWriteFile(path, data, util.PrivateFilePerm)
//	cell := util.PadRight(account.Name, 20)
package util
