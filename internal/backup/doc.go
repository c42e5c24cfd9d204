// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backup snapshots the accounts directory.
//
// A backup is a plain directory named backup_YYYYMMDD_HHMMSS holding copies
// of every maFile, the cached avatars and a manifest.json with SHA-256
// checksums. Restores verify checksums before anything is written. Backups
// made without a manifest are listed and restorable but not verifiable.
//
// Retention keeps the newest max_backups directories (20 by default).
package backup
