// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package offline holds the process-wide offline switch.
//
// Enabled with --offline, SAM_OFFLINE=1 or offline = true in config. Every
// outbound request goes through CheckNetworkAllowed or ValidateURL first.
//
// # Usage
//
//	offline.SetOfflineMode(cfg.Offline)
//
//	if err := offline.ValidateURL(endpoint); err != nil {
//		return err
//	}
package offline
