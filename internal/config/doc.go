// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for sam.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation. A config.json from older
// releases holding only steam_api_key is still read.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - SteamConfig: Web API key, base URL, timeout and rate limit
//   - StorageConfig: maFile, backup and cache locations
//   - UIConfig: Refresh cadence and theme
//
// # Configuration Precedence
//
//   - Command line flags (--accounts, --offline, --verbose)
//   - Environment variables (SAM_*)
//   - ~/.sam/config.toml
//   - ~/.sam/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	_ = cfg.Set("ui.theme", "dark")
//	err = config.Save(cfg)
package config
