// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package profile caches Steam player summaries and avatars.
//
// Summaries live in a SQLite database (pure Go driver, no cgo). Avatars are
// plain files next to the maFiles so backups pick them up. Both expire after
// a TTL, 24 hours by default. In offline mode the cache is the only source.
//
// # Usage
//
//	cache, err := profile.OpenCache(cfg.Storage.CacheDB)
//	resolver := profile.NewResolver(cache, profile.NewAvatarCache(cfg.AvatarsDir(), logger), client, logger)
//	p, err := resolver.Profile(ctx, acc.SteamID, false)
//	if p != nil && p.Stale {
//	    // show cached data, err explains why it was not refreshed
//	}
package profile
