// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package steamapi is a small client for the Steam Web API.
//
// Only ISteamUser/GetPlayerSummaries is used: it backs profile lookups, API
// key validation and avatar discovery. Requests go through a rate limiter and
// are retried with exponential backoff on 429, 5xx and transport errors.
// Offline mode blocks every request before it leaves the process.
//
// The API key travels in the query string, so request URLs are never logged;
// logs carry the path and a short fingerprint of the key.
//
// # Usage
//
//	client := steamapi.NewClient(cfg.Steam.APIKey, logger).
//	    WithTimeout(15 * time.Second).
//	    WithRateLimit(cfg.Steam.RequestsPerSecond)
//
//	player, err := client.GetPlayerSummary(ctx, "76561198000000000")
//	if errors.Is(err, steamapi.ErrAuthFailed) {
//	    // key revoked or mistyped
//	}
package steamapi
