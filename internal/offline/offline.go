// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"net"
	"net/url"
	"strings"
	"sync"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNetworkBlocked is returned when a network operation is attempted in offline mode.
	ErrNetworkBlocked = errors.New("network access disabled in offline mode")

	// ErrInvalidURLScheme is returned when a URL scheme is not http or https.
	ErrInvalidURLScheme = errors.New("only http and https URLs are allowed")
)

// =============================================================================
// MODE MANAGEMENT
// =============================================================================

var (
	offlineMode      bool
	offlineModeMutex sync.RWMutex
)

// SetOfflineMode enables or disables offline mode globally. While enabled the
// Steam Web API client refuses every request and profile data is served from
// cache only. Code generation never touches the network and is unaffected.
func SetOfflineMode(enabled bool) {
	offlineModeMutex.Lock()
	defer offlineModeMutex.Unlock()
	offlineMode = enabled
}

// IsOfflineMode returns true if offline mode is currently enabled.
func IsOfflineMode() bool {
	offlineModeMutex.RLock()
	defer offlineModeMutex.RUnlock()
	return offlineMode
}

// CheckNetworkAllowed returns ErrNetworkBlocked in offline mode.
func CheckNetworkAllowed() error {
	if IsOfflineMode() {
		return ErrNetworkBlocked
	}
	return nil
}

// =============================================================================
// URL VALIDATION
// =============================================================================

// IsLocalhost checks if a host string refers to a loopback address.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.Trim(host, "[]"))

	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// ValidateURL checks that rawURL is http(s) and, in offline mode, loopback.
// Scheme validation applies regardless of mode so profile URLs handed to the
// browser can never be file:// or javascript:.
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidURLScheme
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ErrInvalidURLScheme
	}

	if IsOfflineMode() && !IsLocalhost(parsed.Hostname()) {
		return ErrNetworkBlocked
	}
	return nil
}

// =============================================================================
// STATUS DISPLAY
// =============================================================================

// StatusBadge returns "[OFFLINE]" when offline, empty string otherwise.
func StatusBadge() string {
	if IsOfflineMode() {
		return "[OFFLINE]"
	}
	return ""
}
