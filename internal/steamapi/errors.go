// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package steamapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// maxErrorWidth caps how much of an error body ends up in APIError.
const maxErrorWidth = 200

// Error variables for common Web API failures.
var (
	// ErrNoAPIKey indicates no Steam Web API key is configured.
	ErrNoAPIKey = errors.New("Steam Web API key not configured")

	// ErrAuthFailed indicates the key was rejected (HTTP 401/403).
	ErrAuthFailed = errors.New("Steam Web API key rejected")

	// ErrRateLimited indicates HTTP 429 persisted through every retry.
	ErrRateLimited = errors.New("rate limited by Steam Web API")

	// ErrPlayerNotFound indicates the summary list came back empty.
	ErrPlayerNotFound = errors.New("player not found")

	// ErrInvalidSteamID indicates a SteamID that is not a decimal number.
	ErrInvalidSteamID = errors.New("invalid SteamID")

	// ErrNoAvatar indicates the player has no avatar URL.
	ErrNoAvatar = errors.New("player has no avatar")
)

// APIError is a non-success HTTP response that maps to no sentinel.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Steam Web API error (HTTP %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("Steam Web API error (HTTP %d %s)", e.Status, http.StatusText(e.Status))
}

// statusError converts an HTTP status into the matching error.
func statusError(status int, body []byte) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w (HTTP %d)", ErrAuthFailed, status)
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{Status: status, Message: util.TruncateWidth(string(body), maxErrorWidth)}
	}
}
