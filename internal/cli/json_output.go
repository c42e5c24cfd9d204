// json_output.go - JSON output for scripting.
//
// Every command accepts --json and then prints exactly one envelope to
// stdout. Human-readable notes go to stderr.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package cli

import (
	"encoding/json"
	"io"
	"time"
)

// JSONResponse is the envelope written by every command in JSON mode.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Details carries the error classification on failure
	Details map[string]interface{} `json:"details,omitempty"`

	// Timestamp is the RFC 3339 time the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the response to w with indentation.
func (r *JSONResponse) Print(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(r)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// AccountData is one row of "sam list".
type AccountData struct {
	ID        string `json:"id"`
	Name      string `json:"account_name"`
	SteamID   string `json:"steamid,omitempty"`
	Code      string `json:"code,omitempty"`
	CodeError string `json:"code_error,omitempty"`
	Status    string `json:"status"`
	Remaining int    `json:"remaining_secs"`
}

// CodeData is the result of "sam code" and "sam copy".
type CodeData struct {
	Account   string `json:"account"`
	Code      string `json:"code"`
	Remaining int    `json:"remaining_secs"`
	Copied    bool   `json:"copied,omitempty"`
}

// VerifyData is the result of "sam verify".
type VerifyData struct {
	Account string `json:"account"`
	Code    string `json:"code"`
	Valid   bool   `json:"valid"`
}

// URIData is the result of "sam uri".
type URIData struct {
	Account string `json:"account"`
	URI     string `json:"uri"`
}

// ImportData is the result of "sam import".
type ImportData struct {
	ID      string `json:"id"`
	Name    string `json:"account_name"`
	SteamID string `json:"steamid,omitempty"`
	Path    string `json:"path"`
}

// ProfileData is the result of "sam profile".
type ProfileData struct {
	SteamID     string `json:"steamid"`
	PersonaName string `json:"personaname"`
	ProfileURL  string `json:"profileurl,omitempty"`
	Visibility  string `json:"visibility"`
	Configured  bool   `json:"profile_configured"`
	LastLogoff  string `json:"last_logoff,omitempty"`
	AvatarPath  string `json:"avatar_path,omitempty"`
	FetchedAt   string `json:"fetched_at"`
	FromCache   bool   `json:"from_cache"`
	Stale       bool   `json:"stale"`
	Warning     string `json:"warning,omitempty"`

	// CachedProfiles is the size of the whole profile cache.
	CachedProfiles int `json:"cached_profiles"`
}

// APIKeyData is the result of "sam apikey".
type APIKeyData struct {
	Configured  bool   `json:"configured"`
	Fingerprint string `json:"fingerprint"`
	Valid       *bool  `json:"valid,omitempty"`
}

// BackupData describes one backup.
type BackupData struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Accounts  int    `json:"accounts"`
	Files     int    `json:"files"`
	SizeBytes int64  `json:"size_bytes"`
	Legacy    bool   `json:"legacy,omitempty"`
	Verified  bool   `json:"verified,omitempty"`
}

// ConfigData is the result of "sam config show".
type ConfigData struct {
	Path   string                 `json:"config_path"`
	Values map[string]interface{} `json:"values"`
}

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}
