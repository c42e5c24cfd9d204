// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes for sam commands.
//
// Handlers always return errors; Run decides how to display them and which
// exit code to use.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"

	"github.com/war100ck/Steam-Account-Manager/internal/account"
	"github.com/war100ck/Steam-Account-Manager/internal/backup"
	"github.com/war100ck/Steam-Account-Manager/internal/config"
	"github.com/war100ck/Steam-Account-Manager/internal/offline"
	"github.com/war100ck/Steam-Account-Manager/internal/profile"
	"github.com/war100ck/Steam-Account-Manager/internal/steamapi"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or settings error
	ExitConfigError = 3
	// ExitAuthError indicates a missing or rejected Steam Web API key
	ExitAuthError = 4
	// ExitNetworkError indicates network, rate limit or offline-mode errors
	ExitNetworkError = 5
	// ExitNotFoundError indicates an account or backup was not found
	ExitNotFoundError = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

var (
	// ErrConfigLoad wraps failures to read or parse the config file.
	ErrConfigLoad = errors.New("failed to load configuration")

	// ErrCodeMismatch is returned by "sam verify" when the code is not valid
	// for the previous, current or next window.
	ErrCodeMismatch = errors.New("code does not match")
)

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "backup")
	Action  string // Action being performed (e.g., "restore")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Action)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string // "account" or "backup"
	ID       string // Identifier that was not found
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR CONSTRUCTION HELPERS
// =============================================================================

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{
		Field:   argName,
		Reason:  "required argument missing",
		Example: usage,
	}
}

// ErrUnknownSubcommand creates an error for an unsupported subcommand.
func ErrUnknownSubcommand(command, sub string, valid []string) error {
	return &ValidationError{
		Field:   command + " subcommand",
		Value:   sub,
		Reason:  "unknown subcommand",
		Example: fmt.Sprintf("sam %s %v", command, valid),
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w, as a JSON envelope in JSON mode.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponse(command, err)
		resp.Details = errorDetails(err)
		_ = resp.Print(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

func errorDetails(err error) map[string]interface{} {
	details := map[string]interface{}{
		"exit_code": GetExitCode(err),
	}

	var cmdErr *CommandError
	var valErr *ValidationError
	var nfErr *NotFoundError
	switch {
	case errors.As(err, &valErr):
		details["error_type"] = "validation_error"
		details["field"] = valErr.Field
		if valErr.Example != "" {
			details["example"] = valErr.Example
		}
	case errors.As(err, &nfErr):
		details["error_type"] = "not_found_error"
		details["resource"] = nfErr.Resource
		details["id"] = nfErr.ID
	case errors.As(err, &cmdErr):
		details["error_type"] = "command_error"
		details["command"] = cmdErr.Command
		details["action"] = cmdErr.Action
	default:
		details["error_type"] = "generic_error"
	}
	return details
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to the process exit code.
//   - ExitUsageError (2): ValidationError
//   - ExitConfigError (3): invalid configuration
//   - ExitAuthError (4): missing or rejected API key
//   - ExitNetworkError (5): offline mode, rate limiting, transport and 5xx errors
//   - ExitNotFoundError (7): unknown account, backup or profile
//   - ExitGeneralError (1): all other errors
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}

	var notFoundErr *NotFoundError
	if errors.As(err, &notFoundErr) ||
		errors.Is(err, account.ErrAccountNotFound) ||
		errors.Is(err, backup.ErrBackupNotFound) ||
		errors.Is(err, steamapi.ErrPlayerNotFound) ||
		errors.Is(err, profile.ErrNotCached) {
		return ExitNotFoundError
	}

	if errors.Is(err, ErrConfigLoad) {
		return ExitConfigError
	}
	var cfgErrs config.ValidateErrors
	if errors.As(err, &cfgErrs) {
		return ExitConfigError
	}
	var cfgErr config.ValidationError
	if errors.As(err, &cfgErr) {
		return ExitConfigError
	}

	if errors.Is(err, steamapi.ErrNoAPIKey) || errors.Is(err, steamapi.ErrAuthFailed) {
		return ExitAuthError
	}

	if errors.Is(err, offline.ErrNetworkBlocked) ||
		errors.Is(err, steamapi.ErrRateLimited) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ExitNetworkError
	}
	var apiErr *steamapi.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 500 {
		return ExitNetworkError
	}
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return ExitNetworkError
	}

	return ExitGeneralError
}
