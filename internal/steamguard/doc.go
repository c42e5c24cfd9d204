// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package steamguard generates Steam Guard mobile authenticator codes.
//
// Steam uses RFC 6238 TOTP with HMAC-SHA1 and a 30 second step, but renders
// the truncated value as five characters of a 26 symbol alphabet instead of
// decimal digits. The shared secret is standard Base64, often stored without
// its trailing padding.
//
// # Key Types
//
//   - Generator: Clock-bound code source used by the UI and CLI
//   - CodeResult: Code plus error, ready for display in a table row
//   - CodeError: Tagged failure (missing secret, invalid secret, computation)
//
// # Usage
//
// Generate a code for the current time:
//
//	code, err := steamguard.GenerateCode(account.SharedSecret, time.Now())
//	switch {
//	case errors.Is(err, steamguard.ErrMissingSecret):
//	    // account has no 2FA configured
//	case err != nil:
//	    // malformed secret, show err inline
//	}
//
// Everything in this package is pure and safe for concurrent use.
package steamguard
