// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// otp_cmd.go - Interop with other authenticators: otpauth URIs and code checks.
//
// Examples:
//   sam uri alice            Print otpauth://totp/Steam:alice?...&encoder=steam
//   sam verify alice 2XK7B   Check a code against the previous, current and next window

package cli

import (
	"encoding/base32"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/war100ck/Steam-Account-Manager/internal/account"
	"github.com/war100ck/Steam-Account-Manager/internal/steamguard"
)

const otpIssuer = "Steam"

var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// secretBase32 converts a maFile shared_secret to the base32 form otpauth uses.
func secretBase32(acc *account.Account) (string, []byte, error) {
	key, err := steamguard.DecodeSecret(acc.SharedSecret)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", acc.Name(), err)
	}
	return base32NoPad.EncodeToString(key), key, nil
}

// OTPAuthURI builds an otpauth URI that Steam-aware authenticators accept.
func OTPAuthURI(acc *account.Account) (string, error) {
	_, key, err := secretBase32(acc)
	if err != nil {
		return "", err
	}

	generated, err := totp.Generate(totp.GenerateOpts{
		Issuer:      otpIssuer,
		AccountName: acc.Name(),
		Period:      steamguard.Period,
		Digits:      otp.Digits(steamguard.CodeLength),
		Algorithm:   otp.AlgorithmSHA1,
		Secret:      key,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build otpauth URI: %w", err)
	}

	u, err := url.Parse(generated.URL())
	if err != nil {
		return "", err
	}
	q := u.Query()
	if q.Get("encoder") == "" {
		q.Set("encoder", "steam")
	}
	u.RawQuery = q.Encode()

	// Round-trip through the parser so a malformed URI never reaches the user.
	if _, err := otp.NewKeyFromURL(u.String()); err != nil {
		return "", fmt.Errorf("failed to build otpauth URI: %w", err)
	}
	return u.String(), nil
}

// VerifyCode reports whether code is valid for acc at now, allowing one
// period of clock skew either side.
func VerifyCode(acc *account.Account, code string, now time.Time) (bool, error) {
	secret, _, err := secretBase32(acc)
	if err != nil {
		return false, err
	}
	valid, err := totp.ValidateCustom(strings.ToUpper(code), secret, now.UTC(), totp.ValidateOpts{
		Period:    steamguard.Period,
		Skew:      1,
		Digits:    otp.Digits(steamguard.CodeLength),
		Algorithm: otp.AlgorithmSHA1,
		Encoder:   otp.EncoderSteam,
	})
	if err != nil {
		return false, fmt.Errorf("failed to verify code: %w", err)
	}
	return valid, nil
}

// HandleURI prints the otpauth URI for an account.
func HandleURI(env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	key := p.Positional(0)
	if key == "" {
		return ErrMissingArgument("account", "sam uri <account>")
	}
	acc, err := env.account(key)
	if err != nil {
		return err
	}
	uri, err := OTPAuthURI(acc)
	if err != nil {
		return err
	}

	data := URIData{Account: acc.Name(), URI: uri}
	return env.emit(args.JSON, "uri", data, func(w io.Writer) {
		fmt.Fprintln(w, uri)
		if IsStdoutTTY() {
			fmt.Fprintln(w, WarningStyle.Render("This URI contains the shared secret. Do not share it."))
		}
	})
}

// HandleVerify checks a code with one window of skew either side.
func HandleVerify(env *Env, args Args) error {
	p := NewArgParser(args.Raw)
	key, code := p.Positional(0), strings.ToUpper(strings.TrimSpace(p.Positional(1)))
	if key == "" || code == "" {
		return ErrMissingArgument("account and code", "sam verify <account> <code>")
	}
	if !steamguard.IsValidCode(code) {
		return &ValidationError{
			Field:   "code",
			Value:   code,
			Reason:  fmt.Sprintf("must be %d characters from %s", steamguard.CodeLength, steamguard.Alphabet),
			Example: "sam verify alice 2XK7B",
		}
	}
	acc, err := env.account(key)
	if err != nil {
		return err
	}

	valid, err := VerifyCode(acc, code, env.Now())
	if err != nil {
		return err
	}
	env.Logger.WithField("account", acc.Name()).WithField("valid", valid).Info("code verified")

	if !valid {
		return fmt.Errorf("%w for %s", ErrCodeMismatch, acc.Name())
	}
	data := VerifyData{Account: acc.Name(), Code: code, Valid: true}
	return env.emit(args.JSON, "verify", data, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s is valid for %s\n", SuccessStyle.Render("[OK]"), code, acc.Name())
	})
}
