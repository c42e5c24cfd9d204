// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// apikey_cmd.go - Steam Web API key management.
//
// Command: apikey [subcommand]
//
// Subcommands:
//   show (default)           Show whether a key is configured (fingerprint only)
//   set [KEY] [--no-validate] Store a key; prompts without echo when KEY is omitted
//   validate                 Check the configured key against the Web API
//
// The key itself is never printed or logged.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/war100ck/Steam-Account-Manager/internal/config"
	"github.com/war100ck/Steam-Account-Manager/internal/offline"
	"github.com/war100ck/Steam-Account-Manager/internal/steamapi"
)

// HandleAPIKey dispatches apikey subcommands.
func HandleAPIKey(env *Env, args Args) error {
	p := NewArgParser(args.Raw, "no-validate")
	switch sub := p.Subcommand(); sub {
	case "", "show":
		return apiKeyShow(env, args)
	case "set":
		return apiKeySet(env, args, p)
	case "validate", "check":
		return apiKeyValidate(env, args)
	default:
		return ErrUnknownSubcommand("apikey", sub, []string{"show", "set", "validate"})
	}
}

func apiKeyShow(env *Env, args Args) error {
	client := env.Client()
	data := APIKeyData{
		Configured:  client.IsConfigured(),
		Fingerprint: client.KeyFingerprint(),
	}
	return env.emit(args.JSON, "apikey", data, func(w io.Writer) {
		fmt.Fprintln(w, RenderField("API key", client.APIKeyMasked()))
		if !data.Configured {
			fmt.Fprintln(w, DimStyle.Render("Get a key at https://steamcommunity.com/dev/apikey, then run: sam apikey set"))
		}
	})
}

func apiKeySet(env *Env, args Args, p *ArgParser) error {
	key := p.Positional(1)
	if key == "" {
		var err error
		key, err = env.readSecret("Steam Web API key: ")
		if err != nil {
			return NewCommandError("apikey", "read key", "", err)
		}
	}
	if key == "" {
		return ErrMissingArgument("key", "sam apikey set <KEY>")
	}

	var valid *bool
	if !p.BoolFlag("no-validate") && !offline.IsOfflineMode() {
		ok := true
		if err := validateKey(env.clientWithKey(key), env.Config.Steam.TimeoutSecs); err != nil {
			if errors.Is(err, steamapi.ErrAuthFailed) {
				return fmt.Errorf("key rejected by Steam, not saved: %w", err)
			}
			return fmt.Errorf("could not validate key (use --no-validate to save anyway): %w", err)
		}
		valid = &ok
	}

	cfg, err := config.LoadForEdit()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	cfg.Steam.APIKey = key
	if err := config.Save(cfg); err != nil {
		return NewCommandError("apikey", "save key", "", err)
	}
	env.Config.Steam.APIKey = key
	env.Logger.WithField("fingerprint", steamapi.KeyFingerprint(key)).Info("API key updated")

	data := APIKeyData{Configured: true, Fingerprint: steamapi.KeyFingerprint(key), Valid: valid}
	return env.emit(args.JSON, "apikey", data, func(w io.Writer) {
		msg := "API key saved"
		if valid == nil {
			msg += " (not validated)"
		}
		fmt.Fprintf(w, "%s %s, fingerprint %s\n", SuccessStyle.Render("[OK]"), msg, data.Fingerprint)
	})
}

func apiKeyValidate(env *Env, args Args) error {
	client := env.Client()
	if !client.IsConfigured() {
		return steamapi.ErrNoAPIKey
	}
	if err := validateKey(client, env.Config.Steam.TimeoutSecs); err != nil {
		return err
	}
	ok := true
	data := APIKeyData{Configured: true, Fingerprint: client.KeyFingerprint(), Valid: &ok}
	return env.emit(args.JSON, "apikey", data, func(w io.Writer) {
		fmt.Fprintf(w, "%s API key is valid (fingerprint %s)\n", SuccessStyle.Render("[OK]"), data.Fingerprint)
	})
}

func validateKey(client *steamapi.Client, timeoutSecs int) error {
	timeout := time.Duration(timeoutSecs)*time.Second*4 + 5*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.ValidateKey(ctx)
}
