// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// profile_cmd.go - Steam profile lookup backed by the local cache.
//
// Command: profile <account> [--refresh]
//
// Cached profiles are served until they are older than
// storage.avatar_ttl_hours. When a refresh fails (offline, no API key,
// network error) the cached profile is shown with a warning.

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/war100ck/Steam-Account-Manager/internal/profile"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// HandleProfile prints the profile for an account.
func HandleProfile(env *Env, args Args) error {
	p := NewArgParser(args.Raw, "refresh")
	key := p.Positional(0)
	if key == "" {
		return ErrMissingArgument("account", "sam profile <account> [--refresh]")
	}
	acc, err := env.account(key)
	if err != nil {
		return err
	}
	if acc.SteamID == "" {
		return fmt.Errorf("%s: %w", acc.Name(), profile.ErrNoSteamID)
	}

	resolver, err := env.Resolver()
	if err != nil {
		return err
	}

	timeout := time.Duration(env.Config.Steam.TimeoutSecs)*time.Second*4 + 5*time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	prof, err := resolver.Profile(ctx, acc.SteamID, p.BoolFlag("refresh"))
	if prof == nil {
		return err
	}

	data := profileData(prof)
	if err != nil {
		data.Warning = err.Error()
	}
	if n, cerr := resolver.CacheSize(ctx); cerr == nil {
		data.CachedProfiles = n
	}

	return env.emit(args.JSON, "profile", data, func(w io.Writer) {
		fmt.Fprintln(w, TitleStyle.Render(acc.Name()))
		fmt.Fprintln(w, RenderSeparator(40))
		fmt.Fprintln(w, RenderField("SteamID", data.SteamID))
		fmt.Fprintln(w, RenderField("Nickname", data.PersonaName))
		fmt.Fprintln(w, RenderField("Visibility", data.Visibility))
		if !data.Configured {
			fmt.Fprintln(w, RenderField("Profile", "not set up"))
		}
		if data.LastLogoff != "" {
			fmt.Fprintln(w, RenderField("Last logoff", data.LastLogoff))
		}
		if data.ProfileURL != "" {
			fmt.Fprintln(w, RenderField("URL", data.ProfileURL))
		}
		if data.AvatarPath != "" {
			fmt.Fprintln(w, RenderField("Avatar", data.AvatarPath))
		}
		source := "Steam Web API"
		if data.FromCache {
			source = "cache"
		}
		fmt.Fprintln(w, RenderField("Fetched", fmt.Sprintf("%s (%s)", util.FormatAge(prof.FetchedAt, env.Now()), source)))
		fmt.Fprintln(w, RenderField("Cache", fmt.Sprintf("%d profile(s)", data.CachedProfiles)))
		if data.Warning != "" {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "%s showing cached profile: %s\n", WarningStyle.Render("[WARN]"), data.Warning)
		}
	})
}

func profileData(p *profile.Profile) ProfileData {
	data := ProfileData{
		SteamID:     p.SteamID,
		PersonaName: p.PersonaName,
		ProfileURL:  p.ProfileURL,
		Visibility:  p.Visibility().String(),
		Configured:  p.ProfileConfigured(),
		AvatarPath:  p.AvatarPath,
		FetchedAt:   p.FetchedAt.UTC().Format(time.RFC3339),
		FromCache:   p.FromCache,
		Stale:       p.Stale,
	}
	if t := p.LastLogoffTime(); !t.IsZero() {
		data.LastLogoff = t.Local().Format("2006-01-02 15:04")
	}
	return data
}
