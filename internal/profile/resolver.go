// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/war100ck/Steam-Account-Manager/internal/logging"
	"github.com/war100ck/Steam-Account-Manager/internal/offline"
	"github.com/war100ck/Steam-Account-Manager/internal/steamapi"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// DefaultTTL is how long profiles and avatars are served from cache.
const DefaultTTL = 24 * time.Hour

// ErrNoSteamID is returned when the account has no usable SteamID.
var ErrNoSteamID = errors.New("account has no SteamID")

// Fetcher is the part of *steamapi.Client the resolver needs.
type Fetcher interface {
	IsConfigured() bool
	GetPlayerSummary(ctx context.Context, steamID string) (*steamapi.Player, error)
	FetchAvatar(ctx context.Context, p *steamapi.Player) (*steamapi.Avatar, error)
}

// Profile is a resolved player profile.
type Profile struct {
	steamapi.Player

	FetchedAt  time.Time
	AvatarPath string

	// FromCache is set when no request was made.
	FromCache bool
	// Stale is set when the entry is past its TTL but a refresh was not
	// possible.
	Stale bool
}

// Resolver serves profiles from the cache and refreshes them through the
// Web API once they expire.
type Resolver struct {
	cache   *Cache
	avatars *AvatarCache
	client  Fetcher
	ttl     time.Duration
	now     func() time.Time
	log     *logrus.Entry
}

// NewResolver joins a cache, an avatar directory and an API client.
func NewResolver(cache *Cache, avatars *AvatarCache, client Fetcher, logger *logrus.Logger) *Resolver {
	return &Resolver{
		cache:   cache,
		avatars: avatars,
		client:  client,
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     logging.Component(logger, "profile"),
	}
}

// WithTTL sets the cache lifetime.
func (r *Resolver) WithTTL(ttl time.Duration) *Resolver {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

// WithClock replaces time.Now, for tests.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Profile returns the profile for steamID. A fresh cache entry is used
// unless force is set. When a refresh is needed but cannot happen (offline,
// no key, request failure) a cached entry is returned with Stale set,
// alongside the error that prevented the refresh.
func (r *Resolver) Profile(ctx context.Context, steamID string, force bool) (*Profile, error) {
	if steamID == "" {
		return nil, ErrNoSteamID
	}
	if !util.IsDigits(steamID) {
		return nil, fmt.Errorf("%w: %q", steamapi.ErrInvalidSteamID, steamID)
	}

	now := r.now()
	cached, err := r.cache.Get(ctx, steamID)
	if err != nil && !errors.Is(err, ErrNotCached) {
		r.log.WithError(err).WithField("steamid", steamID).Warn("ignoring unreadable cache entry")
		cached = nil
	}

	if cached != nil && !force && cached.Age(now) < r.ttl {
		return r.fromEntry(cached, true, false), nil
	}

	if err := r.canFetch(); err != nil {
		if cached != nil {
			return r.fromEntry(cached, true, true), err
		}
		return nil, err
	}

	player, err := r.client.GetPlayerSummary(ctx, steamID)
	if err != nil {
		r.log.WithError(err).WithField("steamid", steamID).Warn("profile refresh failed")
		if cached != nil {
			return r.fromEntry(cached, true, true), err
		}
		return nil, err
	}

	if err := r.cache.Put(ctx, player, now); err != nil {
		r.log.WithError(err).WithField("steamid", steamID).Warn("failed to cache profile")
	}

	p := &Profile{Player: *player, FetchedAt: now}
	p.AvatarPath = r.refreshAvatar(ctx, player, force, now)

	r.log.WithFields(logrus.Fields{"steamid": steamID, "persona": player.PersonaName}).Info("profile refreshed")
	return p, nil
}

// Cached returns the cache entry without any network access.
func (r *Resolver) Cached(ctx context.Context, steamID string) (*Profile, error) {
	e, err := r.cache.Get(ctx, steamID)
	if err != nil {
		return nil, err
	}
	return r.fromEntry(e, true, e.Age(r.now()) >= r.ttl), nil
}

// Forget drops the cached profile and avatar.
func (r *Resolver) Forget(ctx context.Context, steamID string) error {
	r.avatars.Remove(steamID)
	return r.cache.Delete(ctx, steamID)
}

// CacheSize returns the number of cached profiles.
func (r *Resolver) CacheSize(ctx context.Context) (int, error) {
	return r.cache.Count(ctx)
}

func (r *Resolver) canFetch() error {
	if offline.IsOfflineMode() {
		return offline.ErrNetworkBlocked
	}
	if r.client == nil || !r.client.IsConfigured() {
		return steamapi.ErrNoAPIKey
	}
	return nil
}

func (r *Resolver) fromEntry(e *Entry, fromCache, stale bool) *Profile {
	p := &Profile{Player: e.Player, FetchedAt: e.FetchedAt, FromCache: fromCache, Stale: stale}
	if av := r.avatars.Load(e.Player.SteamID); av != nil {
		p.AvatarPath = av.Path
	}
	return p
}

// refreshAvatar downloads the avatar when the cached file is missing,
// expired or force is set. Failures keep whatever file is already there.
func (r *Resolver) refreshAvatar(ctx context.Context, p *steamapi.Player, force bool, now time.Time) string {
	if !force {
		if c := r.avatars.Load(p.SteamID); c != nil && now.Sub(c.ModTime) < r.ttl {
			return c.Path
		}
	}

	av, err := r.client.FetchAvatar(ctx, p)
	if err == nil {
		var path string
		if path, err = r.avatars.Save(p.SteamID, av); err == nil {
			return path
		}
	}
	if !errors.Is(err, steamapi.ErrNoAvatar) {
		r.log.WithError(err).WithField("steamid", p.SteamID).Warn("avatar refresh failed")
	}

	if c := r.avatars.Load(p.SteamID); c != nil {
		return c.Path
	}
	return ""
}
