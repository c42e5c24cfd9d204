// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/war100ck/Steam-Account-Manager/internal/account"
	"github.com/war100ck/Steam-Account-Manager/internal/backup"
	"github.com/war100ck/Steam-Account-Manager/internal/profile"
)

// =============================================================================
// MESSAGES
// =============================================================================

// TickMsg re-renders codes and the countdown.
type TickMsg time.Time

// AccountsLoadedMsg carries the result of a store reload.
type AccountsLoadedMsg struct {
	Accounts []*account.Account
	Err      error
}

// AccountsChangedMsg is sent when the watcher sees maFiles change.
type AccountsChangedMsg struct {
	Paths []string
}

// ProfileMsg carries a profile lookup result for one SteamID.
type ProfileMsg struct {
	SteamID string
	Profile *profile.Profile
	Err     error
	// Cached is set for cache-only lookups made when the selection moves.
	Cached bool
}

// CopiedMsg reports a clipboard write.
type CopiedMsg struct {
	Account string
	Err     error
}

// BackupMsg reports a finished backup.
type BackupMsg struct {
	Manifest *backup.Manifest
	Err      error
}

// OpenedMsg reports a browser launch.
type OpenedMsg struct {
	URL string
	Err error
}

// =============================================================================
// COMMANDS
// =============================================================================

// tickCmd schedules the next TickMsg.
func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func reloadCmd(store *account.Store) tea.Cmd {
	return func() tea.Msg {
		accounts, err := store.LoadAll()
		return AccountsLoadedMsg{Accounts: accounts, Err: err}
	}
}

// waitForChange blocks on the watcher channel. A closed channel ends the
// subscription.
func waitForChange(events <-chan account.ChangeEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return AccountsChangedMsg{Paths: ev.Paths}
	}
}

func fetchProfileCmd(r *profile.Resolver, steamID string, force bool, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		p, err := r.Profile(ctx, steamID, force)
		return ProfileMsg{SteamID: steamID, Profile: p, Err: err}
	}
}

func cachedProfileCmd(r *profile.Resolver, steamID string) tea.Cmd {
	return func() tea.Msg {
		p, err := r.Cached(context.Background(), steamID)
		return ProfileMsg{SteamID: steamID, Profile: p, Err: err, Cached: true}
	}
}

func copyCmd(write func(string) error, name, code string) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Account: name, Err: write(code)}
	}
}

func backupCmd(mgr *backup.Manager) tea.Cmd {
	return func() tea.Msg {
		m, err := mgr.Create()
		return BackupMsg{Manifest: m, Err: err}
	}
}

func openCmd(open func(string) error, url string) tea.Cmd {
	return func() tea.Msg {
		return OpenedMsg{URL: url, Err: open(url)}
	}
}
