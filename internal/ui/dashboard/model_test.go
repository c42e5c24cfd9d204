// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/war100ck/Steam-Account-Manager/internal/account"
	"github.com/war100ck/Steam-Account-Manager/internal/backup"
	"github.com/war100ck/Steam-Account-Manager/internal/logging"
	"github.com/war100ck/Steam-Account-Manager/internal/profile"
	"github.com/war100ck/Steam-Account-Manager/internal/steamapi"
	"github.com/war100ck/Steam-Account-Manager/internal/ui/styles"
)

// Bytes 0x00..0x13. At 1700000010 the code is MQV58, the next window is 25J7P.
const (
	testSecret = "AAECAwQFBgcICQoLDA0ODxAREhM="
	aliceID    = "76561198000000001"
	bobID      = "76561198000000002"
)

// =============================================================================
// FIXTURE
// =============================================================================

type fixture struct {
	store    *account.Store
	cache    *profile.Cache
	resolver *profile.Resolver
	now      time.Time
	clipped  []string
	opened   []string
	home     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	home := t.TempDir()
	logger := logging.Discard()

	store, err := account.NewStore(filepath.Join(home, "maFiles"), logger)
	require.NoError(t, err)

	cache, err := profile.OpenCache(filepath.Join(home, "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	f := &fixture{store: store, cache: cache, now: time.Unix(1700000010, 0), home: home}
	avatars := profile.NewAvatarCache(filepath.Join(home, "avatars"), logger)
	f.resolver = profile.NewResolver(cache, avatars, nil, logger).WithClock(f.clock)
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) write(t *testing.T, name, secret, steamID string) {
	t.Helper()
	body := fmt.Sprintf(`{"account_name":%q,"shared_secret":%q,"identity_secret":"x"`, name, secret)
	if steamID != "" {
		body += fmt.Sprintf(`,"Session":{"SteamID":%s}`, steamID)
	}
	body += "}"
	path := filepath.Join(f.store.Dir(), name+account.FileExt)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
}

func (f *fixture) model(t *testing.T) Model {
	t.Helper()
	_, err := f.store.LoadAll()
	require.NoError(t, err)

	m := New(styles.NewTheme("dark"), Deps{
		Store:    f.store,
		Resolver: func() (*profile.Resolver, error) { return f.resolver, nil },
		Backups: func() *backup.Manager {
			return backup.NewManager(f.store.Dir(), filepath.Join(f.home, "backups"), logging.Discard()).
				WithClock(f.clock)
		},
		Clipboard: func(s string) error {
			f.clipped = append(f.clipped, s)
			return nil
		},
		OpenURL: func(u string) error {
			f.opened = append(f.opened, u)
			return nil
		},
		Now: f.clock,
	})
	return update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, keys string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch keys {
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

// collect runs cmd and flattens batches. Only use it on commands that
// return immediately.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func find[T tea.Msg](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v
		}
	}
	var zero T
	t.Fatalf("no %T in %v", zero, msgs)
	return zero
}

// =============================================================================
// TABLE
// =============================================================================

func TestNew_RowsShowCurrentCodes(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bob", testSecret, bobID)
	f.write(t, "alice", testSecret, aliceID)
	f.write(t, "carol", "", "")

	m := f.model(t)
	rows := m.table.Rows()
	require.Len(t, rows, 3)

	assert.Equal(t, "alice", rows[0][0])
	assert.Equal(t, aliceID, rows[0][1])
	assert.Equal(t, "MQV58  30s", rows[0][2])
	assert.Equal(t, "[OK] ready", rows[0][3])

	assert.Equal(t, "carol", rows[2][0])
	assert.Equal(t, "-", rows[2][1])
	assert.Equal(t, "not configured", rows[2][2])
	assert.Equal(t, "[X] no secret", rows[2][3])

	require.NotNil(t, m.Selected())
	assert.Equal(t, "alice", m.Selected().Name())
}

func TestTick_RecomputesCodes(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	m := f.model(t)

	f.now = time.Unix(1700000040, 0)
	m = update(t, m, TickMsg(f.now))
	assert.Equal(t, "25J7P  30s", m.table.Rows()[0][2])

	f.now = time.Unix(1700000065, 0)
	m = update(t, m, TickMsg(f.now))
	assert.Equal(t, "25J7P  5s", m.table.Rows()[0][2])
	assert.Contains(t, m.View(), "25J7P")
}

func TestNarrowLayout_DropsSteamIDColumn(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	m := f.model(t)

	m = update(t, m, tea.WindowSizeMsg{Width: 50, Height: 20})
	require.Len(t, m.table.Rows()[0], 3)
	assert.NotContains(t, m.table.View(), "SteamID")
	assert.Equal(t, []string{"alice", "MQV58  30s", "[OK] ready"}, []string(m.table.Rows()[0]))
}

func TestView_EmptyStore(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)
	assert.Contains(t, m.View(), "No maFiles in")
	assert.Nil(t, m.Selected())
}

// =============================================================================
// ACTIONS
// =============================================================================

func TestCopy(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	m := f.model(t)

	m, cmd := press(t, m, "c")
	copied := find[CopiedMsg](t, collect(cmd))
	assert.Equal(t, []string{"MQV58"}, f.clipped)

	m = update(t, m, copied)
	assert.Equal(t, statusSuccess, m.status.kind)
	assert.Contains(t, m.status.text, "alice")
}

func TestCopy_NoSecret(t *testing.T) {
	f := newFixture(t)
	f.write(t, "carol", "", "")
	m := f.model(t)

	m, cmd := press(t, m, "c")
	assert.Nil(t, cmd)
	assert.Empty(t, f.clipped)
	assert.Equal(t, statusError, m.status.kind)
	assert.Contains(t, m.status.text, "not configured")
}

func TestCopy_ClipboardFailure(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	m := f.model(t)

	m = update(t, m, CopiedMsg{Account: "alice", Err: errors.New("no xclip")})
	assert.Equal(t, statusError, m.status.kind)
	assert.Contains(t, m.status.text, "clipboard unavailable")
}

func TestFilter(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	f.write(t, "bob", testSecret, bobID)
	m := f.model(t)

	m, _ = press(t, m, "/")
	require.True(t, m.filtering)
	m, _ = press(t, m, "b")
	m, _ = press(t, m, "o")
	require.Len(t, m.visible, 1)
	assert.Equal(t, "bob", m.Selected().Name())
	assert.Contains(t, m.View(), "1 of 2 accounts")

	// Keys go to the filter while it is focused.
	assert.Empty(t, f.clipped)

	m, _ = press(t, m, "enter")
	assert.False(t, m.filtering)
	assert.Len(t, m.visible, 1)

	m, _ = press(t, m, "esc")
	assert.Len(t, m.visible, 2)
}

func TestFilter_BySteamID(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	f.write(t, "bob", testSecret, bobID)
	m := f.model(t)

	m, _ = press(t, m, "/")
	for _, r := range "0002" {
		m, _ = press(t, m, string(r))
	}
	require.Len(t, m.visible, 1)
	assert.Equal(t, "bob", m.visible[0].Name())
}

func TestReload_KeepsSelection(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	f.write(t, "bob", testSecret, bobID)
	m := f.model(t)

	m, _ = press(t, m, "down")
	require.Equal(t, "bob", m.Selected().Name())

	f.write(t, "aaron", testSecret, "")
	accounts, err := f.store.LoadAll()
	require.NoError(t, err)
	m = update(t, m, AccountsLoadedMsg{Accounts: accounts})

	require.Len(t, m.visible, 3)
	assert.Equal(t, "bob", m.Selected().Name())
}

func TestReload_Error(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	m := f.model(t)

	m = update(t, m, AccountsLoadedMsg{Err: errors.New("permission denied")})
	assert.Equal(t, statusError, m.status.kind)
	assert.Len(t, m.visible, 1, "previous accounts stay visible")
}

func TestAccountsChanged_Reloads(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	f.write(t, "alice", testSecret, aliceID)
	next, cmd := m.Update(AccountsChangedMsg{Paths: []string{"alice.maFile"}})
	m = next.(Model)

	loaded := find[AccountsLoadedMsg](t, collect(cmd))
	m = update(t, m, loaded)
	require.Len(t, m.visible, 1)
	assert.Equal(t, "alice", m.Selected().Name())
}

func TestBackup(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	m := f.model(t)

	m, cmd := press(t, m, "b")
	assert.Equal(t, "creating backup", m.busy)

	done := find[BackupMsg](t, collect(cmd))
	require.NoError(t, done.Err)
	assert.Equal(t, 1, done.Manifest.Accounts)

	m = update(t, m, done)
	assert.Empty(t, m.busy)
	assert.Equal(t, statusSuccess, m.status.kind)
	assert.Contains(t, m.status.text, done.Manifest.ID)
}

func TestOpen_UsesProfileURL(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	f.write(t, "carol", testSecret, "")
	m := f.model(t)

	_, cmd := press(t, m, "o")
	find[OpenedMsg](t, collect(cmd))
	assert.Equal(t, []string{"https://steamcommunity.com/profiles/" + aliceID}, f.opened)

	m.profiles[aliceID] = &profile.Profile{Player: steamapi.Player{SteamID: aliceID, ProfileURL: "https://steamcommunity.com/id/alice/"}}
	_, cmd = press(t, m, "o")
	collect(cmd)
	assert.Equal(t, "https://steamcommunity.com/id/alice/", f.opened[1])

	m, _ = press(t, m, "down")
	m, cmd = press(t, m, "o")
	assert.Nil(t, cmd)
	assert.Equal(t, statusWarning, m.status.kind)
}

// =============================================================================
// PROFILES
// =============================================================================

func TestProfile_CachedOnSelection(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	require.NoError(t, f.cache.Put(context.Background(), &steamapi.Player{
		SteamID:                  aliceID,
		PersonaName:              "Alice W.",
		CommunityVisibilityState: 3,
	}, f.now.Add(-time.Hour)))

	m := f.model(t)
	accounts, err := f.store.LoadAll()
	require.NoError(t, err)

	next, cmd := m.Update(AccountsLoadedMsg{Accounts: accounts})
	m = next.(Model)
	msg := find[ProfileMsg](t, collect(cmd))
	assert.True(t, msg.Cached)

	m = update(t, m, msg)
	view := m.View()
	assert.Contains(t, view, "Alice W.")
	assert.Contains(t, view, "public")
}

func TestProfile_NoAPIKey(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	m := f.model(t)

	m, cmd := press(t, m, "p")
	assert.True(t, m.loading[aliceID])
	assert.Contains(t, m.View(), "fetching profile")

	msg := find[ProfileMsg](t, collect(cmd))
	require.ErrorIs(t, msg.Err, steamapi.ErrNoAPIKey)

	m = update(t, m, msg)
	assert.False(t, m.loading[aliceID])
	assert.Equal(t, statusError, m.status.kind)
	assert.Contains(t, m.status.text, "no Steam Web API key")
}

func TestProfile_DiscardedAfterSelectionMoves(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	f.write(t, "bob", testSecret, bobID)
	m := f.model(t)
	accounts, err := f.store.LoadAll()
	require.NoError(t, err)
	m = update(t, m, AccountsLoadedMsg{Accounts: accounts})
	require.True(t, m.looked[aliceID])

	m, _ = press(t, m, "p")
	m, _ = press(t, m, "down")
	require.Equal(t, "bob", m.Selected().Name())

	m = update(t, m, ProfileMsg{
		SteamID: aliceID,
		Profile: &profile.Profile{Player: steamapi.Player{SteamID: aliceID, PersonaName: "Alice W."}},
	})
	assert.Nil(t, m.profiles[aliceID])
	assert.False(t, m.loading[aliceID])
	assert.NotContains(t, m.View(), "Alice W.")

	// Returning to alice checks the cache again.
	m, cmd := press(t, m, "up")
	require.Equal(t, "alice", m.Selected().Name())
	msg := find[ProfileMsg](t, collect(cmd))
	assert.Equal(t, aliceID, msg.SteamID)
	assert.True(t, msg.Cached)
}

func TestProfile_StaleWarning(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alice", testSecret, aliceID)
	m := f.model(t)

	m = update(t, m, ProfileMsg{
		SteamID: aliceID,
		Profile: &profile.Profile{
			Player:    steamapi.Player{SteamID: aliceID, PersonaName: "Alice W."},
			FetchedAt: f.now.Add(-48 * time.Hour),
			Stale:     true,
		},
		Err: errors.New("network is unreachable"),
	})
	assert.Equal(t, statusWarning, m.status.kind)
	assert.Contains(t, m.View(), "(stale)")
}

func TestProfile_NoSteamID(t *testing.T) {
	f := newFixture(t)
	f.write(t, "carol", testSecret, "")
	m := f.model(t)

	m, cmd := press(t, m, "p")
	assert.Nil(t, cmd)
	assert.Equal(t, statusWarning, m.status.kind)
}

// =============================================================================
// KEYS
// =============================================================================

func TestQuitAndHelp(t *testing.T) {
	f := newFixture(t)
	m := f.model(t)

	_, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	m, _ = press(t, m, "?")
	assert.True(t, m.help.ShowAll)
	assert.Contains(t, m.View(), "open profile")
}

func TestKeyMap_HelpCoversBindings(t *testing.T) {
	k := DefaultKeyMap()
	var n int
	for _, col := range k.FullHelp() {
		n += len(col)
	}
	assert.Equal(t, 11, n)
	assert.Len(t, k.ShortHelp(), 5)
}
