// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/war100ck/Steam-Account-Manager/internal/account"
	"github.com/war100ck/Steam-Account-Manager/internal/backup"
	"github.com/war100ck/Steam-Account-Manager/internal/config"
	"github.com/war100ck/Steam-Account-Manager/internal/offline"
	"github.com/war100ck/Steam-Account-Manager/internal/profile"
	"github.com/war100ck/Steam-Account-Manager/internal/steamapi"
	"github.com/war100ck/Steam-Account-Manager/internal/steamguard"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// Bytes 0x00..0x13. At 1700000010 the code is MQV58, the next window is 25J7P.
const (
	testSecret  = "AAECAwQFBgcICQoLDA0ODxAREhM="
	testSteamID = "76561198000000001"
)

var testNow = time.Unix(1700000010, 0)

// =============================================================================
// TEST HARNESS
// =============================================================================

type harness struct {
	env     *Env
	out     *bytes.Buffer
	errOut  *bytes.Buffer
	home    string
	clipped []string
}

func newHarness(t *testing.T, mutate ...func(*config.Config)) *harness {
	t.Helper()
	home := t.TempDir()
	t.Setenv("SAM_HOME", home)
	t.Setenv("SAM_API_KEY", "")

	cfg := config.Default()
	cfg.Log.Path = ""
	cfg.Steam.RequestsPerSecond = 100
	for _, m := range mutate {
		m(cfg)
	}

	env, err := NewEnvWithConfig(cfg, Args{})
	require.NoError(t, err)

	h := &harness{env: env, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, home: home}
	env.Out = h.out
	env.Err = h.errOut
	env.Now = func() time.Time { return testNow }
	env.Clipboard = func(s string) error {
		h.clipped = append(h.clipped, s)
		return nil
	}
	t.Cleanup(func() {
		env.Close()
		offline.SetOfflineMode(false)
	})
	return h
}

func (h *harness) writeAccount(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(h.env.Store.Dir(), name+account.FileExt)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func (h *harness) addAlice(t *testing.T) {
	t.Helper()
	h.writeAccount(t, "alice", fmt.Sprintf(
		`{"account_name":"alice","shared_secret":%q,"identity_secret":"x","Session":{"SteamID":%s}}`,
		testSecret, testSteamID))
}

func (h *harness) run(cmd Command, raw ...string) error {
	h.out.Reset()
	h.errOut.Reset()
	return Execute(h.env, cmd, Args{Raw: raw})
}

func (h *harness) runJSON(cmd Command, raw ...string) error {
	h.out.Reset()
	h.errOut.Reset()
	return Execute(h.env, cmd, Args{JSON: true, Raw: raw})
}

// decode unpacks the JSON envelope written by the last command.
func decode[T any](t *testing.T, h *harness) T {
	t.Helper()
	var resp struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &resp), h.out.String())
	require.True(t, resp.Success)
	return resp.Data
}

// =============================================================================
// PARSING
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{name: "no args opens TUI", argv: nil, wantCmd: CmdTUI},
		{
			name:    "global json before command",
			argv:    []string{"--json", "list"},
			wantCmd: CmdList,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.JSON)
				assert.Empty(t, a.Raw)
			},
		},
		{
			name:    "global flag after positional",
			argv:    []string{"code", "alice", "--offline"},
			wantCmd: CmdCode,
			check: func(t *testing.T, a Args) {
				assert.True(t, a.Offline)
				assert.Equal(t, []string{"alice"}, a.Raw)
			},
		},
		{
			name:    "accounts dir",
			argv:    []string{"--accounts", "/tmp/ma", "ls"},
			wantCmd: CmdList,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/tmp/ma", a.AccountsDir)
			},
		},
		{
			name:    "accounts dir with equals",
			argv:    []string{"--accounts=/tmp/mb", "-v", "help"},
			wantCmd: CmdHelp,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "/tmp/mb", a.AccountsDir)
				assert.True(t, a.Verbose)
			},
		},
		{name: "version flag", argv: []string{"--version"}, wantCmd: CmdVersion},
		{
			name:    "unknown command",
			argv:    []string{"frobnicate"},
			wantCmd: CmdUnknown,
			check: func(t *testing.T, a Args) {
				assert.Equal(t, "frobnicate", a.Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			assert.Equal(t, tt.wantCmd, cmd)
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

func TestArgParser_BoolFlags(t *testing.T) {
	p := NewArgParser([]string{"--force", "alice.maFile", "bob.maFile"}, "force")
	assert.True(t, p.BoolFlag("force"))
	assert.Equal(t, []string{"alice.maFile", "bob.maFile"}, p.PositionalFrom(0))

	// Unknown flags take the next argument as their value.
	p = NewArgParser([]string{"--lines", "50", "show"})
	assert.Equal(t, "50", p.Flag("lines"))
	assert.Equal(t, "show", p.Subcommand())

	p = NewArgParser([]string{"set", "--", "--weird"})
	assert.Equal(t, "--weird", p.Positional(1))

	p = NewArgParser([]string{"--confirm=false", "x"}, "confirm")
	assert.False(t, p.BoolFlag("confirm"))
	assert.Equal(t, "x", p.Positional(0))
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"validation", ErrMissingArgument("account", "sam code <account>"), ExitUsageError},
		{"account not found", fmt.Errorf("x: %w", account.ErrAccountNotFound), ExitNotFoundError},
		{"not found type", &NotFoundError{Resource: "account", ID: "x"}, ExitNotFoundError},
		{"backup not found", backup.ErrBackupNotFound, ExitNotFoundError},
		{"config load", fmt.Errorf("%w: bad toml", ErrConfigLoad), ExitConfigError},
		{"config validation", config.ValidateErrors{{Field: "ui.theme", Message: "bad"}}, ExitConfigError},
		{"no api key", steamapi.ErrNoAPIKey, ExitAuthError},
		{"auth failed", fmt.Errorf("wrapped: %w", steamapi.ErrAuthFailed), ExitAuthError},
		{"offline", offline.ErrNetworkBlocked, ExitNetworkError},
		{"rate limited", steamapi.ErrRateLimited, ExitNetworkError},
		{"server error", &steamapi.APIError{Status: 502}, ExitNetworkError},
		{"client error", &steamapi.APIError{Status: 400}, ExitGeneralError},
		{"missing secret", fmt.Errorf("alice: %w", steamguard.ErrMissingSecret), ExitGeneralError},
		{"generic", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, "code", &NotFoundError{Resource: "account", ID: "zed"}, true)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "account not found: zed", resp["error"])
	details := resp["details"].(map[string]interface{})
	assert.Equal(t, float64(ExitNotFoundError), details["exit_code"])
	assert.Equal(t, "not_found_error", details["error_type"])
}

func TestExecute_UnknownCommand(t *testing.T) {
	h := newHarness(t)
	err := Execute(h.env, CmdUnknown, Args{Name: "frobnicate"})
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	assert.Contains(t, err.Error(), "frobnicate")
}

// =============================================================================
// ACCOUNT COMMANDS
// =============================================================================

func TestHandleList_JSON(t *testing.T) {
	h := newHarness(t)
	h.addAlice(t)
	h.writeAccount(t, "bob", `{"account_name":"bob"}`)
	h.writeAccount(t, "carol", `{"account_name":"carol","shared_secret":"not-valid-base64!!"}`)

	require.NoError(t, h.runJSON(CmdList))
	rows := decode[[]AccountData](t, h)
	require.Len(t, rows, 3)

	assert.Equal(t, "alice", rows[0].Name)
	assert.Equal(t, "MQV58", rows[0].Code)
	assert.Equal(t, testSteamID, rows[0].SteamID)
	assert.Equal(t, "ready", rows[0].Status)
	assert.Equal(t, 30, rows[0].Remaining)

	assert.Empty(t, rows[1].Code)
	assert.Equal(t, "no secret", rows[1].Status)
	assert.NotEmpty(t, rows[1].CodeError)

	assert.Empty(t, rows[2].Code)
	assert.Contains(t, rows[2].CodeError, "invalid")
}

func TestHandleList_Text(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(CmdList))
	assert.Contains(t, h.out.String(), "No accounts")

	h.addAlice(t)
	h.writeAccount(t, "bob", `{"account_name":"bob"}`)
	require.NoError(t, h.run(CmdList))
	out := h.out.String()
	assert.Contains(t, out, "MQV58")
	assert.Contains(t, out, "not configured")
	assert.Contains(t, out, "2 account(s)")
}

func TestListNameWidth(t *testing.T) {
	tests := []struct {
		term int
		want int
	}{
		{40, listMinNameWidth},
		{80, 28},
		{90, 38},
		{300, listMaxNameWidth},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, listNameWidth(tt.term), "width %d", tt.term)
	}
}

func TestHandleList_FitsTerminal(t *testing.T) {
	h := newHarness(t)
	long := "a_rather_long_account_name_for_the_list"
	h.writeAccount(t, "long", fmt.Sprintf(`{"account_name":%q}`, long))

	h.env.Width = func() int { return 60 }
	require.NoError(t, h.run(CmdList))
	out := h.out.String()
	assert.NotContains(t, out, long)
	assert.Contains(t, out, util.TruncateWidth(long, listMinNameWidth))

	h.out.Reset()
	h.env.Width = func() int { return 200 }
	require.NoError(t, h.run(CmdList))
	assert.Contains(t, h.out.String(), long)
}

func TestHandleCode(t *testing.T) {
	h := newHarness(t)
	h.addAlice(t)

	require.NoError(t, h.run(CmdCode, "alice"))
	assert.Equal(t, "MQV58\n", h.out.String())

	// Lookup by SteamID works too.
	require.NoError(t, h.runJSON(CmdCode, testSteamID))
	data := decode[CodeData](t, h)
	assert.Equal(t, "MQV58", data.Code)
	assert.Equal(t, "alice", data.Account)
}

func TestHandleCode_Errors(t *testing.T) {
	h := newHarness(t)
	h.writeAccount(t, "bob", `{"account_name":"bob"}`)

	err := h.run(CmdCode)
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	err = h.run(CmdCode, "nobody")
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))

	err = h.run(CmdCode, "bob")
	assert.ErrorIs(t, err, steamguard.ErrMissingSecret)
	assert.Empty(t, h.out.String())
}

func TestHandleCopy(t *testing.T) {
	h := newHarness(t)
	h.addAlice(t)

	require.NoError(t, h.run(CmdCopy, "alice"))
	assert.Equal(t, []string{"MQV58"}, h.clipped)
	assert.Contains(t, h.out.String(), "Copied")

	h.env.Clipboard = func(string) error { return errors.New("no display") }
	err := h.run(CmdCopy, "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clipboard unavailable")
}

func TestHandleImportExport(t *testing.T) {
	h := newHarness(t)
	src := filepath.Join(t.TempDir(), "download.maFile")
	require.NoError(t, os.WriteFile(src, []byte(fmt.Sprintf(
		`{"account_name":"dave","shared_secret":%q,"Session":{"SteamLogin":"76561198000000009%%7C%%7Ctoken"},"extra":{"keep":1}}`,
		testSecret)), 0600))

	require.NoError(t, h.runJSON(CmdImport, src))
	imported := decode[[]ImportData](t, h)
	require.Len(t, imported, 1)
	assert.Equal(t, "dave", imported[0].ID)
	assert.Equal(t, "76561198000000009", imported[0].SteamID)

	err := h.run(CmdImport, src)
	assert.ErrorIs(t, err, account.ErrAccountExists)
	assert.Contains(t, err.Error(), "--force")

	require.NoError(t, h.run(CmdImport, "--force", src))

	dest := filepath.Join(t.TempDir(), "out.maFile")
	require.NoError(t, h.run(CmdExport, "dave", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"keep": 1`)
	assert.Contains(t, string(data), `"steamid"`)
}

func TestHandleRemove(t *testing.T) {
	h := newHarness(t)
	path := h.writeAccount(t, "bob", `{"account_name":"bob"}`)

	// Not interactive, so --confirm is required.
	err := h.run(CmdRemove, "bob")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
	assert.FileExists(t, path)

	require.NoError(t, h.run(CmdRemove, "bob", "--confirm"))
	assert.NoFileExists(t, path)
	assert.Contains(t, h.out.String(), "Removed bob")
}

func TestHandleRemove_ForgetsCachedProfile(t *testing.T) {
	srv, _ := steamServer(t, http.StatusOK)
	h := newHarness(t, func(c *config.Config) {
		c.Steam.APIURL = srv.URL
		c.Steam.APIKey = "TESTKEY"
	})
	h.addAlice(t)
	require.NoError(t, h.run(CmdProfile, "alice"))

	require.NoError(t, h.run(CmdRemove, "alice", "--confirm"))

	r, err := h.env.Resolver()
	require.NoError(t, err)
	_, err = r.Cached(context.Background(), testSteamID)
	assert.ErrorIs(t, err, profile.ErrNotCached)
}

func TestHandleRemove_NoCacheCreated(t *testing.T) {
	h := newHarness(t)
	h.addAlice(t)
	require.NoError(t, h.run(CmdRemove, "alice", "--confirm"))
	assert.NoFileExists(t, h.env.Config.Storage.CacheDB)
}

func TestEnv_ResolverPrunesOldProfiles(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cache, err := profile.OpenCache(h.env.Config.Storage.CacheDB)
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, &steamapi.Player{SteamID: "1"}, testNow.Add(-profile.Retention-time.Hour)))
	require.NoError(t, cache.Put(ctx, &steamapi.Player{SteamID: "2"}, testNow.Add(-time.Hour)))
	require.NoError(t, cache.Close())

	r, err := h.env.Resolver()
	require.NoError(t, err)
	n, err := r.CacheSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = r.Cached(ctx, "1")
	assert.ErrorIs(t, err, profile.ErrNotCached)
}

func TestConfirm_Interactive(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("yes\n"), &out)
	ok, err := p.RequireConfirmation("remove account bob", ConfirmationOptions{Interactive: true})
	require.NoError(t, err)
	assert.True(t, ok)

	p = NewPrompter(strings.NewReader("\n"), &out)
	ok, err = p.RequireConfirmation("remove account bob", ConfirmationOptions{Interactive: true})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = p.RequireConfirmation("remove account bob", ConfirmationOptions{Interactive: true, JSONMode: true})
	assert.Error(t, err)
}

// =============================================================================
// OTP INTEROP
// =============================================================================

func TestOTPAuthURI(t *testing.T) {
	acc, err := account.Parse([]byte(fmt.Sprintf(`{"account_name":"alice","shared_secret":%q}`, testSecret)))
	require.NoError(t, err)

	uri, err := OTPAuthURI(acc)
	require.NoError(t, err)

	key, err := otp.NewKeyFromURL(uri)
	require.NoError(t, err)
	assert.Equal(t, "totp", key.Type())
	assert.Equal(t, "Steam", key.Issuer())
	assert.Equal(t, "alice", key.AccountName())
	assert.Equal(t, "AAAQEAYEAUDAOCAJBIFQYDIOB4IBCEQT", key.Secret())
	assert.Equal(t, uint64(30), key.Period())
	assert.Contains(t, uri, "encoder=steam")
	assert.Contains(t, uri, "digits=5")
}

func TestOTPAuthURI_NoSecret(t *testing.T) {
	acc, err := account.Parse([]byte(`{"account_name":"bob"}`))
	require.NoError(t, err)
	_, err = OTPAuthURI(acc)
	assert.ErrorIs(t, err, steamguard.ErrMissingSecret)
}

func TestVerifyCode(t *testing.T) {
	acc, err := account.Parse([]byte(fmt.Sprintf(`{"account_name":"alice","shared_secret":%q}`, testSecret)))
	require.NoError(t, err)

	tests := []struct {
		code string
		want bool
	}{
		{"MQV58", true},
		{"mqv58", true},
		{"25J7P", true}, // next window, within skew
		{"P48QM", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := VerifyCode(acc, tt.code, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleVerify(t *testing.T) {
	h := newHarness(t)
	h.addAlice(t)

	require.NoError(t, h.runJSON(CmdVerify, "alice", "MQV58"))
	assert.True(t, decode[VerifyData](t, h).Valid)

	err := h.run(CmdVerify, "alice", "P48QM")
	assert.ErrorIs(t, err, ErrCodeMismatch)

	err = h.run(CmdVerify, "alice", "12345")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleURI(t *testing.T) {
	h := newHarness(t)
	h.addAlice(t)
	require.NoError(t, h.run(CmdURI, "alice"))
	assert.True(t, strings.HasPrefix(h.out.String(), "otpauth://totp/"))
}

// =============================================================================
// PROFILE & API KEY
// =============================================================================

func steamServer(t *testing.T, status int) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		ids := r.URL.Query().Get("steamids")
		fmt.Fprintf(w, `{"response":{"players":[{"steamid":%q,"personaname":"Alice","profileurl":"https://steamcommunity.com/id/alice/","communityvisibilitystate":3,"profilestate":1,"lastlogoff":1699990000}]}}`, ids)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestHandleProfile(t *testing.T) {
	srv, hits := steamServer(t, http.StatusOK)
	h := newHarness(t, func(c *config.Config) {
		c.Steam.APIURL = srv.URL
		c.Steam.APIKey = "TESTKEY"
	})
	h.addAlice(t)

	require.NoError(t, h.runJSON(CmdProfile, "alice"))
	data := decode[ProfileData](t, h)
	assert.Equal(t, "Alice", data.PersonaName)
	assert.Equal(t, "public", data.Visibility)
	assert.False(t, data.FromCache)
	assert.Equal(t, 1, data.CachedProfiles)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	require.NoError(t, h.runJSON(CmdProfile, "alice"))
	assert.True(t, decode[ProfileData](t, h).FromCache)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))

	// A forced refresh while offline falls back to the cache with a warning.
	offline.SetOfflineMode(true)
	require.NoError(t, h.runJSON(CmdProfile, "alice", "--refresh"))
	data = decode[ProfileData](t, h)
	assert.True(t, data.Stale)
	assert.NotEmpty(t, data.Warning)
	assert.Equal(t, int32(1), atomic.LoadInt32(hits))
}

func TestHandleProfile_NoKeyNoCache(t *testing.T) {
	h := newHarness(t)
	h.addAlice(t)
	err := h.run(CmdProfile, "alice")
	assert.ErrorIs(t, err, steamapi.ErrNoAPIKey)
	assert.Equal(t, ExitAuthError, GetExitCode(err))

	h.writeAccount(t, "bob", `{"account_name":"bob","shared_secret":"x"}`)
	err = h.run(CmdProfile, "bob")
	assert.ErrorIs(t, err, profile.ErrNoSteamID)
}

func TestHandleAPIKey_SetWithoutValidation(t *testing.T) {
	h := newHarness(t)
	h.env.In = strings.NewReader("SECRETKEY123\n")

	require.NoError(t, h.run(CmdAPIKey, "set", "--no-validate"))
	assert.NotContains(t, h.out.String(), "SECRETKEY123")
	assert.Contains(t, h.out.String(), steamapi.KeyFingerprint("SECRETKEY123"))

	saved, err := config.LoadForEdit()
	require.NoError(t, err)
	assert.Equal(t, "SECRETKEY123", saved.Steam.APIKey)

	require.NoError(t, h.runJSON(CmdAPIKey, "show"))
	shown := decode[APIKeyData](t, h)
	assert.True(t, shown.Configured)
	assert.NotContains(t, h.out.String(), "SECRETKEY123")
}

func TestHandleAPIKey_Validation(t *testing.T) {
	good, _ := steamServer(t, http.StatusOK)
	h := newHarness(t, func(c *config.Config) { c.Steam.APIURL = good.URL })
	require.NoError(t, h.runJSON(CmdAPIKey, "set", "GOODKEY"))
	data := decode[APIKeyData](t, h)
	require.NotNil(t, data.Valid)
	assert.True(t, *data.Valid)

	bad, _ := steamServer(t, http.StatusForbidden)
	h = newHarness(t, func(c *config.Config) { c.Steam.APIURL = bad.URL })
	err := h.run(CmdAPIKey, "set", "BADKEY")
	assert.ErrorIs(t, err, steamapi.ErrAuthFailed)
	assert.Equal(t, ExitAuthError, GetExitCode(err))

	saved, err := config.LoadForEdit()
	require.NoError(t, err)
	assert.Empty(t, saved.Steam.APIKey, "rejected key must not be saved")

	err = h.run(CmdAPIKey, "validate")
	assert.ErrorIs(t, err, steamapi.ErrNoAPIKey)
}

// =============================================================================
// BACKUP & CONFIG
// =============================================================================

func TestHandleBackup(t *testing.T) {
	h := newHarness(t)
	h.addAlice(t)

	require.NoError(t, h.runJSON(CmdBackup, "create"))
	created := decode[BackupData](t, h)
	assert.Equal(t, "backup_"+testNow.Format(backup.IDLayout), created.ID)
	assert.Equal(t, 1, created.Accounts)

	require.NoError(t, h.runJSON(CmdBackup))
	list := decode[[]BackupData](t, h)
	require.Len(t, list, 1)

	require.NoError(t, h.run(CmdBackup, "verify", created.ID))
	assert.Contains(t, h.out.String(), "match their checksums")

	h.writeAccount(t, "alice", `{"account_name":"alice"}`)
	err := h.run(CmdBackup, "restore", created.ID)
	assert.Equal(t, ExitUsageError, GetExitCode(err), "restore needs --confirm")

	require.NoError(t, h.run(CmdBackup, "restore", created.ID, "--confirm"))
	require.NoError(t, h.run(CmdCode, "alice"))
	assert.Equal(t, "MQV58\n", h.out.String())

	err = h.run(CmdBackup, "verify", "backup_20000101_000000")
	assert.Equal(t, ExitNotFoundError, GetExitCode(err))

	err = h.run(CmdBackup, "explode")
	assert.Equal(t, ExitUsageError, GetExitCode(err))
}

func TestHandleConfig(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(CmdConfig, "set", "storage.max_backups", "50"))
	saved, err := config.LoadForEdit()
	require.NoError(t, err)
	assert.Equal(t, 50, saved.Storage.MaxBackups)

	require.NoError(t, h.run(CmdConfig, "set", "steam.api_key", "HIDDEN"))
	assert.NotContains(t, h.out.String(), "HIDDEN")

	h.env.Config.Steam.APIKey = "HIDDEN"
	require.NoError(t, h.run(CmdConfig, "get", "steam.api_key"))
	assert.Equal(t, redactedValue+"\n", h.out.String())

	require.NoError(t, h.runJSON(CmdConfig, "show"))
	shown := decode[ConfigData](t, h)
	assert.Equal(t, redactedValue, shown.Values["steam.api_key"])
	assert.NotContains(t, h.out.String(), "HIDDEN")

	err = h.run(CmdConfig, "set", "no.such_key", "1")
	assert.Equal(t, ExitUsageError, GetExitCode(err))

	err = h.run(CmdConfig, "set", "ui.refresh_secs", "99")
	assert.Equal(t, ExitConfigError, GetExitCode(err))

	require.NoError(t, h.run(CmdConfig, "path"))
	assert.Equal(t, filepath.Join(h.home, "config.toml")+"\n", h.out.String())
}

func TestHandleConfig_SetDoesNotPersistEnv(t *testing.T) {
	h := newHarness(t)
	t.Setenv("SAM_API_KEY", "FROMENV")

	require.NoError(t, h.run(CmdConfig, "set", "ui.theme", "dark"))
	t.Setenv("SAM_API_KEY", "")

	saved, err := config.LoadForEdit()
	require.NoError(t, err)
	assert.Equal(t, "dark", saved.UI.Theme)
	assert.Empty(t, saved.Steam.APIKey)
}

// =============================================================================
// SETUP
// =============================================================================

type scriptedReader struct {
	answers []string
	prompts []string
}

func (s *scriptedReader) next(prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if len(s.answers) == 0 {
		return "", errors.New("unexpected prompt: " + prompt)
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return a, nil
}

func (s *scriptedReader) Prompt(p string) (string, error)         { return s.next(p) }
func (s *scriptedReader) PasswordPrompt(p string) (string, error) { return s.next(p) }

func TestRunSetupWizard(t *testing.T) {
	h := newHarness(t)

	importDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "x.maFile"),
		[]byte(fmt.Sprintf(`{"account_name":"erin","shared_secret":%q}`, testSecret)), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(importDir, "broken.maFile"), []byte("[]"), 0600))

	accounts := filepath.Join(h.home, "accounts")
	r := &scriptedReader{answers: []string{accounts, "WIZARDKEY", importDir, "-1", "5"}}

	res, err := RunSetupWizard(h.env, r)
	require.NoError(t, err)
	assert.Equal(t, accounts, res.AccountsDir)
	assert.True(t, res.APIKeySet)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 5, res.MaxBackups)
	assert.Equal(t, 1, res.Accounts)
	assert.Len(t, r.prompts, 5, "invalid backup count is asked again")

	saved, err := config.LoadForEdit()
	require.NoError(t, err)
	assert.Equal(t, accounts, saved.Storage.AccountsDir)
	assert.Equal(t, "WIZARDKEY", saved.Steam.APIKey)
	assert.Equal(t, 5, saved.Storage.MaxBackups)
	assert.FileExists(t, filepath.Join(accounts, "erin.maFile"))
}

func TestRunSetupWizard_Cancelled(t *testing.T) {
	h := newHarness(t)
	r := &scriptedReader{}
	_, err := RunSetupWizard(h.env, r)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(h.home, "config.toml"))
}
