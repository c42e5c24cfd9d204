// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package account

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMaFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "maFiles"), nil)
	require.NoError(t, err)
	return store
}

func readJSON(t *testing.T, path string) map[string]interface{} {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

// =============================================================================
// LOAD TESTS
// =============================================================================

func TestStore_LoadAll(t *testing.T) {
	store := newTestStore(t)
	writeMaFile(t, store.Dir(), "zed.maFile", `{"account_name":"zed","shared_secret":"AAAA","identity_secret":"BBBB","steamid":"76561198000000009"}`)
	writeMaFile(t, store.Dir(), "Alice.maFile", `{"account_name":"Alice","shared_secret":"AAAA"}`)
	writeMaFile(t, store.Dir(), "broken.maFile", `{not json`)
	writeMaFile(t, store.Dir(), "notes.txt", `ignored`)
	require.NoError(t, os.Mkdir(filepath.Join(store.Dir(), "avatars"), 0700))

	accounts, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, accounts, 2, "broken file skipped")

	assert.Equal(t, "Alice", accounts[0].Name())
	assert.Equal(t, "zed", accounts[1].Name())
	assert.Equal(t, "76561198000000009", accounts[1].SteamID)
	assert.Equal(t, StatusNoIdentity, accounts[0].Status())
	assert.Equal(t, StatusReady, accounts[1].Status())
	assert.Len(t, store.Accounts(), 2)
}

func TestStore_LoadAll_WritesBackExtractedSteamID(t *testing.T) {
	store := newTestStore(t)
	path := writeMaFile(t, store.Dir(), "bob.maFile",
		`{"account_name":"bob","shared_secret":"AAAA","Session":{"SteamLogin":"76561198000000002%7C%7Ctoken","SessionID":"s"},"extra":[1,2,3]}`)

	accounts, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "76561198000000002", accounts[0].SteamID)

	stored := readJSON(t, path)
	assert.Equal(t, "76561198000000002", stored["steamid"])
	assert.Equal(t, []interface{}{1.0, 2.0, 3.0}, stored["extra"], "unknown fields preserved")
	assert.Equal(t, "s", stored["Session"].(map[string]interface{})["SessionID"])
}

func TestStore_LoadAll_KeepsKeyOrder(t *testing.T) {
	store := newTestStore(t)
	path := writeMaFile(t, store.Dir(), "alice.maFile",
		`{"shared_secret":"AAAA","account_name":"alice","Session":{"SteamID":76561198000000001}}`)

	_, err := store.LoadAll()
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	secret := strings.Index(content, `"shared_secret"`)
	name := strings.Index(content, `"account_name"`)
	session := strings.Index(content, `"Session"`)
	steamID := strings.Index(content, `"steamid"`)
	assert.True(t, secret < name && name < session && session < steamID, content)
}

func TestStore_LoadAll_NoSteamIDLeavesFileAlone(t *testing.T) {
	store := newTestStore(t)
	const content = `{"account_name":"carol","shared_secret":"AAAA"}`
	path := writeMaFile(t, store.Dir(), "carol.maFile", content)

	_, err := store.LoadAll()
	require.NoError(t, err)

	data, _ := os.ReadFile(path)
	assert.Equal(t, content, string(data))
}

func TestStore_LoadAll_ReplacesPreviousSet(t *testing.T) {
	store := newTestStore(t)
	path := writeMaFile(t, store.Dir(), "a.maFile", `{"account_name":"a"}`)
	_, err := store.LoadAll()
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))
	accounts, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, accounts)
	_, err = store.Get("a")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

// =============================================================================
// LOOKUP TESTS
// =============================================================================

func TestStore_Get(t *testing.T) {
	store := newTestStore(t)
	writeMaFile(t, store.Dir(), "file-id.maFile", `{"account_name":"Dave","steamid":"76561198000000005"}`)
	_, err := store.LoadAll()
	require.NoError(t, err)

	for _, key := range []string{"file-id", "dave", "DAVE", "76561198000000005"} {
		acc, err := store.Get(key)
		require.NoError(t, err, key)
		assert.Equal(t, "file-id", acc.ID)
	}

	_, err = store.Get("nobody")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

// =============================================================================
// IMPORT / EXPORT TESTS
// =============================================================================

func TestStore_Import(t *testing.T) {
	store := newTestStore(t)
	src := writeMaFile(t, t.TempDir(), "whatever.maFile",
		`{"account_name":"erin","shared_secret":"AAAA","Session":{"SteamID":76561198000000006}}`)

	acc, err := store.Import(src, false)
	require.NoError(t, err)
	assert.Equal(t, "erin", acc.ID)
	assert.Equal(t, "76561198000000006", acc.SteamID)

	dest := filepath.Join(store.Dir(), "erin.maFile")
	stored := readJSON(t, dest)
	assert.Equal(t, "76561198000000006", stored["steamid"])

	got, err := store.Get("erin")
	require.NoError(t, err)
	assert.Equal(t, acc, got)
}

func TestStore_Import_RefusesOverwriteUnlessForced(t *testing.T) {
	store := newTestStore(t)
	writeMaFile(t, store.Dir(), "frank.maFile", `{"account_name":"frank","shared_secret":"OLD="}`)
	src := writeMaFile(t, t.TempDir(), "new.maFile", `{"account_name":"frank","shared_secret":"NEW="}`)

	_, err := store.Import(src, false)
	assert.ErrorIs(t, err, ErrAccountExists)
	assert.Equal(t, "OLD=", readJSON(t, filepath.Join(store.Dir(), "frank.maFile"))["shared_secret"])

	_, err = store.Import(src, true)
	require.NoError(t, err)
	assert.Equal(t, "NEW=", readJSON(t, filepath.Join(store.Dir(), "frank.maFile"))["shared_secret"])
}

func TestStore_Import_NormalizesName(t *testing.T) {
	store := newTestStore(t)
	// "jose" with a combining acute accent on the e
	src := writeMaFile(t, t.TempDir(), "x.maFile", "{\"account_name\":\"jose\u0301\",\"shared_secret\":\"AAAA\"}")

	acc, err := store.Import(src, false)
	require.NoError(t, err)
	assert.Equal(t, "jos\u00e9", acc.ID)
	assert.FileExists(t, filepath.Join(store.Dir(), "jos\u00e9.maFile"))

	got, err := store.Get("JOS\u00c9")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
}

func TestStore_Import_UnknownName(t *testing.T) {
	store := newTestStore(t)
	src := writeMaFile(t, t.TempDir(), "x.maFile", `{"shared_secret":"AAAA"}`)

	acc, err := store.Import(src, false)
	require.NoError(t, err)
	assert.Equal(t, "unknown", acc.ID)
	assert.FileExists(t, filepath.Join(store.Dir(), "unknown.maFile"))
}

func TestStore_Import_Rejects(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	_, err := store.Import(writeMaFile(t, dir, "bad.maFile", `[]`), false)
	assert.ErrorIs(t, err, ErrInvalidMaFile)

	_, err = store.Import(writeMaFile(t, dir, "trav.maFile", `{"account_name":"../escape"}`), false)
	assert.ErrorIs(t, err, ErrInvalidAccountName)

	_, err = store.Import(filepath.Join(dir, "missing.maFile"), false)
	assert.Error(t, err)
}

func TestStore_Export(t *testing.T) {
	store := newTestStore(t)
	writeMaFile(t, store.Dir(), "gina.maFile", `{"account_name":"gina","shared_secret":"AAAA","custom":{"a":1}}`)
	_, err := store.LoadAll()
	require.NoError(t, err)

	outDir := t.TempDir()
	dest, err := store.Export("gina", outDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "gina.maFile"), dest)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n    \"account_name\": \"gina\"")
	assert.Contains(t, string(data), `"custom": {`)

	explicit := filepath.Join(outDir, "copy.json")
	dest, err = store.Export("gina", explicit)
	require.NoError(t, err)
	assert.Equal(t, explicit, dest)

	_, err = store.Export("nobody", outDir)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestStore_Remove(t *testing.T) {
	store := newTestStore(t)
	path := writeMaFile(t, store.Dir(), "hank.maFile", `{"account_name":"hank"}`)
	_, err := store.LoadAll()
	require.NoError(t, err)

	require.NoError(t, store.Remove("hank"))
	assert.NoFileExists(t, path)
	_, err = store.Get("hank")
	assert.ErrorIs(t, err, ErrAccountNotFound)

	assert.ErrorIs(t, store.Remove("hank"), ErrAccountNotFound)
}

func TestNewStore_RequiresDir(t *testing.T) {
	_, err := NewStore("", nil)
	assert.Error(t, err)
}
