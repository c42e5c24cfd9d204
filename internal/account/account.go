// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package account

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/war100ck/Steam-Account-Manager/internal/steamguard"
	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// FileExt is the credential file extension.
const FileExt = ".maFile"

// steamLoginSeparator is the URL-encoded "||" in Session.SteamLogin.
const steamLoginSeparator = "%7C%7C"

// =============================================================================
// STATUS
// =============================================================================

// Status summarises which secrets an account carries.
type Status int

const (
	// StatusNoSecret means no shared_secret, so no codes.
	StatusNoSecret Status = iota
	// StatusNoIdentity means codes work but confirmations would not.
	StatusNoIdentity
	// StatusReady means both secrets are present.
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusNoSecret:
		return "no secret"
	case StatusNoIdentity:
		return "no identity"
	default:
		return "ready"
	}
}

// =============================================================================
// ACCOUNT
// =============================================================================

// Account is one parsed maFile. Fields not modelled here are kept verbatim
// and written back unchanged.
type Account struct {
	// ID is the file name without the .maFile extension.
	ID string `json:"-"`
	// Path is the file location, empty for records not yet stored.
	Path string `json:"-"`

	AccountName    string `json:"account_name"`
	SharedSecret   string `json:"shared_secret"`
	IdentitySecret string `json:"identity_secret"`
	RevocationCode string `json:"revocation_code"`
	SerialNumber   string `json:"serial_number"`
	DeviceID       string `json:"device_id"`

	// SteamID is the 64-bit ID as decimal text, resolved by ExtractSteamID.
	SteamID string `json:"steamid"`

	fields map[string]json.RawMessage
	// order is the top-level key order of the file. New keys are appended.
	order []string
}

// Parse decodes a maFile. The document must be a JSON object.
func Parse(data []byte) (*Account, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMaFile, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrInvalidMaFile)
	}

	order, err := keyOrder(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMaFile, err)
	}

	a := &Account{fields: fields, order: order}
	a.AccountName = stringField(fields, "account_name")
	a.SharedSecret = stringField(fields, "shared_secret")
	a.IdentitySecret = stringField(fields, "identity_secret")
	a.RevocationCode = stringField(fields, "revocation_code")
	a.SerialNumber = stringField(fields, "serial_number")
	a.DeviceID = stringField(fields, "device_id")
	a.SteamID = ExtractSteamID(fields)
	return a, nil
}

// Name returns the account name, falling back to the file ID.
func (a *Account) Name() string {
	if a.AccountName != "" {
		return a.AccountName
	}
	return a.ID
}

// Status reports which secrets are configured.
func (a *Account) Status() Status {
	switch {
	case strings.TrimSpace(a.SharedSecret) == "":
		return StatusNoSecret
	case strings.TrimSpace(a.IdentitySecret) == "":
		return StatusNoIdentity
	default:
		return StatusReady
	}
}

// SecretError returns nil when the shared secret decodes, otherwise the
// steamguard error describing why it does not.
func (a *Account) SecretError() error {
	_, err := steamguard.DecodeSecret(a.SharedSecret)
	return err
}

// HasStoredSteamID reports whether the file itself carries a top-level
// steamid, as opposed to one derived from the session.
func (a *Account) HasStoredSteamID() bool {
	return stringField(a.fields, "steamid") != ""
}

// SetSteamID records id as the top-level steamid field.
func (a *Account) SetSteamID(id string) {
	a.SteamID = id
	a.set("steamid", id)
}

// MarshalIndent encodes the record with 4-space indentation. Keys keep the
// order they had in the file and unknown fields are emitted unchanged.
func (a *Account) MarshalIndent() ([]byte, error) {
	keys := a.keys()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n    ")
		key, err := encodeString(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteString(": ")
		if err := json.Indent(&buf, a.fields[name], "    ", "    "); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
	}
	if len(keys) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// keys returns the field names in file order. Fields missing from the
// recorded order follow, sorted.
func (a *Account) keys() []string {
	seen := make(map[string]bool, len(a.fields))
	keys := make([]string, 0, len(a.fields))
	for _, k := range a.order {
		if _, ok := a.fields[k]; ok && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range a.fields {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// encodeString quotes s as a JSON string without HTML escaping.
func encodeString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// keyOrder lists the top-level keys of a JSON object in document order.
func keyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("not a JSON object")
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// MaskedRevocationCode hides all but the last two characters.
func (a *Account) MaskedRevocationCode() string {
	return util.Mask(a.RevocationCode, 2)
}

func (a *Account) set(name, value string) {
	if a.fields == nil {
		a.fields = map[string]json.RawMessage{}
	}
	if _, ok := a.fields[name]; !ok {
		a.order = append(a.order, name)
	}
	raw, _ := json.Marshal(value)
	a.fields[name] = raw
}

// =============================================================================
// STEAMID EXTRACTION
// =============================================================================

// ExtractSteamID finds the account's SteamID in a decoded maFile. Sources in
// order: Session.SteamID, top-level steamid, the prefix of
// Session.SteamLogin before "%7C%7C", and an all-digit account_name. The
// first non-empty source wins. Returns "" when none applies.
func ExtractSteamID(fields map[string]json.RawMessage) string {
	session := sessionFields(fields)

	if id := scalarText(session["SteamID"]); id != "" && id != "0" {
		return id
	}
	if id := stringField(fields, "steamid"); id != "" && id != "0" {
		return id
	}
	if login := scalarText(session["SteamLogin"]); strings.Contains(login, steamLoginSeparator) {
		if id := strings.SplitN(login, steamLoginSeparator, 2)[0]; id != "" {
			return id
		}
	}
	if name := stringField(fields, "account_name"); util.IsDigits(name) {
		return name
	}
	return ""
}

func sessionFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	raw, ok := fields["Session"]
	if !ok {
		return nil
	}
	var session map[string]json.RawMessage
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil
	}
	return session
}

func stringField(fields map[string]json.RawMessage, name string) string {
	return scalarText(fields[name])
}

// scalarText returns a JSON string's value or a JSON number's literal text.
// SteamIDs exceed float64 precision, so numbers are never decoded.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	default:
		return ""
	}
}
