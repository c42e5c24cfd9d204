// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package steamguard

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// Period is the code lifetime in seconds.
	Period = 30

	// CodeLength is the number of characters in a code.
	CodeLength = 5

	// Alphabet is the Steam Guard symbol set. Visually ambiguous characters
	// are excluded.
	Alphabet = "23456789BCDFGHJKMNPQRTVWXY"
)

// =============================================================================
// CODE GENERATION
// =============================================================================

// GenerateCode returns the Steam Guard code for sharedSecret at now.
//
// It never panics. Failures are *CodeError values matching ErrMissingSecret,
// ErrInvalidSecret or ErrComputation.
func GenerateCode(sharedSecret string, now time.Time) (code string, err error) {
	defer func() {
		if r := recover(); r != nil {
			code = ""
			err = computationError(fmt.Errorf("panic: %v", r))
		}
	}()

	key, err := DecodeSecret(sharedSecret)
	if err != nil {
		return "", err
	}

	counter := Counter(now)
	if counter < 0 {
		return "", computationError(errors.New("time is before the unix epoch"))
	}

	return codeAt(key, uint64(counter))
}

// DecodeSecret decodes a Base64 shared secret. Missing trailing '=' padding
// is tolerated.
func DecodeSecret(sharedSecret string) ([]byte, error) {
	s := strings.TrimSpace(sharedSecret)
	if s == "" {
		return nil, missingSecret()
	}

	s = strings.TrimRight(s, "=")
	if s == "" {
		return nil, invalidSecret(errors.New("secret is only padding"))
	}
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}

	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, invalidSecret(err)
	}
	if len(key) == 0 {
		return nil, invalidSecret(errors.New("secret decodes to zero bytes"))
	}
	return key, nil
}

// codeAt runs HOTP with Steam's output encoding for one counter value.
func codeAt(key []byte, counter uint64) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	if _, err := mac.Write(msg[:]); err != nil {
		return "", computationError(err)
	}
	sum := mac.Sum(nil)
	if len(sum) != sha1.Size {
		return "", computationError(fmt.Errorf("unexpected digest length %d", len(sum)))
	}

	return encode(truncate(sum)), nil
}

// truncate is RFC 4226 dynamic truncation with the sign bit cleared.
func truncate(sum []byte) uint32 {
	offset := sum[sha1.Size-1] & 0x0F
	return binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7FFFFFFF
}

// encode renders v least-significant digit first.
func encode(v uint32) string {
	var buf [CodeLength]byte
	for i := range buf {
		buf[i] = Alphabet[v%uint32(len(Alphabet))]
		v /= uint32(len(Alphabet))
	}
	return string(buf[:])
}

// =============================================================================
// TIME WINDOWS
// =============================================================================

// Counter returns floor(unix seconds / Period).
func Counter(t time.Time) int64 {
	sec := t.Unix()
	c := sec / Period
	if sec%Period < 0 {
		c--
	}
	return c
}

// WindowStart returns the first second of the window containing t.
func WindowStart(t time.Time) time.Time {
	return time.Unix(Counter(t)*Period, 0).In(t.Location())
}

// Remaining returns how long the code valid at t stays valid.
func Remaining(t time.Time) time.Duration {
	end := WindowStart(t).Add(Period * time.Second)
	return end.Sub(t)
}

// IsValidCode reports whether s has the length and alphabet of a code.
func IsValidCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(Alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}
