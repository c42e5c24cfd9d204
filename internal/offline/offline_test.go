// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package offline

import (
	"errors"
	"testing"
)

// =============================================================================
// MODE MANAGEMENT TESTS
// =============================================================================

func TestSetOfflineMode(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	SetOfflineMode(true)
	if !IsOfflineMode() {
		t.Error("IsOfflineMode should return true after SetOfflineMode(true)")
	}

	SetOfflineMode(false)
	if IsOfflineMode() {
		t.Error("IsOfflineMode should return false after SetOfflineMode(false)")
	}
}

func TestIsOfflineMode_ThreadSafe(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				SetOfflineMode(j%2 == 0)
				_ = IsOfflineMode()
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestCheckNetworkAllowed(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	SetOfflineMode(false)
	if err := CheckNetworkAllowed(); err != nil {
		t.Errorf("online: unexpected error %v", err)
	}

	SetOfflineMode(true)
	if err := CheckNetworkAllowed(); !errors.Is(err, ErrNetworkBlocked) {
		t.Errorf("offline: got %v, want ErrNetworkBlocked", err)
	}
}

// =============================================================================
// URL VALIDATION TESTS
// =============================================================================

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{"127.0.0.1", true},
		{"127.0.0.1:8080", true},
		{"127.5.5.5", true},
		{"::1", true},
		{"[::1]:443", true},
		{"api.steampowered.com", false},
		{"10.0.0.1", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsLocalhost(tt.host); got != tt.want {
			t.Errorf("IsLocalhost(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestValidateURL(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	tests := []struct {
		name    string
		offline bool
		url     string
		want    error
	}{
		{"online https", false, "https://api.steampowered.com/", nil},
		{"online profile", false, "https://steamcommunity.com/profiles/76561197960287930", nil},
		{"file scheme", false, "file:///etc/passwd", ErrInvalidURLScheme},
		{"javascript", false, "javascript:alert(1)", ErrInvalidURLScheme},
		{"offline remote", true, "https://api.steampowered.com/", ErrNetworkBlocked},
		{"offline loopback", true, "http://127.0.0.1:9999/", nil},
		{"offline bad scheme", true, "ftp://localhost/", ErrInvalidURLScheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetOfflineMode(tt.offline)
			err := ValidateURL(tt.url)
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateURL(%q) = %v, want %v", tt.url, err, tt.want)
			}
		})
	}
}

func TestStatusBadge(t *testing.T) {
	original := IsOfflineMode()
	defer SetOfflineMode(original)

	SetOfflineMode(true)
	if StatusBadge() != "[OFFLINE]" {
		t.Errorf("StatusBadge = %q", StatusBadge())
	}
	SetOfflineMode(false)
	if StatusBadge() != "" {
		t.Errorf("StatusBadge = %q", StatusBadge())
	}
}
