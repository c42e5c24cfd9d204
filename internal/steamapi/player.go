// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package steamapi

import (
	"time"
)

// Visibility is communityvisibilitystate.
type Visibility int

const (
	VisibilityPrivate Visibility = 1
	VisibilityPublic  Visibility = 3
)

// String renders the visibility the way Steam's settings page names it.
// Any value other than private or public is treated as friends only.
func (v Visibility) String() string {
	switch v {
	case VisibilityPrivate:
		return "private"
	case VisibilityPublic:
		return "public"
	default:
		return "friends only"
	}
}

// Player is one entry of GetPlayerSummaries.
type Player struct {
	SteamID                  string `json:"steamid"`
	PersonaName              string `json:"personaname"`
	ProfileURL               string `json:"profileurl"`
	Avatar                   string `json:"avatar"`
	AvatarMedium             string `json:"avatarmedium"`
	AvatarFull               string `json:"avatarfull"`
	PersonaState             int    `json:"personastate"`
	ProfileState             int    `json:"profilestate"`
	CommunityVisibilityState int    `json:"communityvisibilitystate"`
	LastLogoff               int64  `json:"lastlogoff"`
	TimeCreated              int64  `json:"timecreated"`
	CountryCode              string `json:"loccountrycode"`
}

// Visibility returns the community visibility state.
func (p *Player) Visibility() Visibility {
	return Visibility(p.CommunityVisibilityState)
}

// ProfileConfigured reports whether the community profile has been set up.
func (p *Player) ProfileConfigured() bool {
	return p.ProfileState == 1
}

// LastLogoffTime returns the last logoff, or the zero time when hidden.
func (p *Player) LastLogoffTime() time.Time {
	if p.LastLogoff <= 0 {
		return time.Time{}
	}
	return time.Unix(p.LastLogoff, 0)
}

// AvatarURL picks the largest available avatar.
func (p *Player) AvatarURL() string {
	for _, u := range []string{p.AvatarFull, p.AvatarMedium, p.Avatar} {
		if u != "" {
			return u
		}
	}
	return ""
}

type summariesResponse struct {
	Response struct {
		Players []Player `json:"players"`
	} `json:"response"`
}
