package models

import (
	"fmt"
	"strings"
)

// ProviderName identifies one upstream source.
type ProviderName string

const (
	AllAnime ProviderName = "allanime"
	HiAnime  ProviderName = "hianime"
	AniWatch ProviderName = "aniwatch"
	Anikai   ProviderName = "anikai"
)

// ProviderNames lists every known provider in registration order.
var ProviderNames = []ProviderName{AllAnime, HiAnime, AniWatch, Anikai}

// ParseProviderName validates a user supplied provider name.
func ParseProviderName(s string) (ProviderName, error) {
	name := ProviderName(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range ProviderNames {
		if name == known {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown provider: %s", s)
}

func (p ProviderName) String() string { return string(p) }

// ProviderRef pairs an id with the provider that issued it. Ids are not
// portable, so every call that takes an id should receive a ProviderRef.
type ProviderRef struct {
	Provider ProviderName `json:"provider"`
	ID       string       `json:"id"`
}

func (r ProviderRef) String() string {
	return string(r.Provider) + ":" + r.ID
}

// Mode selects the audio track.
type Mode string

const (
	ModeSub Mode = "sub"
	ModeDub Mode = "dub"
	ModeRaw Mode = "raw"
)

// ParseMode returns the mode for s, defaulting to sub for empty input.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSub:
		return ModeSub, nil
	case ModeDub:
		return ModeDub, nil
	case ModeRaw:
		return ModeRaw, nil
	}
	return "", fmt.Errorf("invalid mode: %s", s)
}

// VideoSource is a final playable url.
type VideoSource struct {
	URL     string            `json:"url"`
	IsHLS   bool              `json:"isHLS"`
	Quality string            `json:"quality"`
	Headers map[string]string `json:"headers,omitempty"`
	// Mode is the track actually served, which may differ from the one
	// requested when a provider substitutes a raw server.
	Mode Mode `json:"mode,omitempty"`
	// Provider is the adapter that produced the link.
	Provider ProviderName `json:"provider,omitempty"`
}

// Server is an intermediate hosting option for one episode.
type Server struct {
	ID   string `json:"serverId"`
	Name string `json:"serverName"`
	Mode Mode   `json:"type"`
}
