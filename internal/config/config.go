package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// RosterMember is one canonical identity with the aliases that resolve to it.
type RosterMember struct {
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

// GameConfig carries deployment-specific game settings.
type GameConfig struct {
	// Roster is the fixed set of canonical participants; the session
	// auto-closes once all of them contributed.
	Roster []RosterMember `json:"roster"`
	// AutoCloseEnabled controls whether a full roster closes the session
	// automatically. Unset means enabled.
	AutoCloseEnabled *bool `json:"auto_close_enabled"`
	// ShareTokenTTLSeconds controls how long a poem share token stays valid.
	ShareTokenTTLSeconds int `json:"share_token_ttl_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// defaultRoster is the reference deployment: five friends and the nicknames
// they actually type.
var defaultRoster = []RosterMember{
	{Name: "Valen", Aliases: []string{"vale", "valentina"}},
	{Name: "Alexia", Aliases: []string{"ale"}},
	{Name: "Bicha", Aliases: []string{"sofia"}},
	{Name: "Camila", Aliases: []string{"cami"}},
	{Name: "Maca", Aliases: []string{"macarena"}},
}

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetRoster returns the configured roster, or the reference roster when no
// config was loaded.
func GetRoster() []RosterMember {
	if cfg == nil || len(cfg.Roster) == 0 {
		return defaultRoster
	}
	return cfg.Roster
}

// GetAutoCloseEnabled reports whether a complete roster closes the session
// automatically. Enabled unless the config explicitly turns it off.
func GetAutoCloseEnabled() bool {
	if cfg == nil || cfg.AutoCloseEnabled == nil {
		return true
	}
	return *cfg.AutoCloseEnabled
}

// GetShareTokenTTLSeconds returns the share token lifetime.
func GetShareTokenTTLSeconds() int {
	if cfg == nil || cfg.ShareTokenTTLSeconds <= 0 {
		return 3600 // Safe default
	}
	return cfg.ShareTokenTTLSeconds
}
