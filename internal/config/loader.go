package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// FileName is the settings file inside the base directory
const FileName = "settings.ini"

const sectionName = "Settings"

// Settings holds every user tunable
type Settings struct {
	// Session
	Mode              string
	WindowKeyword     string
	FallbackRandom    bool
	PostMarkerDelay   float64 // seconds, 0..10
	MaxLoops          int     // 0 = unlimited, 0..10000
	AutoStopSeconds   int     // 0 = disabled, 0..86400
	AcceptancePolicy  string  // sum | hits
	WeaponDocument    string
	CharacterDocument string
	History           bool

	// Matching and polling
	Threshold      float64 // 0.1..1.0
	RetryInterval  float64 // seconds
	TimeoutSeconds float64
	PostClickWait  float64 // seconds

	// Cosmetic
	Theme string
}

// Default returns the stock settings
func Default() *Settings {
	return &Settings{
		Mode:             "55mod",
		WindowKeyword:    "二重螺旋",
		PostMarkerDelay:  1.3,
		AcceptancePolicy: "sum",
		History:          true,
		Threshold:        0.85,
		RetryInterval:    1.0,
		TimeoutSeconds:   300,
		PostClickWait:    1.5,
		Theme:            "cosmo",
	}
}

// Clamp forces every value into its valid range
func (s *Settings) Clamp() {
	s.PostMarkerDelay = clampFloat(s.PostMarkerDelay, 0, 10)
	s.MaxLoops = clampInt(s.MaxLoops, 0, 10000)
	s.AutoStopSeconds = clampInt(s.AutoStopSeconds, 0, 86400)
	s.Threshold = clampFloat(s.Threshold, 0.1, 1.0)
	s.RetryInterval = clampFloat(s.RetryInterval, 0.05, 60)
	s.TimeoutSeconds = clampFloat(s.TimeoutSeconds, 0.1, 86400)
	s.PostClickWait = clampFloat(s.PostClickWait, 0, 60)

	switch p := strings.ToLower(strings.TrimSpace(s.AcceptancePolicy)); p {
	case "sum", "hits":
		s.AcceptancePolicy = p
	default:
		s.AcceptancePolicy = "sum"
	}
	s.Mode = strings.TrimSpace(s.Mode)
	if s.Mode == "" {
		s.Mode = "55mod"
	}
}

// PostMarker returns the settle delay after the in-scenario marker
func (s Settings) PostMarker() time.Duration { return seconds(s.PostMarkerDelay) }

// AutoStop returns the auto-stop duration, zero when disabled
func (s Settings) AutoStop() time.Duration { return time.Duration(s.AutoStopSeconds) * time.Second }

// Retry returns the marker polling interval
func (s Settings) Retry() time.Duration { return seconds(s.RetryInterval) }

// Timeout returns the marker wait limit
func (s Settings) Timeout() time.Duration { return seconds(s.TimeoutSeconds) }

// AfterClick returns the settle time after a marker click
func (s Settings) AfterClick() time.Duration { return seconds(s.PostClickWait) }

// Load reads settings from path. A missing file yields defaults; any value
// that cannot be parsed falls back to its default.
func Load(path string) (*Settings, error) {
	s := Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return s, nil
	}

	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	section := cfg.Section(sectionName)

	s.Mode = section.Key("mode").MustString(s.Mode)
	s.WindowKeyword = section.Key("window_keyword").MustString(s.WindowKeyword)
	s.FallbackRandom = section.Key("fail_fallback_random").MustBool(s.FallbackRandom)
	s.PostMarkerDelay = section.Key("post_likai_delay").MustFloat64(s.PostMarkerDelay)
	s.MaxLoops = section.Key("max_loops").MustInt(s.MaxLoops)
	s.AutoStopSeconds = section.Key("auto_stop_seconds").MustInt(s.AutoStopSeconds)
	s.AcceptancePolicy = section.Key("acceptance_policy").MustString(s.AcceptancePolicy)
	s.WeaponDocument = section.Key("weapon_document").MustString(s.WeaponDocument)
	s.CharacterDocument = section.Key("character_document").MustString(s.CharacterDocument)
	s.History = section.Key("history").MustBool(s.History)

	s.Threshold = section.Key("threshold").MustFloat64(s.Threshold)
	s.RetryInterval = section.Key("retry_interval").MustFloat64(s.RetryInterval)
	s.TimeoutSeconds = section.Key("timeout_seconds").MustFloat64(s.TimeoutSeconds)
	s.PostClickWait = section.Key("post_click_wait").MustFloat64(s.PostClickWait)

	s.Theme = section.Key("theme").MustString(s.Theme)

	s.Clamp()
	return s, nil
}

// Save clamps s and writes it to path, creating the directory
func Save(s *Settings, path string) error {
	s.Clamp()
	cfg := ini.Empty()
	section := cfg.Section(sectionName)

	section.Key("mode").SetValue(s.Mode)
	section.Key("window_keyword").SetValue(s.WindowKeyword)
	section.Key("fail_fallback_random").SetValue(fmt.Sprintf("%t", s.FallbackRandom))
	section.Key("post_likai_delay").SetValue(formatFloat(s.PostMarkerDelay))
	section.Key("max_loops").SetValue(fmt.Sprintf("%d", s.MaxLoops))
	section.Key("auto_stop_seconds").SetValue(fmt.Sprintf("%d", s.AutoStopSeconds))
	section.Key("acceptance_policy").SetValue(s.AcceptancePolicy)
	section.Key("weapon_document").SetValue(s.WeaponDocument)
	section.Key("character_document").SetValue(s.CharacterDocument)
	section.Key("history").SetValue(fmt.Sprintf("%t", s.History))

	section.Key("threshold").SetValue(formatFloat(s.Threshold))
	section.Key("retry_interval").SetValue(formatFloat(s.RetryInterval))
	section.Key("timeout_seconds").SetValue(formatFloat(s.TimeoutSeconds))
	section.Key("post_click_wait").SetValue(formatFloat(s.PostClickWait))

	section.Key("theme").SetValue(s.Theme)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}

func clampFloat(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
