/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gowhiteboard/internal/canvas"
	"gowhiteboard/internal/domain"
	"gowhiteboard/internal/undo"
	"gowhiteboard/internal/vector"
	"gowhiteboard/internal/workspace"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// The PostgreSQL password is never written to the file; it lives in the OS keyring.

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

type CanvasConfig struct {
	MinZoom         float64 `yaml:"min_zoom"`
	MaxZoom         float64 `yaml:"max_zoom"`
	ZoomStep        float64 `yaml:"zoom_step"`
	SpawnX          float64 `yaml:"spawn_x"`
	SpawnY          float64 `yaml:"spawn_y"`
	Jitter          float64 `yaml:"jitter"`
	AnchorX         float64 `yaml:"anchor_x"`
	AnchorY         float64 `yaml:"anchor_y"`
	TextBoxFontSize float64 `yaml:"text_box_font_size"`
	TextBoxWidth    float64 `yaml:"text_box_width"`
	ToastSeconds    int     `yaml:"toast_seconds"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"` // file | sqlite | postgres
	Dir         string `yaml:"dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Backups     int    `yaml:"backups"`
}

type HistoryConfig struct {
	MaxPerBoard int `yaml:"max_per_board"`
	CoalesceMs  int `yaml:"coalesce_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Storage       StorageConfig `yaml:"storage"`
	History       HistoryConfig `yaml:"history"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Canvas: CanvasConfig{
			MinZoom: 0.5, MaxZoom: 2.0, ZoomStep: 0.1,
			SpawnX: 100, SpawnY: 100, Jitter: 200,
			AnchorX: 75, AnchorY: 25,
			TextBoxFontSize: 16, TextBoxWidth: 200,
			ToastSeconds: 3,
		},
		Storage: StorageConfig{Driver: "file", Dir: defaultDataDir(), Backups: 5},
		History: HistoryConfig{MaxPerBoard: 100, CoalesceMs: 500},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "GWB_CONFIG"
	EnvTelemetryOptIn = "GWB_TELEMETRY_OPT_IN"
	EnvStorageDriver  = "GWB_STORAGE_DRIVER"
	EnvStorageDir     = "GWB_STORAGE_DIR"
	EnvPostgresDSN    = "GWB_PG_DSN"
	EnvZoomStep       = "GWB_ZOOM_STEP"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GWB_LOG_LEVEL"
	EnvLogFormat = "GWB_LOG_FORMAT"
	EnvLogSource = "GWB_LOG_SOURCE"
	EnvLogFile   = "GWB_LOG_FILE"
)

// appDir returns "" when the user directory cannot be resolved.
func appDir() string {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("AppData")
		if base == "" { // fallback
			if up := os.Getenv("USERPROFILE"); up != "" {
				base = filepath.Join(up, "AppData", "Roaming")
			}
		}
		if base == "" {
			return ""
		}
		return filepath.Join(base, "GoWhiteboard")
	case "darwin":
		if h := os.Getenv("HOME"); h != "" {
			return filepath.Join(h, "Library", "Application Support", "GoWhiteboard")
		}
		return ""
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			return filepath.Join(x, "gowhiteboard")
		}
		if h := os.Getenv("HOME"); h != "" {
			return filepath.Join(h, ".config", "gowhiteboard")
		}
		return ""
	}
}

func defaultDataDir() string {
	if d := appDir(); d != "" {
		return filepath.Join(d, "boards")
	}
	return "boards"
}

// ConfigPath returns the per-user config file path. GWB_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base := appDir()
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also returns the PostgreSQL password from the keyring (not kept inside the struct).
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return cfg, "", err
	}
	pw, _ := secretStore.Get(keyringService, keyringPostgres)
	return cfg, pw, nil
}

// LoadFrom is Load for an explicit path without the keyring lookup. A missing
// file is not an error; a malformed one is.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML and persists the password into the OS keyring (if non-empty).
func Save(cfg AppConfig, pgPassword string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := SaveTo(path, cfg); err != nil {
		return err
	}
	if pgPassword != "" {
		if err := secretStore.Set(keyringService, keyringPostgres, pgPassword); err != nil {
			return fmt.Errorf("store password: %w", err)
		}
	}
	return nil
}

// SaveTo writes cfg as YAML to path.
func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	pos := func(d *float64, s float64) {
		if s > 0 {
			*d = s
		}
	}
	c, s := &dst.Canvas, src.Canvas
	pos(&c.MinZoom, s.MinZoom)
	pos(&c.MaxZoom, s.MaxZoom)
	pos(&c.ZoomStep, s.ZoomStep)
	pos(&c.Jitter, s.Jitter)
	pos(&c.TextBoxFontSize, s.TextBoxFontSize)
	pos(&c.TextBoxWidth, s.TextBoxWidth)
	// spawn and anchor may legitimately be zero or negative
	if s.SpawnX != 0 || s.SpawnY != 0 {
		c.SpawnX, c.SpawnY = s.SpawnX, s.SpawnY
	}
	if s.AnchorX != 0 || s.AnchorY != 0 {
		c.AnchorX, c.AnchorY = s.AnchorX, s.AnchorY
	}
	if s.ToastSeconds > 0 {
		c.ToastSeconds = s.ToastSeconds
	}

	if v := strings.ToLower(strings.TrimSpace(src.Storage.Driver)); v != "" {
		dst.Storage.Driver = v
	}
	if v := strings.TrimSpace(src.Storage.Dir); v != "" {
		dst.Storage.Dir = v
	}
	if v := strings.TrimSpace(src.Storage.PostgresDSN); v != "" {
		dst.Storage.PostgresDSN = v
	}
	if src.Storage.Backups > 0 {
		dst.Storage.Backups = src.Storage.Backups
	}
	if src.History.MaxPerBoard > 0 {
		dst.History.MaxPerBoard = src.History.MaxPerBoard
	}
	if src.History.CoalesceMs > 0 {
		dst.History.CoalesceMs = src.History.CoalesceMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDriver)); v != "" {
		cfg.Storage.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDir)); v != "" {
		cfg.Storage.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPostgresDSN)); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvZoomStep)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Canvas.ZoomStep = f
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envByKey = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"storage.driver":           EnvStorageDriver,
	"storage.dir":              EnvStorageDir,
	"storage.postgres_dsn":     EnvPostgresDSN,
	"canvas.zoom_step":         EnvZoomStep,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// Keys lists the settings that have an environment override, sorted.
func Keys() []string {
	keys := make([]string, 0, len(envByKey))
	for k := range envByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Limits converts the zoom settings.
func (c CanvasConfig) Limits() canvas.Limits {
	return canvas.Limits{MinZoom: c.MinZoom, MaxZoom: c.MaxZoom, Step: c.ZoomStep}
}

// Placement converts the spawn window settings.
func (c CanvasConfig) Placement() workspace.Placement {
	return workspace.Placement{Spawn: domain.Position{X: c.SpawnX, Y: c.SpawnY}, Jitter: c.Jitter}
}

// TextBox converts the text box defaults.
func (c CanvasConfig) TextBox() workspace.TextBoxDefaults {
	return workspace.TextBoxDefaults{FontSize: c.TextBoxFontSize, Width: c.TextBoxWidth}
}

// Anchor is the node connection anchor offset.
func (c CanvasConfig) Anchor() vector.Pt { return vector.Pt{X: c.AnchorX, Y: c.AnchorY} }

// Toast is how long the terminal UI shows a notification.
func (c CanvasConfig) Toast() time.Duration { return time.Duration(c.ToastSeconds) * time.Second }

// Undo converts the history settings.
func (h HistoryConfig) Undo() undo.Config {
	return undo.Config{MaxPerBoard: h.MaxPerBoard, MinInterval: time.Duration(h.CoalesceMs) * time.Millisecond}
}
