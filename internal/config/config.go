// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/war100ck/Steam-Account-Manager/internal/util"
)

// CurrentVersion is written to saved config files.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete sam configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Offline disables every Steam Web API request.
	Offline bool `toml:"offline" json:"offline"`

	Steam   SteamConfig   `toml:"steam" json:"steam"`
	Storage StorageConfig `toml:"storage" json:"storage"`
	UI      UIConfig      `toml:"ui" json:"ui"`
	Log     LogConfig     `toml:"log" json:"log"`
}

// SteamConfig configures the Steam Web API client.
type SteamConfig struct {
	APIKey            string  `toml:"api_key" json:"api_key"`
	APIURL            string  `toml:"api_url" json:"api_url"`
	TimeoutSecs       int     `toml:"timeout_secs" json:"timeout_secs"`
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// StorageConfig locates credential files, backups and the profile cache.
type StorageConfig struct {
	AccountsDir    string `toml:"accounts_dir" json:"accounts_dir"`
	BackupsDir     string `toml:"backups_dir" json:"backups_dir"`
	CacheDB        string `toml:"cache_db" json:"cache_db"`
	MaxBackups     int    `toml:"max_backups" json:"max_backups"`
	AvatarTTLHours int    `toml:"avatar_ttl_hours" json:"avatar_ttl_hours"`
}

// UIConfig contains terminal UI configuration.
type UIConfig struct {
	RefreshSecs int    `toml:"refresh_secs" json:"refresh_secs"`
	ShowSecrets bool   `toml:"show_secrets" json:"show_secrets"`
	Theme       string `toml:"theme" json:"theme"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	Path  string `toml:"path" json:"path"`
}

// legacyConfig is the config.json written by earlier releases.
type legacyConfig struct {
	SteamAPIKey string `json:"steam_api_key"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// DefaultAPIURL is the Steam Web API base URL.
const DefaultAPIURL = "https://api.steampowered.com"

// Default returns a Config with sensible default values.
func Default() *Config {
	dir, err := ConfigDir()
	if err != nil {
		dir = ".sam"
	}

	return &Config{
		Version: CurrentVersion,
		Offline: false,

		Steam: SteamConfig{
			APIKey:            "",
			APIURL:            DefaultAPIURL,
			TimeoutSecs:       15,
			RequestsPerSecond: 1,
		},

		Storage: StorageConfig{
			AccountsDir:    filepath.Join(dir, "maFiles"),
			BackupsDir:     filepath.Join(dir, "backups"),
			CacheDB:        filepath.Join(dir, "cache.db"),
			MaxBackups:     20,
			AvatarTTLHours: 24,
		},

		UI: UIConfig{
			RefreshSecs: 1,
			ShowSecrets: false,
			Theme:       "auto",
		},

		Log: LogConfig{
			Level: "info",
			Path:  filepath.Join(dir, "sam.log"),
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the sam data directory: $SAM_HOME, or ~/.sam.
func ConfigDir() (string, error) {
	if dir := os.Getenv("SAM_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".sam"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// AvatarsDir returns the avatar cache directory inside the accounts dir.
func (c *Config) AvatarsDir() string {
	return filepath.Join(c.Storage.AccountsDir, "avatars")
}

// ensureSecurePermissions tightens a config file to 0600. It holds the API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != util.PrivateFilePerm {
		if err := os.Chmod(path, util.PrivateFilePerm); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from config.toml, falling back to config.json and
// then defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	return load(true)
}

// LoadForEdit loads the saved configuration without environment overrides,
// so that saving it back does not persist values that only came from SAM_*.
func LoadForEdit() (*Config, error) {
	return load(false)
}

func load(env bool) (*Config, error) {
	tomlPath, err := ConfigPathTOML()
	if err == nil && util.FileExists(tomlPath) {
		return loadFromPath(tomlPath, env)
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil && util.FileExists(jsonPath) {
		return loadFromPath(jsonPath, env)
	}

	cfg := Default()
	if err := cfg.finish(env); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	return loadFromPath(path, true)
}

func loadFromPath(path string, env bool) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	if err := cfg.finish(env); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish(env bool) error {
	if env {
		c.ApplyEnvOverrides()
	}
	c.Migrate()
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadTOML decodes a TOML file over cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		logrus.WithError(err).WithField("path", path).Warn("could not ensure secure config permissions")
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg. A top-level steam_api_key from the
// legacy format is carried into steam.api_key.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		logrus.WithError(err).WithField("path", path).Warn("could not ensure secure config permissions")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}

	var legacy legacyConfig
	if err := json.Unmarshal(data, &legacy); err == nil && legacy.SteamAPIKey != "" && cfg.Steam.APIKey == "" {
		cfg.Steam.APIKey = legacy.SteamAPIKey
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# sam configuration file\n")
	buf.WriteString("# Generated by sam - edit with care\n")
	buf.WriteString("#\n")
	buf.WriteString("# steam.api_key can also be set with SAM_API_KEY\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), util.PrivateFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration as indented JSON.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, util.PrivateFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every field and returns ValidateErrors, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Steam
	if u, err := url.Parse(c.Steam.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("steam.api_url", "must be an http(s) URL, got %q", c.Steam.APIURL)
	}
	if c.Steam.TimeoutSecs < 1 || c.Steam.TimeoutSecs > 300 {
		add("steam.timeout_secs", "must be 1-300, got %d", c.Steam.TimeoutSecs)
	}
	if c.Steam.RequestsPerSecond <= 0 || c.Steam.RequestsPerSecond > 100 {
		add("steam.requests_per_second", "must be greater than 0 and at most 100, got %g", c.Steam.RequestsPerSecond)
	}
	if strings.ContainsAny(c.Steam.APIKey, " \t\r\n") {
		add("steam.api_key", "must not contain whitespace")
	}

	// Storage
	if c.Storage.AccountsDir == "" {
		add("storage.accounts_dir", "must not be empty")
	}
	if c.Storage.BackupsDir == "" {
		add("storage.backups_dir", "must not be empty")
	}
	if c.Storage.MaxBackups < 0 {
		add("storage.max_backups", "cannot be negative (0 keeps every backup)")
	}
	if c.Storage.AvatarTTLHours < 1 {
		add("storage.avatar_ttl_hours", "must be at least 1, got %d", c.Storage.AvatarTTLHours)
	}

	// UI
	if c.UI.RefreshSecs < 1 || c.UI.RefreshSecs > 30 {
		add("ui.refresh_secs", "must be 1-30 so codes never go stale, got %d", c.UI.RefreshSecs)
	}
	switch strings.ToLower(c.UI.Theme) {
	case "auto", "dark", "light":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme)
	}

	// Log
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "%v", err)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero values and expands "~" in paths.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Steam.APIURL == "" {
		c.Steam.APIURL = d.Steam.APIURL
	}
	c.Steam.APIURL = strings.TrimRight(c.Steam.APIURL, "/")
	c.Steam.APIKey = strings.TrimSpace(c.Steam.APIKey)
	if c.Steam.TimeoutSecs == 0 {
		c.Steam.TimeoutSecs = d.Steam.TimeoutSecs
	}
	if c.Steam.RequestsPerSecond == 0 {
		c.Steam.RequestsPerSecond = d.Steam.RequestsPerSecond
	}

	if c.Storage.AccountsDir == "" {
		c.Storage.AccountsDir = d.Storage.AccountsDir
	}
	if c.Storage.BackupsDir == "" {
		c.Storage.BackupsDir = d.Storage.BackupsDir
	}
	if c.Storage.CacheDB == "" {
		c.Storage.CacheDB = d.Storage.CacheDB
	}
	if c.Storage.AvatarTTLHours == 0 {
		c.Storage.AvatarTTLHours = d.Storage.AvatarTTLHours
	}
	c.Storage.AccountsDir = ExpandPath(c.Storage.AccountsDir)
	c.Storage.BackupsDir = ExpandPath(c.Storage.BackupsDir)
	c.Storage.CacheDB = ExpandPath(c.Storage.CacheDB)

	if c.UI.RefreshSecs == 0 {
		c.UI.RefreshSecs = d.UI.RefreshSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Path == "" {
		c.Log.Path = d.Log.Path
	}
	c.Log.Path = ExpandPath(c.Log.Path)
}

// Migrate upgrades older config layouts in place.
func (c *Config) Migrate() {
	if c.Version != CurrentVersion {
		c.Version = CurrentVersion
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - SAM_API_KEY: overrides steam.api_key
//   - SAM_ACCOUNTS_DIR: overrides storage.accounts_dir
//   - SAM_BACKUPS_DIR: overrides storage.backups_dir
//   - SAM_OFFLINE: "1" or "true" enables offline mode
//   - SAM_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("SAM_API_KEY"); key != "" {
		c.Steam.APIKey = key
	}
	if dir := os.Getenv("SAM_ACCOUNTS_DIR"); dir != "" {
		c.Storage.AccountsDir = dir
	}
	if dir := os.Getenv("SAM_BACKUPS_DIR"); dir != "" {
		c.Storage.BackupsDir = dir
	}
	if v := os.Getenv("SAM_OFFLINE"); v != "" {
		c.Offline = parseBool(v)
	}
	if level := os.Getenv("SAM_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "ui.theme").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if field.Kind() == reflect.Struct {
		return fmt.Errorf("cannot set section %q, set one of its keys", key)
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strings.TrimSpace(strVal), 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(strVal))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return fmt.Errorf("cannot assign nil to %s", field.Type())
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"offline",
		"steam.api_key",
		"steam.api_url",
		"steam.timeout_secs",
		"steam.requests_per_second",
		"storage.accounts_dir",
		"storage.backups_dir",
		"storage.cache_db",
		"storage.max_backups",
		"storage.avatar_ttl_hours",
		"ui.refresh_secs",
		"ui.show_secrets",
		"ui.theme",
		"log.level",
		"log.path",
	}
}

// IsSecretKey reports whether key holds a credential that must be redacted.
func IsSecretKey(key string) bool {
	return strings.EqualFold(key, "steam.api_key")
}

// Clone returns a copy of the configuration. Config holds only value types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns JSON with the API key redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Steam.APIKey != "" {
		safe.Steam.APIKey = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
