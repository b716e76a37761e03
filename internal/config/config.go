// Package config loads ottoflow settings from a TOML file, a .env file and
// OTTOFLOW_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultPath is the config file read when none is given.
const DefaultPath = "ottoflow.toml"

var (
	// ErrNotFound indicates the config file does not exist.
	ErrNotFound = errors.New("config file not found")

	// ErrInvalid indicates a setting has an unusable value.
	ErrInvalid = errors.New("invalid config")
)

// Config is the full set of settings.
type Config struct {
	Recipes  RecipesConfig  `toml:"recipes"`
	Sessions SessionsConfig `toml:"sessions"`
	Log      LogConfig      `toml:"log"`
	Diagram  DiagramConfig  `toml:"diagram"`
	Cook     CookConfig     `toml:"cook"`
}

// RecipesConfig says where recipe files live.
type RecipesConfig struct {
	// Dir holds .hcl, .toml and .yaml recipe files. Empty means built-in
	// recipes only.
	Dir string `toml:"dir"`

	// DefaultServings is used when a session is started without a
	// serving count. Zero keeps each recipe's own yield.
	DefaultServings int `toml:"default_servings"`
}

// SessionsConfig selects the session store.
type SessionsConfig struct {
	Store string `toml:"store"` // "file" or "memory"
	Dir   string `toml:"dir"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `toml:"level"`  // off, normal, verbose
	File   string `toml:"file"`   // "stderr" logs to the console
	Format string `toml:"format"` // text or json
}

// DiagramConfig sets Mermaid output defaults.
type DiagramConfig struct {
	Direction string `toml:"direction"`
	Kind      string `toml:"kind"`
}

// CookConfig tunes cook mode.
type CookConfig struct {
	Chime bool `toml:"chime"`
	Plain bool `toml:"plain"`

	// RemindAfter is how long a session may sit idle with ready steps
	// before the cook is reminded, as a Go duration ("10m"). "0" turns
	// reminders off.
	RemindAfter string `toml:"remind_after"`
}

// Reminder returns RemindAfter as a duration. Call Validate first.
func (c CookConfig) Reminder() time.Duration {
	if c.RemindAfter == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.RemindAfter)
	return d
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Recipes: RecipesConfig{Dir: "recipes"},
		Sessions: SessionsConfig{
			Store: "file",
			Dir:   ".ottoflow/sessions",
		},
		Log: LogConfig{
			Level:  "normal",
			File:   ".ottoflow/ottoflow.log",
			Format: "text",
		},
		Diagram: DiagramConfig{
			Direction: "TB",
			Kind:      "flowchart",
		},
		Cook: CookConfig{
			Chime:       true,
			RemindAfter: "10m",
		},
	}
}

// Load reads path over the defaults, then applies the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the user
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if !errors.Is(err, ErrNotFound) {
		return cfg, err
	}
	cfg = Default()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes TOML content over the defaults. Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: unknown keys %s", ErrInvalid, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment.
// Missing files are skipped; variables already set are kept.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Environment variables that override file settings.
const (
	EnvRecipesDir       = "OTTOFLOW_RECIPES_DIR"
	EnvDefaultServings  = "OTTOFLOW_DEFAULT_SERVINGS"
	EnvSessionStore     = "OTTOFLOW_SESSION_STORE"
	EnvSessionsDir      = "OTTOFLOW_SESSIONS_DIR"
	EnvLogLevel         = "OTTOFLOW_LOG_LEVEL"
	EnvLogFile          = "OTTOFLOW_LOG_FILE"
	EnvLogFormat        = "OTTOFLOW_LOG_FORMAT"
	EnvDiagramDirection = "OTTOFLOW_DIAGRAM_DIRECTION"
	EnvChime            = "OTTOFLOW_CHIME"
	EnvRemindAfter      = "OTTOFLOW_REMIND_AFTER"
)

// ApplyEnv overrides settings from lookup, normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{EnvRecipesDir, &c.Recipes.Dir},
		{EnvSessionStore, &c.Sessions.Store},
		{EnvSessionsDir, &c.Sessions.Dir},
		{EnvLogLevel, &c.Log.Level},
		{EnvLogFile, &c.Log.File},
		{EnvLogFormat, &c.Log.Format},
		{EnvDiagramDirection, &c.Diagram.Direction},
		{EnvRemindAfter, &c.Cook.RemindAfter},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok {
			*s.dst = v
		}
	}

	if v, ok := lookup(EnvDefaultServings); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalid, EnvDefaultServings, v)
		}
		c.Recipes.DefaultServings = n
	}
	if v, ok := lookup(EnvChime); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", ErrInvalid, EnvChime, v)
		}
		c.Cook.Chime = b
	}
	return nil
}

// Validate checks every setting with a closed set of values.
func (c *Config) Validate() error {
	if c.Recipes.DefaultServings < 0 {
		return fmt.Errorf("%w: default_servings must not be negative", ErrInvalid)
	}
	switch c.Sessions.Store {
	case "file":
		if c.Sessions.Dir == "" {
			return fmt.Errorf("%w: sessions.dir is required for the file store", ErrInvalid)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: sessions.store %q (must be file or memory)", ErrInvalid, c.Sessions.Store)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "off", "quiet", "none", "normal", "info", "verbose", "debug":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalid, c.Log.Level)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (must be text or json)", ErrInvalid, c.Log.Format)
	}
	switch strings.ToUpper(c.Diagram.Direction) {
	case "", "TB", "TD", "LR", "BT", "RL":
	default:
		return fmt.Errorf("%w: diagram.direction %q", ErrInvalid, c.Diagram.Direction)
	}
	switch c.Diagram.Kind {
	case "", "flowchart", "graph":
	default:
		return fmt.Errorf("%w: diagram.kind %q (must be flowchart or graph)", ErrInvalid, c.Diagram.Kind)
	}
	if c.Cook.RemindAfter != "" {
		d, err := time.ParseDuration(c.Cook.RemindAfter)
		if err != nil || d < 0 {
			return fmt.Errorf("%w: cook.remind_after %q", ErrInvalid, c.Cook.RemindAfter)
		}
	}
	return nil
}
