package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the bootstrap configuration of an application built on the
// container.
type Config struct {
	App   AppConfig   `yaml:"app"`
	Log   LogConfig   `yaml:"log"`
	Debug DebugConfig `yaml:"debug"`
}

type AppConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"` // local | production | testing
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // console | json
}

// DebugConfig controls the HTTP container inspector.
type DebugConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Prefix  string `yaml:"prefix"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		App:   AppConfig{Name: "go-provide", Env: "local"},
		Log:   LogConfig{Level: "info", Format: "console"},
		Debug: DebugConfig{Enabled: false, Addr: ":8086", Prefix: "/debug/container"},
	}
}

// Load builds a Config in three layers: defaults, then the YAML file named
// by CONFIG_FILE (if set), then environment variables. The .env files are
// loaded first so they can set CONFIG_FILE too.
// Call once at bootstrap: cfg, err := config.Load()
func Load(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	base := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := readYAML(path, base); err != nil {
			return nil, err
		}
	}

	return &Config{
		App: AppConfig{
			Name: env("APP_NAME", base.App.Name),
			Env:  env("APP_ENV", base.App.Env),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", base.Log.Level),
			Format: env("LOG_FORMAT", base.Log.Format),
		},
		Debug: DebugConfig{
			Enabled: envBool("DEBUG_ENABLED", base.Debug.Enabled),
			Addr:    env("DEBUG_ADDR", base.Debug.Addr),
			Prefix:  env("DEBUG_PREFIX", base.Debug.Prefix),
		},
	}, nil
}

func readYAML(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
