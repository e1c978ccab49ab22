package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	EnvPrefix             = "PLANNER"
	DefaultConfigFileName = "config.toml"
	DefaultDBName         = "planner.db"
	DefaultLogName        = "planner.log"
	appDir                = "planner"
)

type Keymap struct {
	Quit       string `toml:"quit"`
	Add        string `toml:"add"`
	Up         string `toml:"up"`
	Down       string `toml:"down"`
	Delete     string `toml:"delete"`
	Detail     string `toml:"detail"`
	Confirm    string `toml:"confirm"`
	Cancel     string `toml:"cancel"`
	Edit       string `toml:"edit"`
	Search     string `toml:"search"`
	ClearQuery string `toml:"clear_query"`
	Sort       string `toml:"sort"`
	ToggleCase string `toml:"toggle_case"`
}

type Config struct {
	DBPath          string `toml:"db_path" split_words:"true"`
	LogPath         string `toml:"log_path" split_words:"true"`
	LogLevel        string `toml:"log_level" split_words:"true"`
	DefaultSort     string `toml:"default_sort" split_words:"true"`
	CaseInsensitive bool   `toml:"case_insensitive" split_words:"true"`
	Locale          string `toml:"locale" split_words:"true"`
	HighlightMarker string `toml:"highlight_marker" split_words:"true"`
	Keys            Keymap `toml:"keys" ignored:"true"`
}

// ResolveConfigPath picks $PLANNER_CONFIG, then the user config dir, then the
// working directory.
func ResolveConfigPath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appDir, DefaultConfigFileName)
	}
	return DefaultConfigFileName
}

// LoadOrCreate reads path, writing the defaults there first if it does not
// exist. Environment variables override file values. Relative db/log paths
// are resolved against the config file's directory.
func LoadOrCreate(path string) (Config, error) {
	cfg := defaultConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return cfg, err
		}
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBName
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogName
	}
	cfg.DefaultSort = strings.ToLower(strings.TrimSpace(cfg.DefaultSort))
	base := filepath.Dir(path)
	cfg.DBPath = relativeTo(base, cfg.DBPath)
	cfg.LogPath = relativeTo(base, cfg.LogPath)
	return cfg, nil
}

func ApplyEnv(cfg *Config) error {
	return envconfig.Process(EnvPrefix, cfg)
}

func relativeTo(base, p string) string {
	if filepath.IsAbs(p) || strings.HasPrefix(p, "file:") {
		return p
	}
	return filepath.Join(base, p)
}

func write(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration written on first launch.
func Default() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		DBPath:          DefaultDBName,
		LogPath:         DefaultLogName,
		LogLevel:        "info",
		DefaultSort:     "date-desc",
		CaseInsensitive: true,
		Locale:          "en",
		HighlightMarker: "<mark>%s</mark>",
		Keys: Keymap{
			Quit:       "q",
			Add:        "a",
			Up:         "k",
			Down:       "j",
			Delete:     "d",
			Detail:     "enter",
			Confirm:    "enter",
			Cancel:     "esc",
			Edit:       "e",
			Search:     "/",
			ClearQuery: "x",
			Sort:       "s",
			ToggleCase: "c",
		},
	}
}
