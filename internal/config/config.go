// Package config loads denttrack settings from a config file, DENTTRACK_*
// environment variables and defaults, in increasing order of precedence:
// defaults, file, environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DENTTRACK_LOG_LEVEL.
const EnvPrefix = "DENTTRACK"

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// RemoteConfig selects the remote backend. An empty Backend means
// guest-only operation.
type RemoteConfig struct {
	Backend string `mapstructure:"backend"`
	URL     string `mapstructure:"url"`
	AnonKey string `mapstructure:"anon_key"`
	DSN     string `mapstructure:"dsn"`
}

// AuthConfig configures sign-in.
type AuthConfig struct {
	RedirectURL string        `mapstructure:"redirect_url"`
	Provider    string        `mapstructure:"provider"`
	Timeout     time.Duration `mapstructure:"timeout"`
	OpenBrowser bool          `mapstructure:"open_browser"`
}

// SyncConfig configures the sync coordinator.
type SyncConfig struct {
	PushGuestData bool `mapstructure:"push_guest_data"`
}

// LiveConfig configures the live server.
type LiveConfig struct {
	Port int `mapstructure:"port"`
}

// S3Config locates the attachment bucket.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`
}

// AttachmentsConfig selects where attachment content goes.
type AttachmentsConfig struct {
	Backend string   `mapstructure:"backend"`
	S3      S3Config `mapstructure:"s3"`
}

// Config is the full settings tree.
type Config struct {
	DataDir     string            `mapstructure:"data_dir"`
	Log         LogConfig         `mapstructure:"log"`
	Remote      RemoteConfig      `mapstructure:"remote"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Sync        SyncConfig        `mapstructure:"sync"`
	Live        LiveConfig        `mapstructure:"live"`
	Attachments AttachmentsConfig `mapstructure:"attachments"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// CachePath is the SQLite cache file.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "denttrack.db")
}

// InboxDir is the directory sign-in callbacks are delivered to.
func (c *Config) InboxDir() string {
	return filepath.Join(c.DataDir, "inbox")
}

// RemoteEnabled reports whether a remote backend is configured.
func (c *Config) RemoteEnabled() bool {
	return c.Remote.Backend != ""
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must not be empty"))
	}
	if !oneOf(c.Log.Level, "debug", "info", "warn", "error") {
		errs = append(errs, fmt.Errorf("log.level %q must be one of debug, info, warn, error", c.Log.Level))
	}
	if !oneOf(c.Log.Format, "json", "console") {
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	switch c.Remote.Backend {
	case "", "memory":
	case "rest":
		if c.Remote.URL == "" || c.Remote.AnonKey == "" {
			errs = append(errs, errors.New("remote.backend rest requires remote.url and remote.anon_key"))
		}
	case "postgres":
		if c.Remote.DSN == "" {
			errs = append(errs, errors.New("remote.backend postgres requires remote.dsn"))
		}
	default:
		errs = append(errs, fmt.Errorf("remote.backend %q must be rest, postgres or memory", c.Remote.Backend))
	}
	if c.Auth.Timeout <= 0 {
		errs = append(errs, errors.New("auth.timeout must be positive"))
	}
	if c.Live.Port < 0 || c.Live.Port > 65535 {
		errs = append(errs, fmt.Errorf("live.port %d out of range", c.Live.Port))
	}
	switch c.Attachments.Backend {
	case "inline":
	case "s3":
		if c.Attachments.S3.Bucket == "" {
			errs = append(errs, errors.New("attachments.backend s3 requires attachments.s3.bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("attachments.backend %q must be inline or s3", c.Attachments.Backend))
	}
	return errors.Join(errs...)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("remote.backend", "")
	v.SetDefault("remote.url", "")
	v.SetDefault("remote.anon_key", "")
	v.SetDefault("remote.dsn", "")
	v.SetDefault("auth.redirect_url", "denttrack://auth/callback")
	v.SetDefault("auth.provider", "google")
	v.SetDefault("auth.timeout", 5*time.Minute)
	v.SetDefault("auth.open_browser", true)
	v.SetDefault("sync.push_guest_data", false)
	v.SetDefault("live.port", 8787)
	v.SetDefault("attachments.backend", "inline")
	v.SetDefault("attachments.s3.bucket", "")
	v.SetDefault("attachments.s3.prefix", "attachments")
	v.SetDefault("attachments.s3.endpoint", "")
	v.SetDefault("attachments.s3.path_style", false)
}

// Load reads settings. An explicit path must exist; without one the
// default config file is read if present.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// DefaultConfigDir is $XDG_CONFIG_HOME/denttrack or its platform
// equivalent.
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".denttrack"
	}
	return filepath.Join(dir, "denttrack")
}

// DefaultDataDir is $XDG_DATA_HOME/denttrack, falling back to
// ~/.local/share/denttrack.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "denttrack")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".denttrack"
	}
	return filepath.Join(home, ".local", "share", "denttrack")
}

func expandHome(p string) string {
	rest, ok := strings.CutPrefix(p, "~/")
	if !ok {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, rest)
}
