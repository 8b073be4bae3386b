package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	platformerrors "github.com/ab22593k/gitai/errors"
)

// EnvPrefix prefixes the environment variables that override settings,
// e.g. GITWIRE_CACHE_DIR.
const EnvPrefix = "GITWIRE"

// Setting keys.
const (
	KeyCacheDir = "cache_dir"
	KeyTTL      = "ttl"
	KeyWorkers  = "workers"
	KeyTimeout  = "timeout"
	KeyLockDir  = "lock_dir"
)

// Defaults.
const (
	DefaultWorkers = 4
	DefaultTimeout = 5 * time.Minute
)

// DefaultCacheDir is the cache root used when none is configured.
func DefaultCacheDir() string {
	return filepath.Join(os.TempDir(), "git-wire-cache")
}

// Settings configures the engine.
type Settings struct {
	// CacheDir is the cache root.
	CacheDir string `mapstructure:"cache_dir" json:"cache_dir" yaml:"cache_dir"`

	// TTL expires cached checkouts by age. Zero disables expiry.
	TTL time.Duration `mapstructure:"ttl" json:"ttl" yaml:"ttl"`

	// Workers bounds concurrent fetches and extractions; 1 is sequential.
	Workers int `mapstructure:"workers" json:"workers" yaml:"workers"`

	// Timeout bounds each fetch. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`

	// LockDir enables cross-process key locks in this directory.
	LockDir string `mapstructure:"lock_dir" json:"lock_dir,omitempty" yaml:"lock_dir,omitempty"`
}

// Configure registers defaults and environment bindings on v. Values bound
// from flags take precedence over the environment, which takes precedence
// over ApplySettings and the defaults.
func Configure(v *viper.Viper) {
	v.SetDefault(KeyCacheDir, DefaultCacheDir())
	v.SetDefault(KeyTTL, time.Duration(0))
	v.SetDefault(KeyWorkers, DefaultWorkers)
	v.SetDefault(KeyTimeout, DefaultTimeout)
	v.SetDefault(KeyLockDir, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// ApplySettings layers the file's [settings] table over the defaults.
func (f *File) ApplySettings(v *viper.Viper) {
	for key, value := range f.Settings {
		v.SetDefault(strings.ToLower(key), value)
	}
}

// LoadSettings decodes and validates the settings held by v.
func LoadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(decodeHook())); err != nil {
		return Settings{}, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "invalid settings")
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks settings ranges.
func (s Settings) Validate() error {
	switch {
	case strings.TrimSpace(s.CacheDir) == "":
		return platformerrors.New(platformerrors.CodeInvalidConfig, "cache_dir is empty")
	case s.Workers < 0:
		return platformerrors.New(platformerrors.CodeInvalidConfig, "workers must not be negative")
	case s.TTL < 0:
		return platformerrors.New(platformerrors.CodeInvalidConfig, "ttl must not be negative")
	case s.Timeout < 0:
		return platformerrors.New(platformerrors.CodeInvalidConfig, "timeout must not be negative")
	}
	return nil
}
