package app

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/aussiebroadwan/admindash/pkg/jwtx"
)

type Config struct {
	Env       string `yaml:"env"        env:"ENV"        env-default:"dev"`  // dev, staging, prod
	LogLevel  string `yaml:"log_level"  env:"LOG_LEVEL"  env-default:"info"` // debug, info, warn, error
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"` // json, text, pretty
	Port      int    `yaml:"port"       env:"PORT"       env-default:"8080"`

	Issuer        string        `yaml:"issuer"         env:"AUTH_ISSUER"         env-default:"admindash"`
	AccessSecret  string        `yaml:"access_secret"  env:"AUTH_ACCESS_SECRET"`  // Optional: generated per boot when empty
	RefreshSecret string        `yaml:"refresh_secret" env:"AUTH_REFRESH_SECRET"` // Optional: generated per boot when empty
	AccessTTL     time.Duration `yaml:"access_ttl"     env:"AUTH_ACCESS_TTL"     env-default:"15m"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"    env:"AUTH_REFRESH_TTL"    env-default:"168h"`

	DatabaseFile string `yaml:"database_file" env:"AUTH_DATABASE_FILE" env-default:"admindash.db"`
	PepperFile   string `yaml:"pepper_file"   env:"AUTH_PEPPER_FILE"   env-default:"pepper"`
	Seed         bool   `yaml:"seed"          env:"AUTH_SEED"          env-default:"true"` // Seed an empty directory on boot

	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period" env:"SHUTDOWN_GRACE_PERIOD" env-default:"10s"`
	HousekeepingInterval time.Duration `yaml:"housekeeping_interval" env:"HOUSEKEEPING_INTERVAL" env-default:"1h"`
}

// LoadConfig reads the YAML file named by CONFIG_PATH, if any, and overlays
// the environment on top of it.
func LoadConfig() (Config, error) {
	return loadConfig(os.Getenv("CONFIG_PATH"))
}

func loadConfig(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config file %q stat failed: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return fmt.Errorf("token ttls must be positive (access %s, refresh %s)", c.AccessTTL, c.RefreshTTL)
	}
	if c.RefreshTTL <= c.AccessTTL {
		return fmt.Errorf("refresh ttl %s must exceed access ttl %s", c.RefreshTTL, c.AccessTTL)
	}
	if c.AccessSecret != "" && len(c.AccessSecret) < jwtx.MinSecretSize {
		return fmt.Errorf("AUTH_ACCESS_SECRET must be at least %d bytes", jwtx.MinSecretSize)
	}
	if c.RefreshSecret != "" && len(c.RefreshSecret) < jwtx.MinSecretSize {
		return fmt.Errorf("AUTH_REFRESH_SECRET must be at least %d bytes", jwtx.MinSecretSize)
	}
	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		return fmt.Errorf("access and refresh secrets must differ")
	}
	return nil
}
