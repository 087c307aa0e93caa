// Package config loads the server configuration from defaults, an optional
// YAML file, a .env file and environment variables, in that order.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	auth "github.com/goliatone/go-auth-starter"
)

const EnvDevelopment = "development"

// Config holds runtime settings for the API server.
type Config struct {
	Environment string   `yaml:"environment"`
	Server      Server   `yaml:"server"`
	Auth        Auth     `yaml:"auth"`
	Database    Database `yaml:"database"`
	Logging     Logging  `yaml:"logging"`
}

// Server holds the HTTP listener settings
type Server struct {
	Port            int           `yaml:"port"`
	ClientURL       string        `yaml:"client_url"`
	BodyLimit       int           `yaml:"body_limit"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Auth holds token and password settings
type Auth struct {
	SigningKey             string        `yaml:"signing_key"`
	Issuer                 string        `yaml:"issuer"`
	Audience               []string      `yaml:"audience"`
	TokenExpiration        time.Duration `yaml:"token_expiration"`
	RefreshTokenExpiration time.Duration `yaml:"refresh_token_expiration"`
	BcryptCost             int           `yaml:"bcrypt_cost"`
	UseHashid              bool          `yaml:"use_hashid"`
}

// Database holds the storage settings
type Database struct {
	DSN      string `yaml:"dsn"`
	Debug    bool   `yaml:"debug"`
	SeedFile string `yaml:"seed_file"`
}

// Logging holds the logger settings
type Logging struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	ActivityLog string `yaml:"activity_log"`
}

var _ auth.Config = (*Config)(nil)

// Defaults returns a development ready configuration
func Defaults() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Server: Server{
			Port:            5000,
			ClientURL:       "http://localhost:5173",
			BodyLimit:       4 * 1024 * 1024,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: Auth{
			Issuer:                 "go-auth-starter",
			TokenExpiration:        auth.DefaultTokenExpiration,
			RefreshTokenExpiration: auth.DefaultRefreshTokenExpiration,
			BcryptCost:             12,
		},
		Database: Database{
			DSN: "file:auth.db?cache=shared",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path is an optional YAML file; envFiles
// are optional dotenv files, missing ones are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "load env file")
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "read config file")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "parse config file")
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	errs := map[string]string{}

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs[key] = err.Error()
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs[key] = err.Error()
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := ParseDuration(v)
			if err != nil {
				errs[key] = err.Error()
				return
			}
			*dst = d
		}
	}

	str("APP_ENV", &c.Environment)
	num("PORT", &c.Server.Port)
	str("CLIENT_URL", &c.Server.ClientURL)
	str("JWT_SECRET", &c.Auth.SigningKey)
	str("JWT_ISSUER", &c.Auth.Issuer)
	dur("JWT_EXPIRE", &c.Auth.TokenExpiration)
	dur("JWT_REFRESH_EXPIRE", &c.Auth.RefreshTokenExpiration)
	num("BCRYPT_COST", &c.Auth.BcryptCost)
	flag("USE_HASHID", &c.Auth.UseHashid)
	str("DATABASE_URL", &c.Database.DSN)
	flag("DATABASE_DEBUG", &c.Database.Debug)
	str("SEED_FILE", &c.Database.SeedFile)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("ACTIVITY_LOG", &c.Logging.ActivityLog)

	if len(errs) > 0 {
		return errors.NewValidationFromMap("invalid environment", errs)
	}
	return nil
}

// ParseDuration accepts time.ParseDuration strings plus a day suffix ("7d").
// Bare integers are seconds.
func ParseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	if strings.HasSuffix(v, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(v, "d"))
		if err != nil {
			return 0, errors.New(fmt.Sprintf("invalid duration %q", v), errors.CategoryBadInput)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrap(err, errors.CategoryBadInput, fmt.Sprintf("invalid duration %q", v))
	}
	return d, nil
}

// IsDevelopment reports whether we run in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == EnvDevelopment
}

// Validate checks the configuration
func (c *Config) Validate() error {
	keyRules := []validation.Rule{validation.Required}
	if !c.IsDevelopment() {
		keyRules = append(keyRules, validation.Length(16, 0))
	}

	err := validation.Errors{
		"server.port":                   validation.Validate(c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		"auth.signing_key":              validation.Validate(c.Auth.SigningKey, keyRules...),
		"auth.token_expiration":         validation.Validate(int64(c.Auth.TokenExpiration), validation.Required, validation.Min(int64(time.Second))),
		"auth.refresh_token_expiration": validation.Validate(int64(c.Auth.RefreshTokenExpiration), validation.Required, validation.Min(int64(time.Second))),
		"auth.bcrypt_cost":              validation.Validate(c.Auth.BcryptCost, validation.Required, validation.Min(4), validation.Max(31)),
		"database.dsn":                  validation.Validate(c.Database.DSN, validation.Required),
		"logging.level":                 validation.Validate(strings.ToLower(c.Logging.Level), validation.In("debug", "info", "warn", "error")),
		"logging.format":                validation.Validate(strings.ToLower(c.Logging.Format), validation.In("json", "console")),
	}.Filter()
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid configuration")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) GetSigningKey() string {
	return c.Auth.SigningKey
}

func (c *Config) GetIssuer() string {
	return c.Auth.Issuer
}

func (c *Config) GetAudience() []string {
	return c.Auth.Audience
}

func (c *Config) GetTokenExpiration() time.Duration {
	return c.Auth.TokenExpiration
}

func (c *Config) GetRefreshTokenExpiration() time.Duration {
	return c.Auth.RefreshTokenExpiration
}

func (c *Config) GetBcryptCost() int {
	return c.Auth.BcryptCost
}

func (c *Config) GetUseHashid() bool {
	return c.Auth.UseHashid
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() Config {
	out := *c
	if out.Auth.SigningKey != "" {
		out.Auth.SigningKey = "********"
	}
	return out
}
