// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GymUCT Contributors

// Package config loads gymauth settings from defaults, a .env file, a YAML
// file, GYMAUTH_ environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"reflect"
	"strings"
	"time"
	_ "time/tzdata" // mail.timezone must resolve on hosts without zoneinfo

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/uctgym/gymauth/internal/auth"
	"github.com/uctgym/gymauth/internal/mail"
)

// EnvPrefix is the prefix of environment variables read by Load. Nested keys
// use a double underscore: GYMAUTH_MAIL__RESET_URL sets mail.reset_url.
const EnvPrefix = "GYMAUTH_"

// Environments.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Token store backends.
const (
	TokenStorePostgres = "postgres"
	TokenStoreRedis    = "redis"
)

// Mail drivers.
const (
	MailDriverLog     = "log"
	MailDriverMailgun = "mailgun"
	MailDriverQueue   = "queue"
)

// MinProductionSecretLen is the shortest JWT secret accepted in production.
const MinProductionSecretLen = 32

const redacted = "[REDACTED]"

// Config is the full gymauth configuration.
type Config struct {
	Env         string         `yaml:"env" validate:"oneof=development test production"`
	LogFormat   string         `yaml:"log_format" validate:"oneof=json text"`
	DatabaseURL string         `yaml:"database_url" validate:"omitempty,url"`
	MetricsAddr string         `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	TokenStore  string         `yaml:"token_store" validate:"oneof=postgres redis"`
	Redis       RedisConfig    `yaml:"redis"`
	JWT         JWTConfig      `yaml:"jwt"`
	Security    SecurityConfig `yaml:"security"`
	Email       EmailConfig    `yaml:"email"`
	Mail        MailConfig     `yaml:"mail"`
	Sweeper     SweeperConfig  `yaml:"sweeper"`

	// ExposeResetToken returns reset tokens to the requester instead of
	// only mailing them. Development aid; rejected in production.
	ExposeResetToken bool `yaml:"expose_reset_token"`
}

// RedisConfig configures the redis token store.
type RedisConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Prefix string `yaml:"prefix" validate:"required"`
}

// JWTConfig configures access and reset token signing.
type JWTConfig struct {
	Secret   string `yaml:"secret" validate:"required"`
	Issuer   string `yaml:"issuer" validate:"required"`
	Audience string `yaml:"audience" validate:"required"`
}

// SecurityConfig mirrors auth.SecurityPolicy.
type SecurityConfig struct {
	MaxLoginAttempts     int           `yaml:"max_login_attempts" validate:"gte=1"`
	LockoutDuration      time.Duration `yaml:"lockout_duration" validate:"gt=0"`
	AccessTokenTTL       time.Duration `yaml:"access_token_ttl" validate:"gt=0"`
	RefreshTokenTTL      time.Duration `yaml:"refresh_token_ttl" validate:"gt=0"`
	ResetTokenTTL        time.Duration `yaml:"reset_token_ttl" validate:"gt=0"`
	RequireTokenRotation bool          `yaml:"require_token_rotation"`
}

// EmailConfig lists the domain patterns accepted for accounts.
type EmailConfig struct {
	AllowedDomains []string `yaml:"allowed_domains" validate:"min=1,dive,required"`
}

// MailConfig selects and configures password reset delivery.
type MailConfig struct {
	Driver   string        `yaml:"driver" validate:"oneof=log mailgun queue"`
	ResetURL string        `yaml:"reset_url" validate:"required,url"`
	Timezone string        `yaml:"timezone" validate:"required"`
	Mailgun  MailgunConfig `yaml:"mailgun"`
	AMQP     AMQPConfig    `yaml:"amqp"`
	Worker   WorkerConfig  `yaml:"worker"`
}

// MailgunConfig holds Mailgun credentials.
type MailgunConfig struct {
	Domain  string `yaml:"domain"`
	APIKey  string `yaml:"api_key"`
	From    string `yaml:"from"`
	APIBase string `yaml:"api_base" validate:"omitempty,url"`
}

// AMQPConfig locates the reset mail queue.
type AMQPConfig struct {
	URL   string `yaml:"url" validate:"omitempty,url"`
	Queue string `yaml:"queue" validate:"required"`
}

// WorkerConfig throttles the mail worker.
type WorkerConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int     `yaml:"burst" validate:"gte=0"`
	Prefetch      int     `yaml:"prefetch" validate:"gte=1"`
}

// SweeperConfig sets how often expired tokens are removed.
type SweeperConfig struct {
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
}

// Defaults returns the built-in values every other layer overrides.
func Defaults() map[string]any {
	return map[string]any{
		"env":                             EnvDevelopment,
		"log_format":                      "json",
		"metrics_addr":                    "127.0.0.1:9100",
		"token_store":                     TokenStorePostgres,
		"expose_reset_token":              false,
		"redis.prefix":                    "gymauth",
		"jwt.issuer":                      auth.DefaultIssuer,
		"jwt.audience":                    auth.DefaultAudience,
		"security.max_login_attempts":     auth.MaxLoginAttempts,
		"security.lockout_duration":       auth.LockoutDuration.String(),
		"security.access_token_ttl":       auth.AccessTokenTTL.String(),
		"security.refresh_token_ttl":      auth.RefreshTokenTTL.String(),
		"security.reset_token_ttl":        auth.ResetTokenTTL.String(),
		"security.require_token_rotation": true,
		"email.allowed_domains":           append([]string(nil), auth.DefaultAllowedDomains...),
		"mail.driver":                     MailDriverLog,
		"mail.reset_url":                  "http://localhost:5173/reset-password",
		"mail.timezone":                   "America/Santiago",
		"mail.amqp.queue":                 mail.DefaultQueue,
		"mail.worker.rate_per_second":     5.0,
		"mail.worker.burst":               1,
		"mail.worker.prefetch":            10,
		"sweeper.interval":                time.Hour.String(),
	}
}

// Options tells Load where to look. Empty fields skip that layer.
type Options struct {
	// File is a YAML configuration file. It must exist when set.
	File string
	// DotEnv is a .env file. A missing file is ignored.
	DotEnv string
	// Flags are applied last. Only flags the user set override other layers;
	// dashes in flag names map to underscores in keys.
	Flags *pflag.FlagSet
	// Environ replaces os.Environ for tests.
	Environ []string
}

// Load builds and validates a Config.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "defaults").Wrap(err)
	}

	if opts.DotEnv != "" {
		values, err := godotenv.Read(opts.DotEnv)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "dotenv").With("path", opts.DotEnv).Wrap(err)
		default:
			if err := k.Load(confmap.Provider(envMap(values), "."), nil); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "dotenv").Wrap(err)
			}
		}
	}

	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "file").With("path", opts.File).Wrap(err)
		}
	}

	if opts.Environ != nil {
		if err := k.Load(confmap.Provider(envMap(environMap(opts.Environ)), "."), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "env").Wrap(err)
		}
	} else if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "env").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, oops.Code("CONFIG_DECODE_FAILED").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps GYMAUTH_MAIL__RESET_URL to mail.reset_url. Keys without the
// prefix map to "".
func envKey(name string) string {
	rest, ok := strings.CutPrefix(name, EnvPrefix)
	if !ok || rest == "" {
		return ""
	}
	return strings.ReplaceAll(strings.ToLower(rest), "__", ".")
}

// envValue is the koanf env callback. List keys accept comma-separated values.
func envValue(name, value string) (string, any) {
	key := envKey(name)
	if key == "email.allowed_domains" {
		return key, splitList(value)
	}
	return key, value
}

func envMap(values map[string]string) map[string]any {
	out := make(map[string]any, len(values))
	for name, value := range values {
		key, v := envValue(name, value)
		if key == "" {
			continue
		}
		out[key] = v
	}
	return out
}

func environMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		if name, value, ok := strings.Cut(kv, "="); ok {
			out[name] = value
		}
	}
	return out
}

func splitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = newValidator()

// newValidator reports fields by their yaml keys.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field constraints and the rules that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, describe(fe))
			}
			return oops.Code("CONFIG_INVALID").
				With("fields", fields).
				Errorf("invalid configuration: %s", strings.Join(fields, "; "))
		}
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	switch {
	case c.Env == EnvProduction && len(c.JWT.Secret) < MinProductionSecretLen:
		return oops.Code("CONFIG_INVALID").With("field", "jwt.secret").
			Errorf("jwt.secret must be at least %d bytes in production", MinProductionSecretLen)
	case c.Env == EnvProduction && c.ExposeResetToken:
		return oops.Code("CONFIG_INVALID").With("field", "expose_reset_token").
			Errorf("expose_reset_token cannot be enabled in production")
	case c.TokenStore == TokenStoreRedis && c.Redis.URL == "":
		return oops.Code("CONFIG_INVALID").With("field", "redis.url").
			Errorf("redis.url is required when token_store is redis")
	case c.Mail.Driver == MailDriverMailgun && (c.Mail.Mailgun.Domain == "" || c.Mail.Mailgun.APIKey == ""):
		return oops.Code("CONFIG_INVALID").With("field", "mail.mailgun").
			Errorf("mail.mailgun.domain and mail.mailgun.api_key are required for the mailgun driver")
	case c.Mail.Driver == MailDriverQueue && c.Mail.AMQP.URL == "":
		return oops.Code("CONFIG_INVALID").With("field", "mail.amqp.url").
			Errorf("mail.amqp.url is required for the queue driver")
	}
	if _, err := time.LoadLocation(c.Mail.Timezone); err != nil {
		return oops.Code("CONFIG_INVALID").With("field", "mail.timezone").Wrap(err)
	}
	if _, err := auth.NewEmailPolicy(c.Email.AllowedDomains...); err != nil {
		return oops.Code("CONFIG_INVALID").With("field", "email.allowed_domains").Errorf("email.allowed_domains: %s", err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "url":
		return field + " must be a valid URL"
	case "hostname_port":
		return field + " must be host:port"
	case "min":
		return field + " must have at least " + fe.Param() + " entries"
	default:
		return field + " failed " + fe.Tag() + "=" + fe.Param()
	}
}

// RequireDatabase reports a CONFIG_INVALID error when no database_url is set.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").With("field", "database_url").
			Errorf("database_url is required (set GYMAUTH_DATABASE_URL or --database-url)")
	}
	return nil
}

// IsProduction reports whether Env is production.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// SecurityPolicy converts the security section.
func (c *Config) SecurityPolicy() auth.SecurityPolicy {
	return auth.SecurityPolicy{
		MaxLoginAttempts:     c.Security.MaxLoginAttempts,
		LockoutDuration:      c.Security.LockoutDuration,
		AccessTokenTTL:       c.Security.AccessTokenTTL,
		RefreshTokenTTL:      c.Security.RefreshTokenTTL,
		ResetTokenTTL:        c.Security.ResetTokenTTL,
		RequireTokenRotation: c.Security.RequireTokenRotation,
	}
}

// Location loads Mail.Timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Mail.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Redacted returns a copy safe to print: secrets are replaced and URL
// passwords masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Email.AllowedDomains = append([]string(nil), c.Email.AllowedDomains...)
	if out.JWT.Secret != "" {
		out.JWT.Secret = redacted
	}
	if out.Mail.Mailgun.APIKey != "" {
		out.Mail.Mailgun.APIKey = redacted
	}
	out.DatabaseURL = redactURL(out.DatabaseURL)
	out.Redis.URL = redactURL(out.Redis.URL)
	out.Mail.AMQP.URL = redactURL(out.Mail.AMQP.URL)
	return out
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return redacted
	}
	return u.Redacted()
}

// YAML renders the redacted configuration.
func (c *Config) YAML() ([]byte, error) {
	out, err := yamlv3.Marshal(c.Redacted())
	if err != nil {
		return nil, oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	return out, nil
}
