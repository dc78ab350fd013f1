// Package config loads the immutable auth-service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/vasapolrittideah/portfolio-api/shared/discovery"
	"github.com/vasapolrittideah/portfolio-api/shared/mailer"
	"github.com/vasapolrittideah/portfolio-api/shared/storage"
)

// AuthServiceConfig is loaded once at startup and passed by pointer to constructors.
// Nothing below the cmd package reads the environment.
type AuthServiceConfig struct {
	ServiceName     string        `env:"SERVICE_NAME"      envDefault:"auth-service"`
	LogLevel        string        `env:"LOG_LEVEL"         envDefault:"info"`
	HTTPAddr        string        `env:"HTTP_ADDR"         envDefault:":8080"`
	GRPCAddr        string        `env:"GRPC_ADDR"         envDefault:":9090"`
	AdvertiseHost   string        `env:"ADVERTISE_HOST"    envDefault:"127.0.0.1"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"   envDefault:"10s"`
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES"  envDefault:"10485760"`
	DashboardURL    string        `env:"DASHBOARD_URL"`
	PortfolioUserID string        `env:"PORTFOLIO_USER_ID"`

	Mongo         MongoConfig
	Token         TokenConfig
	PasswordReset PasswordResetConfig
	Cookie        CookieConfig
	Mailer        mailer.Config
	Storage       storage.Config
	Consul        discovery.Config
}

// MongoConfig holds document store settings.
type MongoConfig struct {
	URI      string        `env:"MONGO_URI"      envDefault:"mongodb://localhost:27017"`
	Database string        `env:"MONGO_DATABASE" envDefault:"portfolio"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT"  envDefault:"5s"`
}

// TokenConfig holds signing keys and lifetimes. Access and refresh tokens are signed
// with distinct secrets. Changing either secret invalidates every outstanding token of that class.
type TokenConfig struct {
	Issuer                string        `env:"TOKEN_ISSUER"             envDefault:"portfolio-api"`
	AccessTokenSecret     string        `env:"ACCESS_TOKEN_SECRET"`
	AccessTokenExpiresIn  time.Duration `env:"ACCESS_TOKEN_EXPIRES_IN"  envDefault:"15m"`
	RefreshTokenSecret    string        `env:"REFRESH_TOKEN_SECRET"`
	RefreshTokenExpiresIn time.Duration `env:"REFRESH_TOKEN_EXPIRES_IN" envDefault:"168h"`
}

// PasswordResetConfig holds password policy and reset flow settings.
type PasswordResetConfig struct {
	TokenExpiresIn     time.Duration `env:"PASSWORD_RESET_TOKEN_EXPIRES_IN"     envDefault:"30m"`
	RevealUnknownEmail bool          `env:"PASSWORD_RESET_REVEAL_UNKNOWN_EMAIL" envDefault:"false"`
	MinEntropyBits     float64       `env:"PASSWORD_MIN_ENTROPY_BITS"           envDefault:"30"`
	HashTimeCost       uint32        `env:"PASSWORD_HASH_TIME_COST"             envDefault:"3"`
	HashMemoryCostKiB  uint32        `env:"PASSWORD_HASH_MEMORY_COST_KIB"       envDefault:"65536"`
}

// CookieConfig holds session cookie attributes that vary by deployment.
type CookieConfig struct {
	Domain string `env:"COOKIE_DOMAIN"`
	Secure bool   `env:"COOKIE_SECURE" envDefault:"true"`
}

// Load parses the process environment.
func Load() (*AuthServiceConfig, error) {
	return parse(env.Options{})
}

// LoadFromMap parses the given variables instead of the process environment.
func LoadFromMap(vars map[string]string) (*AuthServiceConfig, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*AuthServiceConfig, error) {
	cfg, err := env.ParseAsWithOptions[AuthServiceConfig](opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings the core relies on. Mailer and storage settings are
// validated by the serve command, which is the only place that builds those clients.
func (c *AuthServiceConfig) Validate() error {
	var errs []error

	if c.Token.AccessTokenSecret == "" {
		errs = append(errs, errors.New("missing ACCESS_TOKEN_SECRET environment variable"))
	}
	if c.Token.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("missing REFRESH_TOKEN_SECRET environment variable"))
	}
	if c.Token.AccessTokenSecret != "" && c.Token.AccessTokenSecret == c.Token.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.Token.AccessTokenExpiresIn <= 0 || c.Token.RefreshTokenExpiresIn <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.PasswordReset.TokenExpiresIn <= 0 {
		errs = append(errs, errors.New("PASSWORD_RESET_TOKEN_EXPIRES_IN must be positive"))
	}
	if c.DashboardURL == "" {
		errs = append(errs, errors.New("missing DASHBOARD_URL environment variable"))
	}
	if c.Mongo.URI == "" || c.Mongo.Database == "" {
		errs = append(errs, errors.New("missing MONGO_URI or MONGO_DATABASE environment variable"))
	}

	return errors.Join(errs...)
}
