package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Vault     VaultConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Etsy      EtsyConfig
	Shopify   ShopifyConfig
	Printify  PrintifyConfig
	Stripe    StripeConfig
	Scheduler SchedulerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
	// BaseURL is the externally reachable origin used to build OAuth redirect
	// and webhook callback URLs
	BaseURL string
	// FrontendURL is where OAuth callbacks redirect the browser back to
	FrontendURL string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings (webhook replay suppression)
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig holds JWT session settings for authenticated endpoints and
// the HMAC key used to sign short-lived OAuth state cookies.
type SessionConfig struct {
	Secret          string
	TokenExpiration time.Duration
	Issuer          string
	CookieSecure    bool
	// StateTTL bounds the lifetime of the OAuth state/verifier cookies
	StateTTL time.Duration
}

// VaultConfig holds the credential vault key
type VaultConfig struct {
	// Key is the 256-bit AEAD key, hex-encoded (64 characters), supplied
	// out-of-band. Startup fails fast if it is absent or malformed.
	Key string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxWebhookBody   int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// EtsyConfig holds Etsy OAuth and webhook settings
type EtsyConfig struct {
	ClientID string
	Scopes   string
	// APIBaseURL overrides the Etsy API origin (sandbox, tests)
	APIBaseURL string
	// WebhookSecret is the shared signing secret in "whsec_<base64>" form
	WebhookSecret string
	// WebhookTolerance bounds the age of a signed webhook timestamp
	WebhookTolerance time.Duration
}

// ShopifyConfig holds Shopify OAuth and webhook settings. The API secret
// doubles as the webhook HMAC key, as Shopify defines it.
type ShopifyConfig struct {
	APIKey    string
	APISecret string
	Scopes    string
	// APIBaseURL, when set, overrides the per-shop admin origin (tests)
	APIBaseURL string
}

// PrintifyConfig holds Printify API settings
type PrintifyConfig struct {
	APIBaseURL string
}

// StripeConfig holds billing provider settings
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// Price-to-plan mapping for the two paid tiers
	PriceStarter string
	PricePro     string
}

// SchedulerConfig holds background maintenance settings
type SchedulerConfig struct {
	Enabled              bool
	TokenRefreshInterval time.Duration
	TokenRefreshWindow   time.Duration
	PeriodicSyncInterval time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SP_ prefix (e.g., SP_VAULT_KEY)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("SP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Env:         v.GetString("app.env"),
			Port:        v.GetString("app.port"),
			BaseURL:     v.GetString("app.base_url"),
			FrontendURL: v.GetString("app.frontend_url"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Session: SessionConfig{
			Secret:          v.GetString("session.secret"),
			TokenExpiration: v.GetDuration("session.token_expiration"),
			Issuer:          v.GetString("session.issuer"),
			CookieSecure:    v.GetBool("session.cookie_secure"),
			StateTTL:        v.GetDuration("session.state_ttl"),
		},
		Vault: VaultConfig{
			Key: v.GetString("vault.key"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxWebhookBody:   v.GetInt64("http.max_webhook_body"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Etsy: EtsyConfig{
			ClientID:         v.GetString("etsy.client_id"),
			Scopes:           v.GetString("etsy.scopes"),
			APIBaseURL:       v.GetString("etsy.api_base_url"),
			WebhookSecret:    v.GetString("etsy.webhook_secret"),
			WebhookTolerance: v.GetDuration("etsy.webhook_tolerance"),
		},
		Shopify: ShopifyConfig{
			APIKey:     v.GetString("shopify.api_key"),
			APISecret:  v.GetString("shopify.api_secret"),
			Scopes:     v.GetString("shopify.scopes"),
			APIBaseURL: v.GetString("shopify.api_base_url"),
		},
		Printify: PrintifyConfig{
			APIBaseURL: v.GetString("printify.api_base_url"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("stripe.secret_key"),
			WebhookSecret: v.GetString("stripe.webhook_secret"),
			PriceStarter:  v.GetString("stripe.price_starter"),
			PricePro:      v.GetString("stripe.price_pro"),
		},
		Scheduler: SchedulerConfig{
			Enabled:              v.GetBool("scheduler.enabled"),
			TokenRefreshInterval: v.GetDuration("scheduler.token_refresh_interval"),
			TokenRefreshWindow:   v.GetDuration("scheduler.token_refresh_window"),
			PeriodicSyncInterval: v.GetDuration("scheduler.periodic_sync_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sellerpulse-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = "http://localhost:" + cfg.App.Port
	}
	if cfg.App.FrontendURL == "" {
		cfg.App.FrontendURL = "http://localhost:3000"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "sellerpulse"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Session.TokenExpiration == 0 {
		cfg.Session.TokenExpiration = 24 * time.Hour
	}
	if cfg.Session.Issuer == "" {
		cfg.Session.Issuer = "sellerpulse-backend"
	}
	if cfg.Session.StateTTL == 0 {
		cfg.Session.StateTTL = 10 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxWebhookBody == 0 {
		cfg.HTTP.MaxWebhookBody = 256 << 10 // 256KB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.Etsy.Scopes == "" {
		cfg.Etsy.Scopes = "transactions_r listings_r shops_r email_r"
	}
	if cfg.Etsy.WebhookTolerance == 0 {
		cfg.Etsy.WebhookTolerance = 300 * time.Second
	}
	if cfg.Shopify.Scopes == "" {
		cfg.Shopify.Scopes = "read_orders,read_products,read_customers"
	}
	if cfg.Printify.APIBaseURL == "" {
		cfg.Printify.APIBaseURL = "https://api.printify.com"
	}
	if cfg.Scheduler.TokenRefreshInterval == 0 {
		cfg.Scheduler.TokenRefreshInterval = 15 * time.Minute
	}
	if cfg.Scheduler.TokenRefreshWindow == 0 {
		cfg.Scheduler.TokenRefreshWindow = time.Hour
	}
	if cfg.Scheduler.PeriodicSyncInterval == 0 {
		cfg.Scheduler.PeriodicSyncInterval = 6 * time.Hour
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// The vault key protects every stored credential: absent or malformed
	// keys abort startup regardless of environment.
	if _, err := c.Vault.KeyBytes(); err != nil {
		return err
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Session.StateTTL > 10*time.Minute {
		return fmt.Errorf("session.state_ttl cannot exceed 10 minutes")
	}

	if c.App.Env == "production" {
		if c.Session.Secret == "" {
			return fmt.Errorf("session.secret is required in production")
		}
		if len(c.Session.Secret) < 32 {
			return fmt.Errorf("session.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if !c.Session.CookieSecure {
			return fmt.Errorf("session.cookie_secure must be true in production")
		}
		if !strings.HasPrefix(c.App.BaseURL, "https://") {
			return fmt.Errorf("app.base_url must be https in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// KeyBytes decodes and validates the vault key, returning the raw 32 bytes
func (v *VaultConfig) KeyBytes() ([]byte, error) {
	if v.Key == "" {
		return nil, fmt.Errorf("vault.key is required (64 hex characters)")
	}
	key, err := hex.DecodeString(v.Key)
	if err != nil {
		return nil, fmt.Errorf("vault.key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("vault.key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// EtsyRedirectURL returns the OAuth callback URL registered with Etsy.
// Callbacks are served on the public router, outside the versioned API.
func (c *Config) EtsyRedirectURL() string {
	return c.App.BaseURL + "/oauth/etsy/callback"
}

// ShopifyRedirectURL returns the OAuth callback URL registered with Shopify
func (c *Config) ShopifyRedirectURL() string {
	return c.App.BaseURL + "/oauth/shopify/callback"
}
