package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environments the server knows how to resolve a prediction service URL for
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Draft storage backends
const (
	DraftsFile  = "file"
	DraftsRedis = "redis"
	DraftsNone  = "none"
)

// Config holds application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	API       APIConfig       `mapstructure:"api"`
	Features  FeatureFlags    `mapstructure:"features"`
	Drafts    DraftsConfig    `mapstructure:"drafts"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Paths     PathsConfig     `mapstructure:"paths"`
}

type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	Debug      bool   `mapstructure:"debug"`
}

// APIConfig points at the external prediction service
type APIConfig struct {
	BaseURL    string         `mapstructure:"base_url"` // explicit override, wins over Deployment
	Timeout    int            `mapstructure:"timeout"`  // milliseconds
	Deployment DeploymentURLs `mapstructure:"deployment"`
}

// DeploymentURLs lists the service URL per environment
type DeploymentURLs struct {
	Development string `mapstructure:"development"`
	Staging     string `mapstructure:"staging"`
	Production  string `mapstructure:"production"`
}

type FeatureFlags struct {
	AutoSave   bool `mapstructure:"auto_save"`
	SampleData bool `mapstructure:"sample_data"`
}

// DraftsConfig controls best-effort form autosave
type DraftsConfig struct {
	Backend    string        `mapstructure:"backend"`
	Directory  string        `mapstructure:"directory"`
	TTL        time.Duration `mapstructure:"ttl"`
	Passphrase string        `mapstructure:"passphrase"` // encrypts file drafts when set
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// RateLimitConfig is a per-IP token bucket for form actions
type RateLimitConfig struct {
	Capacity int           `mapstructure:"capacity"`
	Window   time.Duration `mapstructure:"window"`
}

type PathsConfig struct {
	Templates string `mapstructure:"templates"`
	Static    string `mapstructure:"static"`
}

// DefaultConfig returns configuration with sensible defaults
func DefaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		App:    AppConfig{Environment: EnvDevelopment},
		Server: ServerConfig{ListenAddr: ":8080"},
		API: APIConfig{
			Timeout: 30000,
			Deployment: DeploymentURLs{
				Development: "http://localhost:5000",
				Production:  "https://loan-approval-api-aeja.onrender.com",
			},
		},
		Features: FeatureFlags{AutoSave: true, SampleData: true},
		Drafts: DraftsConfig{
			Backend:   DraftsFile,
			Directory: filepath.Join(wd, "data", "drafts"),
			TTL:       7 * 24 * time.Hour,
		},
		Redis:     RedisConfig{Address: "localhost:6379"},
		Logging:   LoggingConfig{Level: "info", Format: "console"},
		RateLimit: RateLimitConfig{Capacity: 30, Window: time.Minute},
		Paths: PathsConfig{
			Templates: filepath.Join(wd, "web", "templates"),
			Static:    filepath.Join(wd, "web", "static"),
		},
	}
}

// APIBaseURL resolves the prediction service URL: the explicit override,
// then the URL for the current environment, then the development URL.
func (c *Config) APIBaseURL() string {
	if c.API.BaseURL != "" {
		return strings.TrimRight(c.API.BaseURL, "/")
	}

	var u string
	switch c.App.Environment {
	case EnvStaging:
		u = c.API.Deployment.Staging
	case EnvProduction:
		u = c.API.Deployment.Production
	default:
		u = c.API.Deployment.Development
	}
	if u == "" {
		u = c.API.Deployment.Development
	}
	return strings.TrimRight(u, "/")
}

// RequestTimeout returns the API timeout as a duration
func (c *Config) RequestTimeout() time.Duration {
	return GetDuration(c.API.Timeout)
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

func (c *Config) validate() error {
	switch c.App.Environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("app.environment must be one of development, staging, production (got %q)", c.App.Environment)
	}

	base := c.APIBaseURL()
	if base == "" {
		return fmt.Errorf("api.base_url or api.deployment.development is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api base url %q is not an absolute http(s) URL", base)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}

	switch c.Drafts.Backend {
	case DraftsFile, DraftsRedis, DraftsNone:
	default:
		return fmt.Errorf("drafts.backend must be file, redis or none (got %q)", c.Drafts.Backend)
	}
	if c.Drafts.Backend == DraftsRedis && c.Redis.Address == "" {
		return fmt.Errorf("redis.address is required for the redis draft backend")
	}

	return nil
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() error {
	if !c.Features.AutoSave || c.Drafts.Backend != DraftsFile {
		return nil
	}
	if err := os.MkdirAll(c.Drafts.Directory, 0755); err != nil {
		return fmt.Errorf("could not create drafts directory %s: %w", c.Drafts.Directory, err)
	}
	return nil
}
