package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. LOAN_API_BASE_URL
const EnvPrefix = "LOAN"

// Load reads configuration from defaults, an optional .env file, optional
// config.yaml and config.<environment>.yaml files and LOAN_* environment
// variables, in increasing order of precedence.
func Load() (*Config, error) {
	loadEnvFile()
	return load(viper.New(), []string{"./configs", "."})
}

// LoadFromFile loads configuration from a specific YAML file plus environment
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v, DefaultConfig())
	bindEnv(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func load(v *viper.Viper, searchPaths []string) (*Config, error) {
	setDefaults(v, DefaultConfig())
	bindEnv(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment specific overlay, e.g. config.production.yaml
	v.SetConfigName("config." + v.GetString("app.environment"))
	if err := v.MergeInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading environment config: %w", err)
		}
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.App.Environment = strings.ToLower(strings.TrimSpace(cfg.App.Environment))

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.ensureDirectories(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// setDefaults registers every key so AutomaticEnv can override it on Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("app.environment", d.App.Environment)
	v.SetDefault("server.listen_addr", d.Server.ListenAddr)
	v.SetDefault("server.debug", d.Server.Debug)
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.deployment.development", d.API.Deployment.Development)
	v.SetDefault("api.deployment.staging", d.API.Deployment.Staging)
	v.SetDefault("api.deployment.production", d.API.Deployment.Production)
	v.SetDefault("features.auto_save", d.Features.AutoSave)
	v.SetDefault("features.sample_data", d.Features.SampleData)
	v.SetDefault("drafts.backend", d.Drafts.Backend)
	v.SetDefault("drafts.directory", d.Drafts.Directory)
	v.SetDefault("drafts.ttl", d.Drafts.TTL)
	v.SetDefault("drafts.passphrase", d.Drafts.Passphrase)
	v.SetDefault("redis.address", d.Redis.Address)
	v.SetDefault("redis.password", d.Redis.Password)
	v.SetDefault("redis.db", d.Redis.DB)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("rate_limit.capacity", d.RateLimit.Capacity)
	v.SetDefault("rate_limit.window", d.RateLimit.Window)
	v.SetDefault("paths.templates", d.Paths.Templates)
	v.SetDefault("paths.static", d.Paths.Static)
}

// loadEnvFile loads the first .env found between the working directory and
// the project root. A missing file is not an error.
func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
