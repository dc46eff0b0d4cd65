package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/compstaff/compstaff/app/modules/competition/application/generators"
	"github.com/compstaff/compstaff/app/observability"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	Observability ObservabilityConfig `yaml:"observability"`
	Engine        EngineConfig        `yaml:"engine"`
	Queue         QueueConfig         `yaml:"queue"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL runs the event bus in
// process.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the API listener settings.
type HTTPConfig struct {
	Addr           string          `yaml:"addr"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig is a per-IP token bucket. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	MetricsAddress string `yaml:"metrics_address"`
	Environment    string `yaml:"environment"`
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"` // json|text
}

// EngineConfig holds assignment engine defaults.
type EngineConfig struct {
	RecipesFile       string `yaml:"recipes_file"`
	DefaultRecipe     string `yaml:"default_recipe"`
	DefaultGroupCount int    `yaml:"default_group_count"`
}

// QueueConfig holds scheduled generation job settings.
type QueueConfig struct {
	Enabled    bool `yaml:"enabled"`
	MaxWorkers int  `yaml:"max_workers"`
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// --- OVERRIDE WITH ENV VARS IF PRESENT ---
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("METRICS_ADDRESS"); v != "" {
		cfg.Observability.MetricsAddress = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("RECIPES_FILE"); v != "" {
		cfg.Engine.RecipesFile = v
	}
	if v := os.Getenv("DEFAULT_RECIPE"); v != "" {
		cfg.Engine.DefaultRecipe = v
	}
	if v := os.Getenv("QUEUE_ENABLED"); v != "" {
		cfg.Queue.Enabled = v == "true"
	}
	if v := os.Getenv("QUEUE_MAX_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid QUEUE_MAX_WORKERS value: %v", err)
		}
		cfg.Queue.MaxWorkers = n
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS value: %v", err)
		}
		cfg.HTTP.RateLimit.RPS = f
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.HTTP.RateLimit.RPS > 0 && cfg.HTTP.RateLimit.Burst <= 0 {
		cfg.HTTP.RateLimit.Burst = int(cfg.HTTP.RateLimit.RPS) * 2
	}
	if cfg.Engine.DefaultRecipe == "" {
		cfg.Engine.DefaultRecipe = generators.DefaultRecipeID
	}
	if cfg.Engine.DefaultGroupCount <= 0 {
		cfg.Engine.DefaultGroupCount = 1
	}
	if cfg.Queue.MaxWorkers <= 0 {
		cfg.Queue.MaxWorkers = 5
	}
	if cfg.Observability.LogFormat == "" {
		cfg.Observability.LogFormat = "json"
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// recipesFile is the YAML shape of engine.recipes_file.
type recipesFile struct {
	Recipes []generators.Recipe `yaml:"recipes"`
}

// LoadRecipes builds the recipe book from the built-in default recipe plus
// the recipes declared in cfg.Engine.RecipesFile, and applies
// cfg.Engine.DefaultRecipe. Every declared recipe is validated against the
// built-in generator registry.
func LoadRecipes(cfg *Config) (*generators.RecipeBook, error) {
	var extra []generators.Recipe
	if cfg.Engine.RecipesFile != "" {
		data, err := os.ReadFile(cfg.Engine.RecipesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read recipes file: %w", err)
		}
		var file recipesFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipes file: %w", err)
		}
		registry := generators.DefaultRegistry()
		var errs []error
		for _, r := range file.Recipes {
			if err := r.Validate(registry); err != nil {
				errs = append(errs, err)
			}
		}
		if err := errors.Join(errs...); err != nil {
			return nil, err
		}
		extra = file.Recipes
	}

	book := generators.NewRecipeBook(extra...)
	if cfg.Engine.DefaultRecipe != "" {
		if err := book.SetDefault(cfg.Engine.DefaultRecipe); err != nil {
			return nil, fmt.Errorf("engine.default_recipe: %w", err)
		}
	}
	return book, nil
}

func ToObsConfig(appCfg *Config) observability.Config {
	return observability.Config{
		ServiceName:    "compstaff",
		Environment:    appCfg.Observability.Environment,
		Version:        Version,
		LogLevel:       appCfg.Observability.LogLevel,
		LogFormat:      appCfg.Observability.LogFormat,
		MetricsAddress: appCfg.Observability.MetricsAddress,
	}
}
