package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/AnaEHC/semaforo-app/engine"
	"github.com/AnaEHC/semaforo-app/models"
)

// Semaforo API defaults
const SEMAFORO_API_URL = "https://ehclegislacionymarketing.es/api_semaforo.php"
const SEMAFORO_API_TIMEOUT = 10 * time.Second

// Redis defaults
const REDIS_DB_ADDRESS = "redis:6379"
const REDIS_DB_PASSWORD = ""
const REDIS_DB = 0

// Lifecycle sweep
const LIFECYCLE_SWEEP_SCHEDULE_MINUTES = 30

// Exports
const EXPORT_DIR = "ROJOS_PENDIENTES"

// Resources file paths
const RESOURCES_PATH_PREFIX = "resources"
const CLIENTS_RESOURCE = "clients.json"
const HOLIDAYS_RESOURCE = "holidays.json"

// Config is the runtime configuration. Values come from defaults, then the
// optional YAML file, then SEMAFORO_* environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENV"`
	Timezone string `yaml:"timezone" env:"TIMEZONE"`

	API struct {
		URL     string        `yaml:"url" env:"URL"`
		Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	} `yaml:"api" envPrefix:"API_"`

	Redis struct {
		Address  string `yaml:"address" env:"ADDRESS"`
		Password string `yaml:"password" env:"PASSWORD"`
		DB       int    `yaml:"db" env:"DB"`
	} `yaml:"redis" envPrefix:"REDIS_"`

	Server struct {
		Addr string `yaml:"addr" env:"ADDR"`
	} `yaml:"server" envPrefix:"SERVER_"`

	Sweep struct {
		Interval time.Duration `yaml:"interval" env:"INTERVAL"`
		User     string        `yaml:"user" env:"USER"`
	} `yaml:"sweep" envPrefix:"SWEEP_"`

	ExportDir  string            `yaml:"export_dir" env:"EXPORT_DIR"`
	Products   []string          `yaml:"products" env:"PRODUCTS" envSeparator:","`
	Thresholds engine.Thresholds `yaml:"thresholds" envPrefix:"THRESHOLD_"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	var c Config
	c.Env = "prod"
	c.Timezone = "Europe/Madrid"
	c.API.URL = SEMAFORO_API_URL
	c.API.Timeout = SEMAFORO_API_TIMEOUT
	c.Redis.Address = REDIS_DB_ADDRESS
	c.Redis.Password = REDIS_DB_PASSWORD
	c.Redis.DB = REDIS_DB
	c.Server.Addr = ":8080"
	c.Sweep.Interval = LIFECYCLE_SWEEP_SCHEDULE_MINUTES * time.Minute
	c.Sweep.User = "SISTEMA"
	c.ExportDir = EXPORT_DIR
	for _, p := range models.DefaultProducts {
		c.Products = append(c.Products, string(p))
	}
	c.Thresholds = engine.DefaultThresholds
	return c
}

// Load reads path (if it exists) over the defaults and applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %q: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "SEMAFORO_"}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail far from the config.
func (c Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if len(c.ProductSet()) == 0 {
		return fmt.Errorf("no products configured")
	}
	if c.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive")
	}
	t := c.Thresholds
	if t.Closer <= 0 || t.Supercloser < t.Closer || t.OutOfFlow <= 0 {
		return fmt.Errorf("invalid thresholds %+v", t)
	}
	return nil
}

// Location returns the configured timezone; Validate guarantees it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ProductSet returns the configured products, normalised and deduplicated.
func (c Config) ProductSet() []models.Product {
	seen := map[models.Product]bool{}
	var out []models.Product
	for _, p := range c.Products {
		prod := models.Product(models.NormalizeName(p))
		if prod == "" || seen[prod] {
			continue
		}
		seen[prod] = true
		out = append(out, prod)
	}
	return out
}

// BaseDir returns the absolute path of the project root directory
func BaseDir() string {
	if root := os.Getenv("PROJECT_ROOT"); root != "" {
		return root
	}

	wd, err := os.Getwd()
	if err != nil {
		panic("Unable to determine working directory: " + err.Error())
	}

	return wd
}

func GetResourcePath(resourceFile string) string {
	return filepath.Join(BaseDir(), RESOURCES_PATH_PREFIX, resourceFile)
}
