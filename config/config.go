package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Http struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
	} `yaml:"http"`
	Model struct {
		Path  string `yaml:"path"`
		Watch bool   `yaml:"watch"`
	} `yaml:"model"`
	Storage struct {
		Driver string `yaml:"driver"` // "memory" or "sqlite"
		Path   string `yaml:"path"`
	} `yaml:"storage"`
	Cache struct {
		Driver string        `yaml:"driver"` // "none", "lru" or "redis"
		Size   int           `yaml:"size"`
		TTL    time.Duration `yaml:"ttl"`
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	RateLimit struct {
		Capacity int           `yaml:"capacity"`
		Refill   time.Duration `yaml:"refill"`
	} `yaml:"rate_limit"`
	Narrative struct {
		Enabled bool          `yaml:"enabled"`
		APIURL  string        `yaml:"api_url"`
		APIKey  string        `yaml:"api_key"`
		Model   string        `yaml:"model"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"narrative"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // "json" or "console"
		File   string `yaml:"file"`
	} `yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.Http.Port = 8080
	c.Http.ReadTimeout = 15 * time.Second
	c.Http.WriteTimeout = 15 * time.Second
	c.Http.IdleTimeout = 60 * time.Second
	c.Model.Path = "models/credit_risk.json"
	c.Model.Watch = true
	c.Storage.Driver = "memory"
	c.Storage.Path = "data/assessments.db"
	c.Cache.Driver = "lru"
	c.Cache.Size = 1024
	c.Cache.TTL = 10 * time.Minute
	c.Cache.Redis.Addr = "localhost:6379"
	c.Cache.Redis.Prefix = "credit-risk:"
	c.RateLimit.Capacity = 30
	c.RateLimit.Refill = time.Minute
	c.Narrative.APIURL = "https://api.openai.com/v1/chat/completions"
	c.Narrative.Model = "gpt-4o-mini"
	c.Narrative.Timeout = 30 * time.Second
	c.Log.Level = "info"
	c.Log.Format = "console"
	return c
}

// Load reads the YAML file at path on top of the defaults, then applies
// environment overrides. A missing file is not an error when path is empty.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(config); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Http.Port = getenvInt("CREDIT_RISK_PORT", c.Http.Port)
	c.Model.Path = getenv("CREDIT_RISK_MODEL_PATH", c.Model.Path)
	c.Storage.Driver = getenv("CREDIT_RISK_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Path = getenv("CREDIT_RISK_STORAGE_PATH", c.Storage.Path)
	c.Cache.Driver = getenv("CREDIT_RISK_CACHE_DRIVER", c.Cache.Driver)
	c.Cache.Redis.Addr = getenv("CREDIT_RISK_REDIS_ADDR", c.Cache.Redis.Addr)
	c.Cache.Redis.Password = getenv("CREDIT_RISK_REDIS_PASSWORD", c.Cache.Redis.Password)
	c.Log.Level = getenv("CREDIT_RISK_LOG_LEVEL", c.Log.Level)
	c.Narrative.APIKey = getenv("OPENAI_API_KEY", c.Narrative.APIKey)
	if c.Narrative.APIKey != "" && os.Getenv("CREDIT_RISK_NARRATIVE") != "off" {
		c.Narrative.Enabled = true
	}
}

func (c *Config) Validate() error {
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.Http.Port)
	}
	if c.Model.Path == "" {
		return fmt.Errorf("model.path is required")
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for sqlite")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Cache.Driver {
	case "none", "redis":
	case "lru":
		if c.Cache.Size <= 0 {
			return fmt.Errorf("cache.size must be positive")
		}
	default:
		return fmt.Errorf("unknown cache.driver %q", c.Cache.Driver)
	}
	if c.RateLimit.Capacity <= 0 || c.RateLimit.Refill <= 0 {
		return fmt.Errorf("rate_limit.capacity and rate_limit.refill must be positive")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Http.Port)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
