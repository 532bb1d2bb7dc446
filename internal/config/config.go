package config

import (
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"jobportal/internal/validate"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Host string `yaml:"host" json:"host"`
		Port int    `yaml:"port" json:"port"`
	} `yaml:"app" json:"app"`

	Backend struct {
		BaseURL         string  `yaml:"base_url" json:"base_url"`
		TimeoutSeconds  int     `yaml:"timeout_seconds" json:"timeout_seconds"`
		RateLimitPerSec float64 `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
		Burst           int     `yaml:"burst" json:"burst"`
	} `yaml:"backend" json:"backend"`

	Validation struct {
		TitleMin         int  `yaml:"title_min" json:"title_min"`
		TitleMax         int  `yaml:"title_max" json:"title_max"`
		CompanyMin       int  `yaml:"company_min" json:"company_min"`
		CompanyMax       int  `yaml:"company_max" json:"company_max"`
		DescriptionMax   int  `yaml:"description_max" json:"description_max"`
		LocationRequired bool `yaml:"location_required" json:"location_required"`
		LocationMax      int  `yaml:"location_max" json:"location_max"`
	} `yaml:"validation" json:"validation"`

	Display struct {
		SiteTitle  string `yaml:"site_title" json:"site_title"`
		TruncateAt int    `yaml:"truncate_at" json:"truncate_at"`
	} `yaml:"display" json:"display"`

	Refresh struct {
		// 0 disables background refresh; the list is still fetched at startup.
		IntervalSeconds int `yaml:"interval_seconds" json:"interval_seconds"`
	} `yaml:"refresh" json:"refresh"`

	Logging struct {
		Level  string `yaml:"level" json:"level"`
		Pretty bool   `yaml:"pretty" json:"pretty"`
	} `yaml:"logging" json:"logging"`

	Tracing struct {
		Enabled bool `yaml:"enabled" json:"enabled"`
	} `yaml:"tracing" json:"tracing"`
}

func Default() Config {
	var cfg Config
	cfg.App.Host = "127.0.0.1"
	cfg.App.Port = 5173
	cfg.Backend.BaseURL = "http://localhost:8080"
	cfg.Backend.TimeoutSeconds = 15
	cfg.Backend.RateLimitPerSec = 10
	cfg.Backend.Burst = 5

	r := validate.DefaultRules()
	cfg.Validation.TitleMin = r.TitleMin
	cfg.Validation.TitleMax = r.TitleMax
	cfg.Validation.CompanyMin = r.CompanyMin
	cfg.Validation.CompanyMax = r.CompanyMax
	cfg.Validation.DescriptionMax = r.DescriptionMax
	cfg.Validation.LocationMax = r.LocationMax

	cfg.Display.SiteTitle = "Mini Job Portal"
	cfg.Display.TruncateAt = 100
	cfg.Logging.Level = "info"
	return cfg
}

// Load reads path over the defaults, so keys missing from the file keep
// their default value. PORTAL_BACKEND_URL overrides backend.base_url.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	if v := strings.TrimSpace(os.Getenv("PORTAL_BACKEND_URL")); v != "" {
		cfg.Backend.BaseURL = v
	}
	return cfg, nil
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.App.Host, strconv.Itoa(c.App.Port))
}

func (c Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

func (c Config) Rules() validate.Rules {
	return validate.Rules{
		TitleMin:         c.Validation.TitleMin,
		TitleMax:         c.Validation.TitleMax,
		CompanyMin:       c.Validation.CompanyMin,
		CompanyMax:       c.Validation.CompanyMax,
		DescriptionMax:   c.Validation.DescriptionMax,
		LocationRequired: c.Validation.LocationRequired,
		LocationMax:      c.Validation.LocationMax,
	}
}
