package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/roster/internal/logging"
	"github.com/MarcoPoloResearchLab/roster/internal/pipeline"
	"github.com/spf13/viper"
)

const (
	envPrefix                = "ROSTER"
	defaultHTTPAddress       = "0.0.0.0:8080"
	defaultDatabasePath      = "roster.db"
	defaultLogLevel          = "info"
	defaultAPIBaseURL        = "http://127.0.0.1:8080"
	defaultAPITimeoutSeconds = 10
)

// AppConfig captures runtime configuration for the API server and the CLI client.
type AppConfig struct {
	HTTPAddress    string
	DatabasePath   string
	LogLevel       string
	AllowedOrigins []string
	APIBaseURL     string
	APITimeout     time.Duration
	PanelPageSize  int
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("cors.allowed_origins", []string{"*"})
	configViper.SetDefault("api.base_url", defaultAPIBaseURL)
	configViper.SetDefault("api.timeout_seconds", defaultAPITimeoutSeconds)
	configViper.SetDefault("panel.page_size", pipeline.DefaultPageSize)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    strings.TrimSpace(configViper.GetString("http.address")),
		DatabasePath:   strings.TrimSpace(configViper.GetString("database.path")),
		LogLevel:       configViper.GetString("log.level"),
		AllowedOrigins: splitList(configViper.GetStringSlice("cors.allowed_origins")),
		APIBaseURL:     strings.TrimSuffix(strings.TrimSpace(configViper.GetString("api.base_url")), "/"),
		APITimeout:     time.Duration(configViper.GetInt("api.timeout_seconds")) * time.Second,
		PanelPageSize:  configViper.GetInt("panel.page_size"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if c.HTTPAddress == "" {
		return fmt.Errorf("http.address is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	for _, origin := range c.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("cors.allowed_origins: %q must be * or an http(s) origin", origin)
		}
	}
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) url")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive")
	}
	if !pipeline.IsAllowedPageSize(c.PanelPageSize) {
		return fmt.Errorf("panel.page_size must be one of %v", pipeline.AllowedPageSizes())
	}
	return nil
}

// splitList accepts both list values and comma separated strings from the environment.
func splitList(values []string) []string {
	items := make([]string, 0, len(values))
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}
