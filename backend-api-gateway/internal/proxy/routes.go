package proxy

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServiceConfig holds configuration for a backend service
type ServiceConfig struct {
	Name    string        `yaml:"name"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RouteConfig maps a path prefix to a backend service
type RouteConfig struct {
	// PathPrefix matches the path itself and anything below it, "/users"
	// matches "/users" and "/users/login" but not "/usersx"
	PathPrefix string `yaml:"path_prefix"`
	// StripPrefix is removed from the path before forwarding
	StripPrefix string        `yaml:"strip_prefix"`
	Service     ServiceConfig `yaml:"service"`
	// Methods restricts the route to these HTTP methods (empty = all)
	Methods []string `yaml:"methods"`
}

// ProxyConfig holds the overall proxy configuration
type ProxyConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout"`
	Routes         []RouteConfig `yaml:"routes"`
}

// DefaultConfig routes /users to the user service and /recipes to the
// recipe service
func DefaultConfig(userURL, recipeURL string, timeout time.Duration) ProxyConfig {
	if userURL == "" {
		userURL = "http://localhost:8081"
	}
	if recipeURL == "" {
		recipeURL = "http://localhost:8082"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return ProxyConfig{
		DefaultTimeout: 30 * time.Second,
		Routes: []RouteConfig{
			{
				PathPrefix: "/users",
				Service: ServiceConfig{
					Name:    "user-service",
					BaseURL: userURL,
					Timeout: timeout,
				},
			},
			{
				PathPrefix: "/recipes",
				Service: ServiceConfig{
					Name:    "recipe-service",
					BaseURL: recipeURL,
					Timeout: timeout,
				},
			},
		},
	}
}

// LoadConfig reads a YAML route table
func LoadConfig(path string) (ProxyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ProxyConfig{}, fmt.Errorf("failed to read routes file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML route table
func ParseConfig(data []byte) (ProxyConfig, error) {
	var cfg ProxyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ProxyConfig{}, fmt.Errorf("failed to parse routes: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return ProxyConfig{}, err
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	return cfg, nil
}

// Validate checks that every route has a prefix and a usable backend URL
func (c ProxyConfig) Validate() error {
	if len(c.Routes) == 0 {
		return fmt.Errorf("at least one route is required")
	}
	for i, r := range c.Routes {
		if !strings.HasPrefix(r.PathPrefix, "/") {
			return fmt.Errorf("route %d: path_prefix must start with /", i)
		}
		if r.Service.Name == "" {
			return fmt.Errorf("route %d: service name is required", i)
		}
		u, err := url.Parse(r.Service.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("route %d: invalid base_url %q", i, r.Service.BaseURL)
		}
	}
	return nil
}

func (r *RouteConfig) matches(path, method string) bool {
	prefix := strings.TrimSuffix(r.PathPrefix, "/")
	if path != prefix && !strings.HasPrefix(path, prefix+"/") {
		return false
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if strings.EqualFold(m, method) {
			return true
		}
	}
	return false
}
