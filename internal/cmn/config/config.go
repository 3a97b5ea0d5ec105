package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Config is the validated runtime configuration.
type Config struct {
	Core     Core
	API      API
	Server   Server
	Paths    PathsConfig
	Features Features
	// Warnings are non-fatal problems found while loading.
	Warnings []string
}

// Core holds process-wide settings.
type Core struct {
	Debug     bool
	LogFormat string
	LogFile   string
}

// API describes the dashboard API.
type API struct {
	BaseURL string
	Timeout time.Duration
	Token   string
}

// Server describes the node registry service.
type Server struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// Address returns host:port.
func (s Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PathsConfig holds resolved filesystem locations.
type PathsConfig struct {
	DataDir        string
	NodesDir       string
	ConfigFileUsed string
}

// Features toggles optional components.
type Features struct {
	DNSServerCreate bool
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	switch c.Core.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log_format %q: must be text or json", c.Core.LogFormat))
	}
	if c.API.BaseURL != "" {
		if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid api.base_url %q", c.API.BaseURL))
		}
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server.port %d", c.Server.Port))
	}
	return errors.Join(errs...)
}
