package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const defaultAPITimeout = 30 * time.Second

// ConfigLoader reads and merges configuration from various sources.
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	appHomeDir string
	warnings   []string
}

// ConfigLoaderOption defines a functional option for configuring a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile returns a ConfigLoaderOption that sets the configuration file path.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// WithAppHomeDir keeps the config file and data under dir instead of the
// XDG directories.
func WithAppHomeDir(dir string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.appHomeDir = dir
	}
}

// NewConfigLoader creates a ConfigLoader with the given viper instance and options.
func NewConfigLoader(v *viper.Viper, options ...ConfigLoaderOption) *ConfigLoader {
	loader := &ConfigLoader{v: v}
	for _, opt := range options {
		opt(loader)
	}
	return loader
}

type appPaths struct {
	ConfigDir string
	DataDir   string
}

func (l *ConfigLoader) resolveAppPaths() appPaths {
	home := l.appHomeDir
	if home == "" {
		home = os.Getenv(strings.ToUpper(AppSlug) + "_HOME")
	}
	if home != "" {
		return appPaths{ConfigDir: home, DataDir: filepath.Join(home, "data")}
	}
	return appPaths{
		ConfigDir: filepath.Join(xdg.ConfigHome, AppSlug),
		DataDir:   filepath.Join(xdg.DataHome, AppSlug),
	}
}

// Load reads the configuration file, applies defaults and environment
// overrides, and returns a validated Config instance.
func (l *ConfigLoader) Load() (*Config, error) {
	paths := l.resolveAppPaths()

	l.configureViper(paths.ConfigDir)
	l.bindEnvironmentVariables()
	l.setViperDefaultValues(paths)

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var def Definition
	if err := l.v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}
	cfg.Paths.ConfigFileUsed = l.v.ConfigFileUsed()
	cfg.Warnings = l.warnings
	return cfg, nil
}

func (l *ConfigLoader) buildConfig(def Definition) (*Config, error) {
	cfg := Config{
		Core: Core{
			Debug:     def.Debug,
			LogFormat: strings.ToLower(def.LogFormat),
			LogFile:   def.LogFile,
		},
		API: API{
			BaseURL: strings.TrimRight(def.API.BaseURL, "/"),
			Timeout: l.parseDuration("api.timeout", def.API.Timeout, defaultAPITimeout),
			Token:   def.API.Token,
		},
		Server: Server{
			Host:           def.Server.Host,
			Port:           def.Server.Port,
			AllowedOrigins: def.Server.AllowedOrigins,
		},
		Paths: PathsConfig{
			DataDir:  def.Paths.DataDir,
			NodesDir: def.Paths.NodesDir,
		},
		Features: Features{
			DNSServerCreate: def.Features.DNSServerCreate,
		},
	}

	if cfg.Paths.NodesDir == "" {
		cfg.Paths.NodesDir = filepath.Join(cfg.Paths.DataDir, "nodes")
	}
	for _, p := range []*string{&cfg.Paths.DataDir, &cfg.Paths.NodesDir, &cfg.Core.LogFile} {
		if *p == "" {
			continue
		}
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %q: %w", *p, err)
		}
		*p = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// parseDuration parses a duration string, falling back to def and adding a
// warning if invalid.
func (l *ConfigLoader) parseDuration(fieldName, value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		l.warnings = append(l.warnings, fmt.Sprintf("Invalid %s value: %q, using %s", fieldName, value, def))
		return def
	}
	return d
}

func (l *ConfigLoader) configureViper(configDir string) {
	if l.configFile == "" {
		l.v.AddConfigPath(configDir)
		l.v.SetConfigName("config")
	} else {
		l.v.SetConfigFile(l.configFile)
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix(strings.ToUpper(AppSlug))
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
}

func (l *ConfigLoader) setViperDefaultValues(paths appPaths) {
	l.v.SetDefault("debug", false)
	l.v.SetDefault("log_format", "text")
	l.v.SetDefault("log_file", "")

	l.v.SetDefault("api.base_url", "http://127.0.0.1:2333")
	l.v.SetDefault("api.timeout", defaultAPITimeout.String())
	l.v.SetDefault("api.token", "")

	l.v.SetDefault("server.host", "127.0.0.1")
	l.v.SetDefault("server.port", 2334)
	l.v.SetDefault("server.allowed_origins", []string{})

	l.v.SetDefault("paths.data_dir", paths.DataDir)
	l.v.SetDefault("paths.nodes_dir", "")

	l.v.SetDefault("features.dns_server_create", false)
}

type envBinding struct {
	key string
	env string
}

var envBindings = []envBinding{
	{key: "debug", env: "DEBUG"},
	{key: "log_format", env: "LOG_FORMAT"},
	{key: "log_file", env: "LOG_FILE"},
	{key: "api.base_url", env: "API_BASE_URL"},
	{key: "api.timeout", env: "API_TIMEOUT"},
	{key: "api.token", env: "API_TOKEN"},
	{key: "server.host", env: "HOST"},
	{key: "server.port", env: "PORT"},
	{key: "paths.data_dir", env: "DATA_DIR"},
	{key: "paths.nodes_dir", env: "NODES_DIR"},
	{key: "features.dns_server_create", env: "DNS_SERVER_CREATE"},
}

func (l *ConfigLoader) bindEnvironmentVariables() {
	prefix := strings.ToUpper(AppSlug) + "_"
	for _, b := range envBindings {
		_ = l.v.BindEnv(b.key, prefix+b.env)
	}
}
