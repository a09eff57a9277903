package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	mdwerror "github.com/msto63/pascal/foundation/core/error"
)

// Config holds the complete application configuration
type Config struct {
	General   GeneralConfig   `toml:"general" yaml:"general"`
	Evaluator EvaluatorConfig `toml:"evaluator" yaml:"evaluator"`
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Store     StoreConfig     `toml:"store" yaml:"store"`
	Cache     CacheConfig     `toml:"cache" yaml:"cache"`
	Harness   HarnessConfig   `toml:"harness" yaml:"harness"`
}

// GeneralConfig holds general application settings
type GeneralConfig struct {
	Name        string `toml:"name" yaml:"name"`
	Environment string `toml:"environment" yaml:"environment"`
	DataDir     string `toml:"data_dir" yaml:"data_dir"`
	LogLevel    string `toml:"log_level" yaml:"log_level"`
	LogFormat   string `toml:"log_format" yaml:"log_format"`
	LogFile     string `toml:"log_file" yaml:"log_file"`
}

// EvaluatorConfig holds expression evaluation settings
type EvaluatorConfig struct {
	// Lenient accepts any closing bracket for any opener
	Lenient             bool `toml:"lenient" yaml:"lenient"`
	MaxDepth            int  `toml:"max_depth" yaml:"max_depth"`
	MaxExpressionLength int  `toml:"max_expression_length" yaml:"max_expression_length"`
}

// ServerConfig holds gRPC and HTTP listener settings
type ServerConfig struct {
	Host             string   `toml:"host" yaml:"host"`
	GRPCPort         int      `toml:"grpc_port" yaml:"grpc_port"`
	HTTPPort         int      `toml:"http_port" yaml:"http_port"`
	ReadTimeout      Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout     Duration `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout  Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	EnableReflection bool     `toml:"enable_reflection" yaml:"enable_reflection"`
}

// StoreConfig holds evaluation history settings
type StoreConfig struct {
	Disabled bool   `toml:"disabled" yaml:"disabled"`
	Path     string `toml:"path" yaml:"path"`
}

// CacheConfig holds evaluation result cache settings
type CacheConfig struct {
	Disabled bool     `toml:"disabled" yaml:"disabled"`
	MaxItems int      `toml:"max_items" yaml:"max_items"`
	TTL      Duration `toml:"ttl" yaml:"ttl"`
}

// HarnessConfig holds check harness settings
type HarnessConfig struct {
	// CasesFile is a YAML case file; empty selects the built-in suite
	CasesFile string `toml:"cases_file" yaml:"cases_file"`
}

// Duration wraps time.Duration for TOML and YAML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML parses a duration scalar
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar, got line %d", value.Line)
	}
	return d.UnmarshalText([]byte(value.Value))
}

// MarshalYAML formats the duration as a string
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// ErrNoConfig is returned by LoadFromEnv when no file could be located
var ErrNoConfig = errors.New("no config file found")

// Environment variables read by LoadFromEnv and ApplyEnv
const (
	EnvConfig   = "PASCAL_CONFIG"
	EnvHost     = "PASCAL_HOST"
	EnvGRPCPort = "PASCAL_GRPC_PORT"
	EnvHTTPPort = "PASCAL_HTTP_PORT"
)

// Default returns a configuration with all defaults applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a TOML or YAML file. The format is chosen
// by extension; anything other than .yaml or .yml is read as TOML.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, mdwerror.Newf("config file not found: %s", path).
			WithCode(mdwerror.CodeConfigError).
			WithOperation("config.Load")
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, mdwerror.Wrap(err, "failed to read config").
				WithCode(mdwerror.CodeConfigError)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, mdwerror.Wrap(err, "failed to parse config").
				WithCode(mdwerror.CodeInvalidConfig).
				WithDetail("path", path)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, mdwerror.Wrap(err, "failed to parse config").
				WithCode(mdwerror.CodeInvalidConfig).
				WithDetail("path", path)
		}
	}

	cfg.applyDefaults()
	cfg.expandEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultPaths lists the locations searched when PASCAL_CONFIG is unset
func DefaultPaths() []string {
	return []string{
		"./configs/config.toml",
		"./config.toml",
		"./config.yaml",
		filepath.Join(os.Getenv("HOME"), ".config/pascal/config.toml"),
	}
}

// LoadFromEnv loads configuration from the PASCAL_CONFIG environment
// variable or the first existing default location.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		for _, p := range DefaultPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return nil, fmt.Errorf("%w, set %s or create configs/config.toml", ErrNoConfig, EnvConfig)
	}

	return Load(path)
}

// LoadOrDefault loads path when set, otherwise falls back to LoadFromEnv
// and finally to Default.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg, err := LoadFromEnv()
	if errors.Is(err, ErrNoConfig) {
		return Default(), nil
	}
	return cfg, err
}

// ApplyEnv overrides listener settings from the environment
func (c *Config) ApplyEnv() error {
	if host := os.Getenv(EnvHost); host != "" {
		c.Server.Host = host
	}
	for env, port := range map[string]*int{
		EnvGRPCPort: &c.Server.GRPCPort,
		EnvHTTPPort: &c.Server.HTTPPort,
	} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		p, err := strconv.Atoi(v)
		if err != nil {
			return mdwerror.Newf("invalid %s: %q", env, v).
				WithCode(mdwerror.CodeInvalidConfig)
		}
		*port = p
	}
	return c.Validate()
}

// Validate checks value ranges
func (c *Config) Validate() error {
	for name, port := range map[string]int{
		"server.grpc_port": c.Server.GRPCPort,
		"server.http_port": c.Server.HTTPPort,
	} {
		if port < 0 || port > 65535 {
			return mdwerror.Newf("%s out of range: %d", name, port).
				WithCode(mdwerror.CodeInvalidConfig)
		}
	}
	if c.Evaluator.MaxDepth < 0 {
		return mdwerror.Newf("evaluator.max_depth must not be negative: %d", c.Evaluator.MaxDepth).
			WithCode(mdwerror.CodeInvalidConfig)
	}
	if c.Evaluator.MaxExpressionLength < 0 {
		return mdwerror.Newf("evaluator.max_expression_length must not be negative: %d", c.Evaluator.MaxExpressionLength).
			WithCode(mdwerror.CodeInvalidConfig)
	}
	return nil
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	// General
	if c.General.Name == "" {
		c.General.Name = "pascal"
	}
	if c.General.Environment == "" {
		c.General.Environment = "development"
	}
	if c.General.DataDir == "" {
		c.General.DataDir = "./data"
	}
	if c.General.LogLevel == "" {
		c.General.LogLevel = "info"
	}
	if c.General.LogFormat == "" {
		c.General.LogFormat = "json"
	}

	// Evaluator
	if c.Evaluator.MaxDepth == 0 {
		c.Evaluator.MaxDepth = 64
	}
	if c.Evaluator.MaxExpressionLength == 0 {
		c.Evaluator.MaxExpressionLength = 4096
	}

	// Server
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.GRPCPort == 0 {
		c.Server.GRPCPort = 9310
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8310
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout.Duration = 15 * time.Second
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout.Duration = 15 * time.Second
	}
	if c.Server.ShutdownTimeout.Duration == 0 {
		c.Server.ShutdownTimeout.Duration = 10 * time.Second
	}

	// Store
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.General.DataDir, "history.db")
	}

	// Cache
	if c.Cache.MaxItems == 0 {
		c.Cache.MaxItems = 10000
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL.Duration = 10 * time.Minute
	}
}

// expandEnvVars expands environment variables in path values
func (c *Config) expandEnvVars() {
	c.General.DataDir = os.ExpandEnv(c.General.DataDir)
	c.General.LogFile = os.ExpandEnv(c.General.LogFile)
	c.Store.Path = os.ExpandEnv(c.Store.Path)
	c.Harness.CasesFile = os.ExpandEnv(c.Harness.CasesFile)
}

// GRPCAddress returns the gRPC listen address
func (c *Config) GRPCAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.GRPCPort)
}

// HTTPAddress returns the HTTP gateway listen address
func (c *Config) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HTTPPort)
}
