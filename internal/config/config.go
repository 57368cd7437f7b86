package config

import (
	"encoding/json"
	"math"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/verdant/internal/errors"
)

const (
	// ConfigFileName is the JSON configuration file.
	ConfigFileName = "verdant.json"

	// YAMLFileName is the YAML configuration file, used when no JSON file
	// exists.
	YAMLFileName = "verdant.yaml"

	DefaultPort           = 3000
	DefaultHost           = "localhost"
	DefaultOutput         = "dist"
	DefaultAPIBase        = "/api"
	DefaultDataPrefix     = "/__data"
	DefaultRevalidatePath = "/__verdant/revalidate"
	DefaultEventsPath     = "/__verdant/events"
	DefaultMetricsPath    = "/metrics"
	DefaultNATSSubject    = "verdant.revalidate"
)

// Environment overrides, applied after the file is read.
const (
	EnvRevalidateSecret = "VERDANT_REVALIDATE_SECRET"
	EnvProduction       = "VERDANT_PRODUCTION"
	EnvPort             = "VERDANT_PORT"
	EnvBuildID          = "VERDANT_BUILD_ID"
	EnvNATSURL          = "VERDANT_NATS_URL"
)

// fileNames are tried in order by Load.
var fileNames = []string{ConfigFileName, YAMLFileName, "verdant.yml"}

// Config is the verdant.json / verdant.yaml configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Production disables API output validation and requires a
	// revalidation secret.
	Production bool `json:"production,omitempty" yaml:"production,omitempty"`

	// BuildID is stamped into navigation payloads. Generated when empty.
	BuildID string `json:"buildId,omitempty" yaml:"buildId,omitempty"`

	// Lang is the document language.
	Lang string `json:"lang,omitempty" yaml:"lang,omitempty"`

	Server     ServerConfig     `json:"server" yaml:"server"`
	Paths      PathsConfig      `json:"paths" yaml:"paths"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	API        APIConfig        `json:"api" yaml:"api"`
	Revalidate RevalidateConfig `json:"revalidate" yaml:"revalidate"`
	Export     ExportConfig     `json:"export" yaml:"export"`

	configPath string
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string   `json:"host,omitempty" yaml:"host,omitempty"`
	Port            int      `json:"port,omitempty" yaml:"port,omitempty"`
	ReadTimeout     Duration `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	WriteTimeout    Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	ShutdownTimeout Duration `json:"shutdownTimeout,omitempty" yaml:"shutdownTimeout,omitempty"`
}

// PathsConfig holds the URL paths verdant mounts its endpoints at.
type PathsConfig struct {
	APIBase     string `json:"apiBase,omitempty" yaml:"apiBase,omitempty"`
	DataPrefix  string `json:"dataPrefix,omitempty" yaml:"dataPrefix,omitempty"`
	Revalidate  string `json:"revalidate,omitempty" yaml:"revalidate,omitempty"`
	Events      string `json:"events,omitempty" yaml:"events,omitempty"`
	Metrics     string `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	ChunkPrefix string `json:"chunkPrefix,omitempty" yaml:"chunkPrefix,omitempty"`

	// Manifest is a JSON file mapping chunk names to fingerprinted
	// names, resolved against the config directory.
	Manifest string `json:"manifest,omitempty" yaml:"manifest,omitempty"`
}

// CacheConfig bounds page generation.
type CacheConfig struct {
	// RegenerationTimeout bounds one load and render.
	RegenerationTimeout Duration `json:"regenerationTimeout,omitempty" yaml:"regenerationTimeout,omitempty"`

	// LoaderTimeout bounds the page loader alone.
	LoaderTimeout Duration `json:"loaderTimeout,omitempty" yaml:"loaderTimeout,omitempty"`
}

// APIConfig configures the API dispatcher.
type APIConfig struct {
	MaxBodyBytes int64 `json:"maxBodyBytes,omitempty" yaml:"maxBodyBytes,omitempty"`
}

// RevalidateConfig configures the on-demand endpoint.
type RevalidateConfig struct {
	// Secret authenticates callers. Usually supplied through
	// VERDANT_REVALIDATE_SECRET rather than the file.
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`

	// RateLimit is requests per second; Burst the bucket size.
	RateLimit float64 `json:"rateLimit,omitempty" yaml:"rateLimit,omitempty"`
	Burst     int     `json:"burst,omitempty" yaml:"burst,omitempty"`

	NATS NATSConfig `json:"nats" yaml:"nats"`
}

// NATSConfig enables revalidation broadcasting when URL is set.
type NATSConfig struct {
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	Subject string `json:"subject,omitempty" yaml:"subject,omitempty"`
}

// ExportConfig configures `verdant export`.
type ExportConfig struct {
	// Output is a directory or s3://bucket/prefix.
	Output      string   `json:"output,omitempty" yaml:"output,omitempty"`
	Concurrency int      `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	Payloads    bool     `json:"payloads,omitempty" yaml:"payloads,omitempty"`
	S3          S3Config `json:"s3" yaml:"s3"`
}

// S3Config configures the S3 export target.
type S3Config struct {
	Region string `json:"region,omitempty" yaml:"region,omitempty"`

	// Endpoint points at an S3-compatible service.
	Endpoint  string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	PathStyle bool   `json:"pathStyle,omitempty" yaml:"pathStyle,omitempty"`
}

// New creates a Config with default values. BuildID stays empty until
// applyDefaults runs.
func New() *Config {
	return &Config{
		Lang: "en",
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Paths: PathsConfig{
			APIBase:     DefaultAPIBase,
			DataPrefix:  DefaultDataPrefix,
			Revalidate:  DefaultRevalidatePath,
			Events:      DefaultEventsPath,
			Metrics:     DefaultMetricsPath,
			ChunkPrefix: "/assets",
		},
		Cache: CacheConfig{
			RegenerationTimeout: Duration(10 * time.Second),
			LoaderTimeout:       Duration(5 * time.Second),
		},
		API: APIConfig{MaxBodyBytes: 1 << 20},
		Revalidate: RevalidateConfig{
			RateLimit: 10,
			Burst:     20,
			NATS:      NATSConfig{Subject: DefaultNATSSubject},
		},
		Export: ExportConfig{
			Output:      DefaultOutput,
			Concurrency: 4,
		},
	}
}

// Default returns New with defaults and environment overrides applied,
// for running without a configuration file.
func Default() *Config {
	cfg := New()
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration in dir, trying verdant.json, verdant.yaml
// and verdant.yml in that order.
func Load(dir string) (*Config, error) {
	for _, name := range fileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("V101").
		WithDetail("No verdant.json or verdant.yaml found in " + dir).
		WithSuggestion("Create verdant.json, or run without a config file to use defaults")
}

// LoadFile reads configuration from path. The format follows the file
// extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("V101").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("V100").Wrap(err)
	}

	cfg := New()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("V102").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("V102").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithLocationFromYAML(path, err).
				WithSuggestion("Check the indentation around the reported line")
		}
	default:
		return nil, errors.New("V106").WithDetail("Cannot read " + path)
	}

	cfg.configPath = path
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// SaveTo writes the configuration as JSON or YAML, following the
// extension of path.
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return errors.New("V100").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("V100").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyEnv applies environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvRevalidateSecret); v != "" {
		c.Revalidate.Secret = v
	}
	if v := os.Getenv(EnvProduction); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Production = b
		}
	}
	if v := os.Getenv(EnvPort); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv(EnvBuildID); v != "" {
		c.BuildID = v
	}
	if v := os.Getenv(EnvNATSURL); v != "" {
		c.Revalidate.NATS.URL = v
	}
}

// applyDefaults fills in empty fields.
func (c *Config) applyDefaults() {
	defaults := New()

	if c.Lang == "" {
		c.Lang = defaults.Lang
	}
	if c.BuildID == "" {
		c.BuildID = uuid.NewString()
	}

	// Server
	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaults.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaults.Server.WriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
	}

	// Paths
	fill := func(p *string, def string) {
		if *p == "" {
			*p = def
		}
	}
	fill(&c.Paths.APIBase, defaults.Paths.APIBase)
	fill(&c.Paths.DataPrefix, defaults.Paths.DataPrefix)
	fill(&c.Paths.Revalidate, defaults.Paths.Revalidate)
	fill(&c.Paths.Events, defaults.Paths.Events)
	fill(&c.Paths.Metrics, defaults.Paths.Metrics)

	// Cache
	if c.Cache.RegenerationTimeout == 0 {
		c.Cache.RegenerationTimeout = defaults.Cache.RegenerationTimeout
	}
	if c.Cache.LoaderTimeout == 0 {
		c.Cache.LoaderTimeout = defaults.Cache.LoaderTimeout
	}

	if c.API.MaxBodyBytes == 0 {
		c.API.MaxBodyBytes = defaults.API.MaxBodyBytes
	}

	// Revalidate
	if c.Revalidate.RateLimit == 0 {
		c.Revalidate.RateLimit = defaults.Revalidate.RateLimit
	}
	if c.Revalidate.Burst == 0 {
		c.Revalidate.Burst = defaults.Revalidate.Burst
	}
	fill(&c.Revalidate.NATS.Subject, DefaultNATSSubject)

	// Export
	fill(&c.Export.Output, DefaultOutput)
	if c.Export.Concurrency == 0 {
		c.Export.Concurrency = defaults.Export.Concurrency
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > math.MaxUint16 {
		return errors.New("V103").
			WithDetail("Port must be between 1 and 65535, got " + strconv.Itoa(c.Server.Port))
	}

	durations := map[string]Duration{
		"server.readTimeout":        c.Server.ReadTimeout,
		"server.writeTimeout":       c.Server.WriteTimeout,
		"server.shutdownTimeout":    c.Server.ShutdownTimeout,
		"cache.regenerationTimeout": c.Cache.RegenerationTimeout,
		"cache.loaderTimeout":       c.Cache.LoaderTimeout,
	}
	for name, d := range durations {
		if d <= 0 {
			return errors.New("V104").WithDetail(name + " must be positive, got " + d.String())
		}
	}

	mounts := []string{c.Paths.APIBase, c.Paths.DataPrefix, c.Paths.Revalidate, c.Paths.Events}
	seen := make(map[string]bool, len(mounts))
	for _, m := range mounts {
		if !strings.HasPrefix(m, "/") || m == "/" || seen[m] {
			return errors.New("V107").WithDetail("Mount path " + strconv.Quote(m) + " is not absolute, is the root, or is used twice")
		}
		seen[m] = true
	}

	if c.Production && c.Revalidate.Secret == "" {
		return errors.New("V105").
			WithSuggestion("Set " + EnvRevalidateSecret)
	}
	return nil
}

// Addr returns host:port for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// URL returns the base URL of the HTTP server.
func (c *Config) URL() string {
	return "http://" + c.Addr()
}

// OutputPath resolves the export output against the config directory.
// s3:// targets are returned unchanged.
func (c *Config) OutputPath() string {
	out := c.Export.Output
	if strings.HasPrefix(out, "s3://") || filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(c.Dir(), out)
}

// ManifestPath resolves the chunk manifest against the config directory.
// It returns "" when no manifest is configured.
func (c *Config) ManifestPath() string {
	m := c.Paths.Manifest
	if m == "" || filepath.IsAbs(m) {
		return m
	}
	return filepath.Join(c.Dir(), m)
}

// Exists reports whether dir holds a configuration file.
func Exists(dir string) bool {
	for _, name := range fileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// FindProjectRoot walks up from startDir to the first directory holding
// a configuration file.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("V101").
				WithDetail("No verdant.json or verdant.yaml found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the configuration of the enclosing project, or
// the defaults when there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return Default(), nil
	}
	return Load(root)
}
