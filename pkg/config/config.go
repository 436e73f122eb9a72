// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Backend kinds.
const (
	BackendSQLite = "sqlite"
	BackendHTTP   = "http"
)

// FileName is the config file looked up in the home and working directories.
const FileName = ".scenenav.yaml"

// Config holds all scenenav configuration.
type Config struct {
	Backend Backend `yaml:"backend"`
	Engine  Engine  `yaml:"engine"`
	Catalog Catalog `yaml:"catalog"`
}

// Backend selects where scenes come from.
type Backend struct {
	Kind           string        `yaml:"kind"`    // "sqlite" | "http"
	DBPath         string        `yaml:"db_path"` // sqlite catalog
	APIURL         string        `yaml:"api_url"` // http backend base URL
	Timeout        time.Duration `yaml:"timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Engine tunes the navigation engine.
type Engine struct {
	TimelineMargin int `yaml:"timeline_margin"`
	MaxAttempts    int `yaml:"max_attempts"`
	PrewarmTarget  int `yaml:"prewarm_target"`
}

// Catalog tunes the local sqlite catalog.
type Catalog struct {
	PageSize    int `yaml:"page_size"`
	NearbyLimit int `yaml:"nearby_limit"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Backend: Backend{
			Kind:           BackendSQLite,
			DBPath:         ".scenenav/scenes.db",
			Timeout:        30 * time.Second,
			ConnectTimeout: 5 * time.Second,
		},
		Engine: Engine{
			TimelineMargin: 5,
			MaxAttempts:    5,
			PrewarmTarget:  8,
		},
		Catalog: Catalog{
			PageSize:    8,
			NearbyLimit: 16,
		},
	}
}

// DefaultPaths returns the config layers in increasing priority: the user's
// home file, the working directory file and $SCENENAV_CONFIG if set.
func DefaultPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}
	paths = append(paths, FileName)
	if p := os.Getenv("SCENENAV_CONFIG"); p != "" {
		paths = append(paths, p)
	}
	return paths
}

// Present returns the paths that exist as regular files, in the order given.
func Present(paths ...string) []string {
	var found []string
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			found = append(found, p)
		}
	}
	return found
}

// Resolve loads the default layers, applies environment overrides and
// validates the result.
func Resolve() (*Config, error) {
	cfg, err := LoadLayered(DefaultPaths()...)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendSQLite:
		if c.Backend.DBPath == "" {
			return errors.New("config: backend.db_path cannot be empty for the sqlite backend")
		}
	case BackendHTTP:
		if c.Backend.APIURL == "" {
			return errors.New("config: backend.api_url cannot be empty for the http backend")
		}
		u, err := url.Parse(c.Backend.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config: backend.api_url must be an http(s) URL, got %q", c.Backend.APIURL)
		}
	default:
		return fmt.Errorf("config: backend.kind must be %q or %q, got %q", BackendSQLite, BackendHTTP, c.Backend.Kind)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("config: backend.timeout must be positive, got %v", c.Backend.Timeout)
	}
	if c.Backend.ConnectTimeout < 0 {
		return fmt.Errorf("config: backend.connect_timeout must be non-negative, got %v", c.Backend.ConnectTimeout)
	}
	if c.Engine.TimelineMargin < 1 {
		return fmt.Errorf("config: engine.timeline_margin must be at least 1, got %d", c.Engine.TimelineMargin)
	}
	if c.Engine.MaxAttempts < 1 {
		return fmt.Errorf("config: engine.max_attempts must be at least 1, got %d", c.Engine.MaxAttempts)
	}
	if c.Engine.PrewarmTarget < 1 {
		return fmt.Errorf("config: engine.prewarm_target must be at least 1, got %d", c.Engine.PrewarmTarget)
	}
	if c.Catalog.PageSize < 1 {
		return fmt.Errorf("config: catalog.page_size must be at least 1, got %d", c.Catalog.PageSize)
	}
	if c.Catalog.NearbyLimit < 1 {
		return fmt.Errorf("config: catalog.nearby_limit must be at least 1, got %d", c.Catalog.NearbyLimit)
	}
	return nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: SCENENAV_BACKEND, SCENENAV_DB, SCENENAV_API,
// SCENENAV_TIMEOUT, SCENENAV_PAGE_SIZE.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("SCENENAV_BACKEND"); v != "" {
		c.Backend.Kind = v
	}
	if v := os.Getenv("SCENENAV_DB"); v != "" {
		c.Backend.DBPath = v
	}
	if v := os.Getenv("SCENENAV_API"); v != "" {
		c.Backend.APIURL = v
	}
	if v := os.Getenv("SCENENAV_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid SCENENAV_TIMEOUT %q: %w", v, err)
		}
		c.Backend.Timeout = d
	}
	if v := os.Getenv("SCENENAV_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid SCENENAV_PAGE_SIZE %q: %w", v, err)
		}
		c.Catalog.PageSize = n
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Backend *rawBackend `yaml:"backend"`
	Engine  *rawEngine  `yaml:"engine"`
	Catalog *rawCatalog `yaml:"catalog"`
}

type rawBackend struct {
	Kind           *string        `yaml:"kind"`
	DBPath         *string        `yaml:"db_path"`
	APIURL         *string        `yaml:"api_url"`
	Timeout        *time.Duration `yaml:"timeout"`
	ConnectTimeout *time.Duration `yaml:"connect_timeout"`
}

type rawEngine struct {
	TimelineMargin *int `yaml:"timeline_margin"`
	MaxAttempts    *int `yaml:"max_attempts"`
	PrewarmTarget  *int `yaml:"prewarm_target"`
}

type rawCatalog struct {
	PageSize    *int `yaml:"page_size"`
	NearbyLimit *int `yaml:"nearby_limit"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if b := layer.Backend; b != nil {
		if b.Kind != nil {
			c.Backend.Kind = *b.Kind
		}
		if b.DBPath != nil {
			c.Backend.DBPath = *b.DBPath
		}
		if b.APIURL != nil {
			c.Backend.APIURL = *b.APIURL
		}
		if b.Timeout != nil {
			c.Backend.Timeout = *b.Timeout
		}
		if b.ConnectTimeout != nil {
			c.Backend.ConnectTimeout = *b.ConnectTimeout
		}
	}
	if e := layer.Engine; e != nil {
		if e.TimelineMargin != nil {
			c.Engine.TimelineMargin = *e.TimelineMargin
		}
		if e.MaxAttempts != nil {
			c.Engine.MaxAttempts = *e.MaxAttempts
		}
		if e.PrewarmTarget != nil {
			c.Engine.PrewarmTarget = *e.PrewarmTarget
		}
	}
	if cat := layer.Catalog; cat != nil {
		if cat.PageSize != nil {
			c.Catalog.PageSize = *cat.PageSize
		}
		if cat.NearbyLimit != nil {
			c.Catalog.NearbyLimit = *cat.NearbyLimit
		}
	}
}
