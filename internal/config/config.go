// Package config loads fedgraph settings. Values come from defaults, then an
// optional YAML file, then FEDGRAPH_* environment variables; command-line
// flags are applied last by the caller.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	resolvability "github.com/hanpama/fedgraph/internal/resolvability"
	subgraph "github.com/hanpama/fedgraph/internal/subgraph"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Subgraphs  []Subgraph       `yaml:"subgraphs"`
	GraphQL    GraphQLConfig    `yaml:"graphql"`
	Validation ValidationConfig `yaml:"validation"`
	Server     ServerConfig     `yaml:"server"`
	Otel       OtelConfig       `yaml:"otel"`
	Log        LogConfig        `yaml:"log"`
}

// Subgraph names one subgraph by file or by inline SDL.
type Subgraph struct {
	Name       string `yaml:"name"`
	SchemaFile string `yaml:"schema_file"`
	Schema     string `yaml:"schema"`
}

type GraphQLConfig struct {
	// Root is a directory scanned for subgraph SDL files when Subgraphs is
	// empty.
	Root string `yaml:"root"`
}

type ValidationConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	Pretty       bool          `yaml:"pretty"`
}

type OtelConfig struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func Default() Config {
	return Config{
		GraphQL:    GraphQLConfig{Root: "."},
		Validation: ValidationConfig{MaxDepth: resolvability.DefaultMaxDepth},
		Server: ServerConfig{
			Addr:         ":8080",
			Timeout:      10 * time.Second,
			MaxBodyBytes: 4 << 20,
		},
		Otel: OtelConfig{Service: "fedgraph"},
		Log:  LogConfig{Level: "info"},
	}
}

// Load returns the configuration for path. An empty path yields the defaults
// with environment overrides applied. Relative schema files are resolved
// against the directory of the config file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	loadFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i := range cfg.Subgraphs {
		sf := cfg.Subgraphs[i].SchemaFile
		if sf != "" && !filepath.IsAbs(sf) {
			cfg.Subgraphs[i].SchemaFile = filepath.Join(dir, sf)
		}
	}
	if cfg.GraphQL.Root != "" && !filepath.IsAbs(cfg.GraphQL.Root) {
		cfg.GraphQL.Root = filepath.Join(dir, cfg.GraphQL.Root)
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("FEDGRAPH_MAX_DEPTH"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Validation.MaxDepth = i
		}
	}
	if v := os.Getenv("FEDGRAPH_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FEDGRAPH_SERVER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.Timeout = d
		}
	}
	if v := os.Getenv("FEDGRAPH_OTEL_ENDPOINT"); v != "" {
		cfg.Otel.Endpoint = v
	}
	if v := os.Getenv("FEDGRAPH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func (c Config) Validate() error {
	if c.Validation.MaxDepth < 1 {
		return fmt.Errorf("validation.max_depth must be >= 1")
	}
	if c.Server.Timeout < 0 {
		return fmt.Errorf("server.timeout must not be negative")
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes must not be negative")
	}
	seen := make(map[string]bool, len(c.Subgraphs))
	for i, sg := range c.Subgraphs {
		if sg.Name == "" && sg.SchemaFile == "" {
			return fmt.Errorf("subgraphs[%d]: name or schema_file is required", i)
		}
		if (sg.SchemaFile == "") == (sg.Schema == "") {
			return fmt.Errorf("subgraphs[%d]: exactly one of schema_file and schema must be set", i)
		}
		if sg.Name != "" {
			if seen[sg.Name] {
				return fmt.Errorf("subgraphs[%d]: duplicate subgraph name %q", i, sg.Name)
			}
			seen[sg.Name] = true
		}
	}
	return nil
}

// Discovery returns the subgraphs the configuration names. Listed subgraphs
// take precedence over the GraphQL root directory.
func (c Config) Discovery(ctx context.Context) (subgraph.Discovery, error) {
	if len(c.Subgraphs) == 0 {
		return subgraph.NewFileSystemDiscovery(ctx, c.GraphQL.Root)
	}
	inline := false
	files := make([]subgraph.File, 0, len(c.Subgraphs))
	for _, sg := range c.Subgraphs {
		if sg.Schema != "" {
			inline = true
		}
		files = append(files, subgraph.File{Name: sg.Name, Path: sg.SchemaFile})
	}
	if !inline {
		return subgraph.NewFileListDiscovery(files)
	}
	subgraphs := make([]subgraph.InMemorySubgraph, 0, len(c.Subgraphs))
	for _, sg := range c.Subgraphs {
		name, content := sg.Name, sg.Schema
		if sg.SchemaFile != "" {
			data, err := os.ReadFile(sg.SchemaFile)
			if err != nil {
				return nil, fmt.Errorf("read schema of subgraph %q: %w", sg.Name, err)
			}
			content = string(data)
			if name == "" {
				name = stem(sg.SchemaFile)
			}
		}
		subgraphs = append(subgraphs, subgraph.InMemorySubgraph{Name: name, Content: content})
	}
	return subgraph.NewInMemoryDiscovery(subgraphs), nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
