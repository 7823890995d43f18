package neokit

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read at startup.
const (
	EnvNeo4jURI        = "NEO4J_URI"
	EnvNeo4jUsername   = "NEO4J_USERNAME"
	EnvNeo4jPassword   = "NEO4J_PASSWORD"
	EnvNeo4jDatabase   = "NEO4J_DATABASE"
	EnvOpenAIKey       = "OPENAI_API_KEY"
	EnvCredentialsPath = "GOOGLE_APPLICATION_CREDENTIALS"
	EnvProjectID       = "GOOGLE_CLOUD_PROJECT"
	EnvMCPAddr         = "NEOKIT_MCP_ADDR"
)

// Config represents the .neokit.yaml configuration file.
type Config struct {
	Neo4j  *Profile     `yaml:"neo4j,omitempty"`
	MCP    MCPConfig    `yaml:"mcp,omitempty"`
	OpenAI OpenAIConfig `yaml:"openai,omitempty"`
	Cloud  CloudConfig  `yaml:"cloud,omitempty"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	Name      string `yaml:"name,omitempty"`
	Version   string `yaml:"version,omitempty"`
	Addr      string `yaml:"addr,omitempty"`
	Path      string `yaml:"path,omitempty"`
	Transport string `yaml:"transport,omitempty"`
}

// OpenAIConfig holds settings for the embedding and text-to-Cypher tools.
// The API key is only ever read from the environment.
type OpenAIConfig struct {
	APIKey         string `yaml:"-"`
	Model          string `yaml:"model,omitempty"`
	EmbeddingModel string `yaml:"embeddingModel,omitempty"`
}

// CloudConfig holds optional cloud credentials used by data import examples.
type CloudConfig struct {
	CredentialsPath string `yaml:"credentialsPath,omitempty"`
	ProjectID       string `yaml:"projectId,omitempty"`
}

// Defaults for unset configuration values.
const (
	DefaultMCPName        = "Movies GraphRAG Server"
	DefaultMCPAddr        = ":8000"
	DefaultMCPPath        = "/mcp"
	DefaultMCPTransport   = "http"
	DefaultChatModel      = "gpt-4o"
	DefaultEmbeddingModel = "text-embedding-ada-002"
)

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".neokit.yaml", ".neokit.yml", "neokit.yaml", "neokit.yml"}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()

	return cfg
}

func (c *Config) applyDefaults() {
	if c.Neo4j == nil {
		c.Neo4j = &Profile{}
	}

	if c.MCP.Name == "" {
		c.MCP.Name = DefaultMCPName
	}

	if c.MCP.Addr == "" {
		c.MCP.Addr = DefaultMCPAddr
	}

	if c.MCP.Path == "" {
		c.MCP.Path = DefaultMCPPath
	}

	if c.MCP.Transport == "" {
		c.MCP.Transport = DefaultMCPTransport
	}

	if c.OpenAI.Model == "" {
		c.OpenAI.Model = DefaultChatModel
	}

	if c.OpenAI.EmbeddingModel == "" {
		c.OpenAI.EmbeddingModel = DefaultEmbeddingModel
	}
}

// Profile returns the Neo4j connection profile.
func (c *Config) Profile() Profile {
	if c.Neo4j == nil {
		return Profile{}
	}

	return *c.Neo4j
}

// ApplyEnv overrides file values with non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.Neo4j == nil {
		c.Neo4j = &Profile{}
	}

	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.Neo4j.URI, EnvNeo4jURI)
	set(&c.Neo4j.Username, EnvNeo4jUsername)
	set(&c.Neo4j.Password, EnvNeo4jPassword)
	set(&c.Neo4j.Database, EnvNeo4jDatabase)
	set(&c.OpenAI.APIKey, EnvOpenAIKey)
	set(&c.Cloud.CredentialsPath, EnvCredentialsPath)
	set(&c.Cloud.ProjectID, EnvProjectID)
	set(&c.MCP.Addr, EnvMCPAddr)
}

// Load builds the effective configuration for dir: the nearest .neokit.yaml
// (optional), then .env files (optional), then the process environment.
func Load(dir string, envFiles ...string) (*Config, error) {
	cfg, err := LoadConfig(dir)
	if errors.Is(err, ErrConfigNotFound) {
		cfg, err = &Config{}, nil
	}

	if err != nil {
		return nil, err
	}

	if err := LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.applyDefaults()

	return cfg, nil
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			return err
		}
	}

	return nil
}

// LoadConfig finds and loads the nearest .neokit.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
