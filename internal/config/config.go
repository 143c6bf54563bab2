package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/freva-org/databrowser/internal/domain/drs"
	"github.com/freva-org/databrowser/internal/domain/search/request"
)

// Config holds the databrowser configuration.
type Config struct {
	HTTP      HTTPConfig       `yaml:"http"`
	Solr      SolrConfig       `yaml:"solr"`
	Templates []TemplateConfig `yaml:"templates"`
	Auth      AuthConfig       `yaml:"auth"`
	Logging   LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // 0 after defaults: streams are not cut off
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SolrConfig holds index connection settings.
type SolrConfig struct {
	Scheme           string `yaml:"scheme"`
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	FilesCore        string `yaml:"files_core"`
	LatestCore       string `yaml:"latest_core"`
	SingleCore       bool   `yaml:"single_core"` // no latest core; latest filtering happens in the service
	BatchSize        int    `yaml:"batch_size"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// TemplateConfig declares one archive naming convention.
type TemplateConfig struct {
	ID                    string            `yaml:"id"`
	RootDir               string            `yaml:"root_dir"`
	PathParts             []string          `yaml:"parts_dir"`
	DatasetParts          []string          `yaml:"parts_dataset"`
	VersionedDatasetParts []string          `yaml:"parts_versioned_dataset"`
	VersionPart           string            `yaml:"version_part"`
	FileNameParts         []string          `yaml:"parts_file_name"`
	FileNameDelimiter     string            `yaml:"file_name_delimiter"`
	FileSuffix            string            `yaml:"file_suffix"`
	TimeParts             []string          `yaml:"parts_time"`
	TimeDelimiter         string            `yaml:"time_delimiter"`
	NoTimeSentinel        string            `yaml:"no_time_sentinel"`
	Defaults              map[string]string `yaml:"defaults"`
}

// Definition converts the declaration into a template definition.
func (t TemplateConfig) Definition() drs.Definition {
	return drs.Definition{
		ID:                    t.ID,
		RootDir:               t.RootDir,
		PathParts:             t.PathParts,
		DatasetParts:          t.DatasetParts,
		VersionedDatasetParts: t.VersionedDatasetParts,
		VersionPart:           t.VersionPart,
		FileNameParts:         t.FileNameParts,
		FileNameDelimiter:     t.FileNameDelimiter,
		FileSuffix:            t.FileSuffix,
		TimeParts:             t.TimeParts,
		TimeDelimiter:         t.TimeDelimiter,
		NoTimeSentinel:        t.NoTimeSentinel,
		Defaults:              t.Defaults,
	}
}

// Registry builds the template registry. Without declared templates the
// builtin ones are used.
func (c *Config) Registry() (*drs.Registry, error) {
	if len(c.Templates) == 0 {
		return drs.DefaultRegistry(), nil
	}
	templates := make([]*drs.Template, 0, len(c.Templates))
	for i, tc := range c.Templates {
		t, err := drs.NewTemplate(tc.Definition())
		if err != nil {
			return nil, fmt.Errorf("templates[%d]: %w", i, err)
		}
		templates = append(templates, t)
	}
	return drs.NewRegistry(templates...)
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Solr.Scheme == "" {
		c.Solr.Scheme = "http"
	}
	if c.Solr.Port <= 0 {
		c.Solr.Port = 8983
	}
	if c.Solr.FilesCore == "" {
		c.Solr.FilesCore = "files"
	}
	if c.Solr.LatestCore == "" && !c.Solr.SingleCore {
		c.Solr.LatestCore = "latest"
	}
	if c.Solr.SingleCore {
		c.Solr.LatestCore = ""
	}
	if c.Solr.BatchSize <= 0 {
		c.Solr.BatchSize = request.DefaultBatchSize
	}
	if c.Solr.TimeoutSec <= 0 {
		c.Solr.TimeoutSec = 30
	}
	if c.Solr.ReadinessTimeout <= 0 {
		c.Solr.ReadinessTimeout = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Solr.Host == "" {
		return fmt.Errorf("solr.host is required")
	}
	if c.Solr.Scheme != "http" && c.Solr.Scheme != "https" {
		return fmt.Errorf("solr.scheme must be \"http\" or \"https\", got %q", c.Solr.Scheme)
	}
	if c.Solr.BatchSize > request.MaxBatchSize {
		return fmt.Errorf("solr.batch_size must not exceed %d, got %d", request.MaxBatchSize, c.Solr.BatchSize)
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
