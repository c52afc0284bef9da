package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents a project's render configuration.
type Config struct {
	Title     string                    `yaml:"title,omitempty"`
	Output    OutputConfig              `yaml:"output"`
	Render    []string                  `yaml:"render,omitempty"`     // Explicit ordered render globs; empty means discover the whole tree
	Resources []string                  `yaml:"resources,omitempty"`  // Declared project-level resource paths/globs
	Formats   map[string]map[string]any `yaml:"formats,omitempty"`    // Per-format configuration, merged under frontmatter
	RenderAll bool                      `yaml:"render_all,omitempty"` // Formats needing whole-project context (e.g. combined output)
	Preview   PreviewConfig             `yaml:"preview,omitempty"`
	Metadata  map[string]any            `yaml:"metadata,omitempty"` // Arbitrary project metadata, scanned for file resources

	// path is the config file this Config was loaded from (empty for in-memory configs).
	path string
}

// OutputConfig controls where rendered artifacts land.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	LibDir    string `yaml:"lib_dir,omitempty"`  // Shared library assets directory name
	KeepLib   bool   `yaml:"keep_lib,omitempty"` // Preserve library assets in the working tree
}

// PreviewConfig controls the local preview server.
type PreviewConfig struct {
	Port          int `yaml:"port,omitempty"`
	DebounceMS    int `yaml:"debounce_ms,omitempty"`
	ResyncMinutes int `yaml:"resync_minutes,omitempty"` // 0 disables the periodic full resync
}

// Candidate project configuration file names, tried in order.
var configFileNames = []string{"project.yml", "project.yaml"}

// Find returns the path of the project configuration file inside dir, or an
// empty string when the project has no configuration file.
func Find(dir string) string {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Load loads and validates configuration from the specified file.
// Environment variables referenced as ${VAR} in the YAML are expanded;
// .env/.env.local files are loaded first when present.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, configPath, err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, configPath, err)
	}
	cfg.path = configPath
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadProject locates and loads the configuration for the project rooted at
// dir. A project without a configuration file gets defaults.
func LoadProject(dir string) (*Config, error) {
	path := Find(dir)
	if path == "" {
		cfg := &Config{}
		cfg.applyDefaults()
		return cfg, nil
	}
	return Load(path)
}

// Path returns the configuration file this Config was loaded from, or an
// empty string for in-memory configurations.
func (c *Config) Path() string { return c.path }

func (c *Config) applyDefaults() {
	if c.Output.Directory == "" {
		c.Output.Directory = "_site"
	}
	if c.Output.LibDir == "" {
		c.Output.LibDir = "site_libs"
	}
	if c.Preview.Port == 0 {
		c.Preview.Port = 1313
	}
	if c.Preview.DebounceMS == 0 {
		c.Preview.DebounceMS = 300
	}
}

// Validate checks structural invariants before any file is touched.
func (c *Config) Validate() error {
	if filepath.IsAbs(c.Output.Directory) {
		return fmt.Errorf("%w: output.directory must be project-relative, got %s", ErrInvalidConfig, c.Output.Directory)
	}
	if strings.Contains(c.Output.LibDir, string(filepath.Separator)) {
		return fmt.Errorf("%w: output.lib_dir must be a bare directory name, got %s", ErrInvalidConfig, c.Output.LibDir)
	}
	for _, g := range c.Render {
		if strings.TrimSpace(g) == "" {
			return fmt.Errorf("%w: empty entry in render list", ErrInvalidConfig)
		}
		if _, err := filepath.Match(g, ""); err != nil {
			return fmt.Errorf("%w: bad render glob %q: %w", ErrInvalidConfig, g, err)
		}
	}
	if c.Preview.Port < 0 || c.Preview.Port > 65535 {
		return fmt.Errorf("%w: preview.port out of range: %d", ErrInvalidConfig, c.Preview.Port)
	}
	return nil
}

// loadEnvFiles loads the first .env file that parses. Existing process
// environment variables are not overwritten.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err == nil {
			return
		}
	}
}
