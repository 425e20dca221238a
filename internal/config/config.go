package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/evanschultz/ucm/internal/ident"
)

// ProjectDir is the directory that marks a project root and holds its config file.
const ProjectDir = ".ucm"

// FileName is the config file name inside ProjectDir.
const FileName = "config.toml"

type Backend string

const (
	BackendTOML   Backend = "toml"
	BackendSQLite Backend = "sqlite"
)

type Config struct {
	Storage     StorageConfig     `toml:"storage"`
	Identifiers IdentifiersConfig `toml:"identifiers"`
	Logging     LoggingConfig     `toml:"logging"`
}

type StorageConfig struct {
	Backend Backend `toml:"backend"`
	// BasePath is resolved against the project root when relative.
	BasePath string `toml:"base_path"`
}

type IdentifiersConfig struct {
	Prefix         string            `toml:"prefix"`
	TokenStrategy  string            `toml:"token_strategy"` // extend | strict
	CategoryTokens map[string]string `toml:"category_tokens,omitempty"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Default returns the configuration written by a fresh init for the given backend.
func Default(backend Backend) Config {
	if backend == "" {
		backend = BackendTOML
	}
	basePath := "docs/use-cases"
	if backend == BackendSQLite {
		basePath = filepath.Join(ProjectDir, "ucm.db")
	}
	return Config{
		Storage: StorageConfig{
			Backend:  backend,
			BasePath: basePath,
		},
		Identifiers: IdentifiersConfig{
			Prefix:        ident.DefaultPrefix,
			TokenStrategy: string(ident.StrategyExtend),
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: false,
				Dir:     filepath.Join(ProjectDir, "log"),
			},
		},
	}
}

// Load overlays the file at path onto defaults. A missing or empty file yields defaults.
func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	cfg.Identifiers.CategoryTokens = maps.Clone(defaults.Identifiers.CategoryTokens)
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("decode toml at line %d column %d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendTOML, BackendSQLite:
	default:
		return fmt.Errorf("invalid storage.backend: %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.BasePath) == "" {
		return errors.New("storage.base_path is required")
	}

	if _, err := ident.New(c.IdentConfig()); err != nil {
		return fmt.Errorf("invalid identifiers: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	return nil
}

// IdentConfig converts the identifier section for the allocator.
func (c Config) IdentConfig() ident.Config {
	return ident.Config{
		Prefix:   c.Identifiers.Prefix,
		Strategy: ident.Strategy(strings.ToLower(strings.TrimSpace(c.Identifiers.TokenStrategy))),
		Tokens:   maps.Clone(c.Identifiers.CategoryTokens),
	}
}

// ResolveBasePath returns the storage location as an absolute path under projectRoot.
func (c Config) ResolveBasePath(projectRoot string) string {
	base := strings.TrimSpace(c.Storage.BasePath)
	if filepath.IsAbs(base) {
		return filepath.Clean(base)
	}
	return filepath.Join(projectRoot, base)
}

// Write encodes cfg to path, creating the parent directory.
func Write(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	encoded, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// PathIn returns the config file location for a project root.
func PathIn(projectRoot string) string {
	return filepath.Join(projectRoot, ProjectDir, FileName)
}

// FindProjectRoot walks up from start to the nearest directory holding ProjectDir/FileName.
func FindProjectRoot(start string) (string, bool) {
	dir := filepath.Clean(strings.TrimSpace(start))
	if dir == "" || dir == "." {
		wd, err := os.Getwd()
		if err != nil {
			return "", false
		}
		dir = wd
	}
	for {
		if info, err := os.Stat(PathIn(dir)); err == nil && !info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
