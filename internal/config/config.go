// Package config loads lernpack application settings.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
	"github.com/cognicore/lernpack/pkg/lernpack/quality"
)

const (
	// EnvPrefix marks environment overrides: LERNPACK_PLANNER_MAX_PACKS
	// sets planner.max_packs.
	EnvPrefix = "LERNPACK_"

	maxConfigFileSize = 1024 * 1024
)

//go:embed defaults.yaml
var defaultsYAML []byte

// sections are the nested blocks an env key may address.
var sections = []string{"segmenter", "planner", "generator", "log"}

// Config is the full application configuration.
type Config struct {
	ContentRoot  string          `koanf:"content_root"`
	ReportsDir   string          `koanf:"reports_dir"`
	IndexPath    string          `koanf:"index_path"`
	LexiconPath  string          `koanf:"lexicon_path"`
	TemplatesDir string          `koanf:"templates_dir"`
	MetricsFile  string          `koanf:"metrics_file"`
	Segmenter    SegmenterConfig `koanf:"segmenter"`
	Planner      PlannerConfig   `koanf:"planner"`
	Generator    GeneratorConfig `koanf:"generator"`
	Log          LogConfig       `koanf:"log"`
}

// SegmenterConfig bounds chunk size.
type SegmenterConfig struct {
	MaxChunkChars int `koanf:"max_chunk_chars"`
}

// PlannerConfig bounds the pack plan.
type PlannerConfig struct {
	MinPacks         int     `koanf:"min_packs"`
	MaxPacks         int     `koanf:"max_packs"`
	OverlapThreshold float64 `koanf:"overlap_threshold"`
	GroupSimilarity  float64 `koanf:"group_similarity"`
}

// GeneratorConfig tunes prompt drafting.
type GeneratorConfig struct {
	MaxAttempts    int  `koanf:"max_attempts"`
	MinTokenHits   int  `koanf:"min_token_hits"`
	PadSlotChanges bool `koanf:"pad_slot_changes"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Load builds the configuration from the embedded defaults, the YAML file
// at path (skipped when path is empty) and LERNPACK_* environment
// variables, in that order of precedence from lowest to highest.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: config file %s: %v", internalerr.ErrInvalidConfig, path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", internalerr.ErrInvalidConfig, info.Size(), maxConfigFileSize)
	}
	return os.ReadFile(path)
}

// envKey maps LERNPACK_PLANNER_MAX_PACKS to planner.max_packs and
// LERNPACK_CONTENT_ROOT to content_root.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, sec := range sections {
		if strings.HasPrefix(key, sec+"_") {
			return sec + "." + strings.TrimPrefix(key, sec+"_")
		}
	}
	return key
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var problems []string
	if c.ContentRoot == "" {
		problems = append(problems, "content_root is required")
	}
	if c.Segmenter.MaxChunkChars <= 0 {
		problems = append(problems, "segmenter.max_chunk_chars must be positive")
	}
	if c.Planner.MinPacks <= 0 || c.Planner.MaxPacks < c.Planner.MinPacks {
		problems = append(problems, "planner needs 0 < min_packs <= max_packs")
	}
	if c.Planner.OverlapThreshold <= 0 || c.Planner.OverlapThreshold > 1 {
		problems = append(problems, "planner.overlap_threshold must be in (0, 1]")
	}
	if c.Planner.GroupSimilarity <= 0 || c.Planner.GroupSimilarity > 1 {
		problems = append(problems, "planner.group_similarity must be in (0, 1]")
	}
	if c.Generator.MaxAttempts <= 0 {
		problems = append(problems, "generator.max_attempts must be positive")
	}
	if c.Generator.MinTokenHits < quality.MinScenarioTokens {
		problems = append(problems, fmt.Sprintf("generator.min_token_hits must be at least %d, the scenario_tokens gate", quality.MinScenarioTokens))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be json or console", c.Log.Format))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
