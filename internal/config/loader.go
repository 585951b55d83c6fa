package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/abhisek/mathguide/internal/llm"
)

const (
	envPrefix         = "MATHGUIDE_"
	maxConfigFileSize = 1024 * 1024
)

// subsections names the nested blocks of each section that env keys may
// address.
var subsections = map[string][]string{
	"index": {"qdrant", "pinecone"},
	"llm":   {"anthropic", "openai", "gemini", "openrouter", "retry"},
}

// Load builds the configuration from defaults, the optional YAML file at
// path and the environment. A path that was given but cannot be read is an
// error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.LLM = llm.ConfigFromEnv(cfg.LLM)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return nil, errors.New("config file grew past the size limit while reading")
	}
	return content, nil
}

// envKey maps MATHGUIDE_SECTION_FIELD to section.field. Variables outside
// a known section are dropped; the provider-specific ones such as
// MATHGUIDE_OPENAI_API_KEY are picked up by llm.ConfigFromEnv instead.
func envKey(name string) string {
	rest := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	section, field, ok := strings.Cut(rest, "_")
	if !ok || field == "" || !knownSection(section) {
		return ""
	}
	for _, sub := range subsections[section] {
		if f, ok := strings.CutPrefix(field, sub+"_"); ok && f != "" {
			return section + "." + sub + "." + f
		}
	}
	// Fields is a map and cannot be set from a single variable.
	if section == "logging" && field == "fields" {
		return ""
	}
	return section + "." + field
}

func knownSection(s string) bool {
	switch s {
	case "server", "store", "logging", "llm", "embed", "index", "guidance", "phrase":
		return true
	}
	return false
}
