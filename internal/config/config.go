// Package config resolves an agent's construction options from the
// precedence chain in §4.12: explicit arguments, environment variables, a
// project-local ".co/" file, and built-in defaults, in that order.
package config

import (
	"os"
	"path/filepath"
)

// Config is the on-disk/env-sourced shape of the recognized option set.
// Fields mirror agent.Config 1:1 but stay string/primitive-typed since they
// may arrive from YAML/JSON5 before being resolved into real Tools/Provider
// values by the caller.
type Config struct {
	Name          string  `yaml:"name"`
	Model         string  `yaml:"model"`
	SystemPrompt  string  `yaml:"system_prompt"`
	MaxIterations int     `yaml:"max_iterations"`
	Temperature   float64 `yaml:"temperature"`
	APIKey        string  `yaml:"api_key"`
}

const projectConfigDir = ".co"

// envOverrides are the variables §4.12 names, in the order they're checked.
var envOverrides = []struct {
	key    string
	target func(*Config, string)
}{
	{"MODEL", func(c *Config, v string) { c.Model = v }},
	{"OPENAI_API_KEY", func(c *Config, v string) { c.APIKey = v }},
	{"ANTHROPIC_API_KEY", func(c *Config, v string) { c.APIKey = v }},
	{"GEMINI_API_KEY", func(c *Config, v string) { c.APIKey = v }},
	{"OPENONION_API_KEY", func(c *Config, v string) { c.APIKey = v }},
}

// Resolve builds a Config by layering, highest precedence last-applied:
// built-in defaults, the project's ".co/" config file (if present),
// environment variables, then explicit is the caller's own overrides
// (applied by the caller after Resolve returns, since those are typed
// Go values — callables, Provider, hooks — not config-file primitives).
//
// projectDir is the directory to search upward from for a ".co/" file;
// pass "" to use the current working directory.
func Resolve(projectDir string) (Config, error) {
	cfg := defaults()

	if path, ok := findProjectConfig(projectDir); ok {
		raw, err := LoadRaw(path)
		if err != nil {
			return cfg, err
		}
		fileCfg, err := decodeRawConfig(raw)
		if err != nil {
			return cfg, err
		}
		cfg = mergeConfig(cfg, *fileCfg)
	}

	for _, ov := range envOverrides {
		if v := os.Getenv(ov.key); v != "" {
			ov.target(&cfg, v)
		}
	}

	return cfg, nil
}

func defaults() Config {
	return Config{
		MaxIterations: 10,
		Temperature:   0.1,
	}
}

// mergeConfig overlays non-zero fields of override onto base.
func mergeConfig(base, override Config) Config {
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.SystemPrompt != "" {
		base.SystemPrompt = override.SystemPrompt
	}
	if override.MaxIterations != 0 {
		base.MaxIterations = override.MaxIterations
	}
	if override.Temperature != 0 {
		base.Temperature = override.Temperature
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	return base
}

// findProjectConfig walks upward from dir looking for a ".co/config.yaml"
// (or .yml/.json5/.json) file, stopping at the filesystem root.
func findProjectConfig(dir string) (string, bool) {
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}

	candidates := []string{"config.yaml", "config.yml", "config.json5", "config.json"}
	for {
		for _, name := range candidates {
			path := filepath.Join(dir, projectConfigDir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
