// Package config loads an embedder's resource ceilings and logging
// preferences from an optional YAML file, the way a config-driven
// embedder hands the VM its limits before a run.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the knobs an embedder may tune before compiling and
// running a module. Zero-value fields are replaced by Default's values
// in Load when the file omits them.
type Config struct {
	// MaxStack bounds the VM's value-stack depth. 0 keeps the default.
	MaxStack int `yaml:"max_stack"`
	// MaxFrames bounds the VM's call-frame depth. 0 keeps the default.
	MaxFrames int `yaml:"max_frames"`
	// MaxCallArgs bounds the argument count a single CALL/NEW_INSTANCE
	// may carry. 0 keeps the default.
	MaxCallArgs int `yaml:"max_call_args"`
	// EchoBytecode makes the REPL print each compiled module's
	// disassembly before running it.
	EchoBytecode bool `yaml:"echo_bytecode"`
	// LogLevel is a zerolog level name: "debug", "info", "warn",
	// "error", or "disabled".
	LogLevel string `yaml:"log_level"`
}

// Default returns the limits the VM enforces when no config file is
// present.
func Default() Config {
	return Config{
		MaxStack:    1024,
		MaxFrames:   256,
		MaxCallArgs: 255,
		LogLevel:    "info",
	}
}

// Load reads and parses a YAML config file at path, filling in any
// field the file omits from Default. A missing file is not an error:
// Load returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if overlay.MaxStack != 0 {
		cfg.MaxStack = overlay.MaxStack
	}
	if overlay.MaxFrames != 0 {
		cfg.MaxFrames = overlay.MaxFrames
	}
	if overlay.MaxCallArgs != 0 {
		cfg.MaxCallArgs = overlay.MaxCallArgs
	}
	if overlay.LogLevel != "" {
		cfg.LogLevel = overlay.LogLevel
	}
	cfg.EchoBytecode = overlay.EchoBytecode
	return cfg, nil
}
