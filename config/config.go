// Package config loads typeinf.toml session configuration.
package config

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/wippyai/typeinf/transcoder"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config is a typeinf.toml file.
type Config struct {
	Target Target `toml:"target"`
	Limits Limits `toml:"limits"`
	Log    Log    `toml:"log"`
	WIT    WIT    `toml:"wit"`
	Codec  Codec  `toml:"codec"`
}

// Target describes the memory model packed buffers are laid out for.
type Target struct {
	ByteOrder string `toml:"byte-order"` // "little" or "big"
	AddrSize  uint64 `toml:"addr-size"`  // 4 or 8
}

// Limits bound transcoding work.
type Limits struct {
	MaxBytes uint64 `toml:"max-bytes"`
	MaxDepth int    `toml:"max-depth"`
}

type Log struct {
	Level string `toml:"level"`
}

// WIT points at a resolve in the JSON form emitted by
// `wasm-tools component wit --json`.
type WIT struct {
	Path string `toml:"path"`
}

// Codec selects how parsed declarations are serialized.
type Codec struct {
	// FullLayout serializes with the full mode when the fast one cannot
	// express a declaration.
	FullLayout bool `toml:"full-layout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Target: Target{ByteOrder: "little", AddrSize: 8},
		Limits: Limits{MaxBytes: 64 << 20, MaxDepth: 64},
		Log:    Log{Level: "info"},
	}
}

// Load parses the TOML file at path over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s", undecoded[0])
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Target.AddrSize != 4 && c.Target.AddrSize != 8 {
		return fmt.Errorf("target.addr-size must be 4 or 8, got %d", c.Target.AddrSize)
	}
	if _, err := c.ByteOrder(); err != nil {
		return err
	}
	if c.Limits.MaxDepth <= 0 {
		return fmt.Errorf("limits.max-depth must be positive, got %d", c.Limits.MaxDepth)
	}
	if c.Limits.MaxBytes == 0 {
		return fmt.Errorf("limits.max-bytes must be positive")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ByteOrder returns the target byte order.
func (c *Config) ByteOrder() (binary.ByteOrder, error) {
	switch c.Target.ByteOrder {
	case "", "little":
		return binary.LittleEndian, nil
	case "big":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("target.byte-order must be little or big, got %q", c.Target.ByteOrder)
}

// TranscoderOptions converts the target and limits into transcoder
// options.
func (c *Config) TranscoderOptions() []transcoder.Option {
	order, err := c.ByteOrder()
	if err != nil {
		order = binary.LittleEndian
	}
	return []transcoder.Option{
		transcoder.WithAddrSize(c.Target.AddrSize),
		transcoder.WithByteOrder(order),
		transcoder.WithMaxDepth(c.Limits.MaxDepth),
		transcoder.WithMaxBytes(c.Limits.MaxBytes),
	}
}

// NewLogger builds a development-style console logger at the configured
// level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.DisableStacktrace = true
	return zc.Build()
}
