package config

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	order, _ := c.ByteOrder()
	if order != binary.LittleEndian {
		t.Errorf("ByteOrder() = %v, want little endian", order)
	}
	if len(c.TranscoderOptions()) != 4 {
		t.Error("expected four transcoder options")
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
[target]
byte-order = "big"
addr-size = 4

[limits]
max-depth = 16

[log]
level = "debug"

[wit]
path = "api.wit.json"

[codec]
full-layout = true
`)
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if c.Target.AddrSize != 4 || c.Limits.MaxDepth != 16 || c.WIT.Path != "api.wit.json" || !c.Codec.FullLayout {
		t.Errorf("Parse() = %+v", c)
	}
	if c.Limits.MaxBytes != 64<<20 {
		t.Errorf("MaxBytes = %d, want default", c.Limits.MaxBytes)
	}
	order, _ := c.ByteOrder()
	if order != binary.BigEndian {
		t.Error("expected big endian")
	}
	logger, err := c.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	_ = logger.Sync()
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"syntax", "[target"},
		{"addr size", "[target]\naddr-size = 2"},
		{"byte order", "[target]\nbyte-order = \"middle\""},
		{"depth", "[limits]\nmax-depth = 0"},
		{"level", "[log]\nlevel = \"loud\""},
		{"unknown key", "[target]\nwidth = 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typeinf.toml")
	if err := os.WriteFile(path, []byte("[target]\naddr-size = 4\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Target.AddrSize != 4 {
		t.Errorf("AddrSize = %d", c.Target.AddrSize)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
