package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dtpprinter/pkg/dtp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dtpctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[printer]
host = "192.168.1.50"
port = 9100
command_timeout_ms = 15000
charset = "windows-1252"

[log]
level = "debug"
format = "json"

[metrics]
addr = ":9108"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	p := cfg.Printer
	if p.Host != "192.168.1.50" || p.Port != 9100 || p.Charset != "windows-1252" {
		t.Errorf("printer: %+v", p)
	}
	if p.CommandTimeout != 15*time.Second {
		t.Errorf("command timeout: got %v", p.CommandTimeout)
	}
	if p.ConnectTimeout != dtp.DefaultConnectTimeout || p.Network != dtp.NetworkTCP {
		t.Errorf("defaults must be kept for missing keys: %+v", p)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" || cfg.MetricsAddr != ":9108" {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadSerial(t *testing.T) {
	path := writeConfig(t, `
[printer]
network = "SERIAL"
com_name = "COM3"
baud_rate = 115200
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Printer.Network != dtp.NetworkSerial || cfg.Printer.ComName != "COM3" || cfg.Printer.BaudRate != 115200 {
		t.Errorf("got %+v", cfg.Printer)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"syntax", "[printer\nhost=1", "load config"},
		{"unknown key", "[printer]\nhots = \"x\"", "unknown key"},
		{"zero timeout", "[printer]\ncommand_timeout_ms = 0", "command_timeout_ms"},
		{"bad port", "[printer]\nport = 70000", "out of range"},
		{"serial without port", "[printer]\nnetwork = \"serial\"", "com_name"},
		{"bad charset", "[printer]\ncharset = \"utf-8\"", "charset"},
		{"bad level", "[log]\nlevel = \"loud\"", "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	_, err := Load(writeConfig(t, "[printer]\nnetwork = \"udp\""))
	if !errors.Is(err, dtp.ErrUnknownNetwork) {
		t.Errorf("expected ErrUnknownNetwork, got %v", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Errorf("Default: %v", err)
	}
}

func TestLoadExample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "cmd", "dtpctl", "dtpctl.example.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Printer.Host != "192.168.1.10" || cfg.Printer.Port != DefaultPort {
		t.Errorf("got %+v", cfg.Printer)
	}
}
