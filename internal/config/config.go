package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"dtpprinter/internal/logging"
	"dtpprinter/pkg/dtp"
)

// DefaultPort — TCP-порт принтеров DTP по умолчанию
const DefaultPort = 3010

// Config — настройки dtpctl
type Config struct {
	Printer     dtp.Config
	Log         logging.Config
	MetricsAddr string
}

type fileConfig struct {
	Printer printerSection `toml:"printer"`
	Log     logSection     `toml:"log"`
	Metrics metricsSection `toml:"metrics"`
}

type printerSection struct {
	Network          string `toml:"network"`
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	ComName          string `toml:"com_name"`
	BaudRate         int    `toml:"baud_rate"`
	ConnectTimeoutMS int64  `toml:"connect_timeout_ms"`
	CommandTimeoutMS int64  `toml:"command_timeout_ms"`
	Charset          string `toml:"charset"`
}

type logSection struct {
	Level   string `toml:"level"`
	Format  string `toml:"format"`
	NoColor bool   `toml:"no_color"`
}

type metricsSection struct {
	Addr string `toml:"addr"`
}

// Default возвращает настройки без файла
func Default() Config {
	return Config{
		Printer: dtp.Config{
			Network:        dtp.NetworkTCP,
			Host:           "127.0.0.1",
			Port:           DefaultPort,
			BaudRate:       dtp.DefaultBaudRate,
			ConnectTimeout: dtp.DefaultConnectTimeout,
			CommandTimeout: dtp.DefaultCommandTimeout,
		},
		Log: logging.DefaultConfig(),
	}
}

// Load читает TOML-файл и накладывает заданные в нём ключи на Default()
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	p := &cfg.Printer
	if meta.IsDefined("printer", "network") {
		p.Network = strings.ToLower(strings.TrimSpace(raw.Printer.Network))
	}
	if meta.IsDefined("printer", "host") {
		p.Host = strings.TrimSpace(raw.Printer.Host)
	}
	if meta.IsDefined("printer", "port") {
		p.Port = raw.Printer.Port
	}
	if meta.IsDefined("printer", "com_name") {
		p.ComName = strings.TrimSpace(raw.Printer.ComName)
	}
	if meta.IsDefined("printer", "baud_rate") {
		p.BaudRate = raw.Printer.BaudRate
	}
	if meta.IsDefined("printer", "connect_timeout_ms") {
		p.ConnectTimeout = time.Duration(raw.Printer.ConnectTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("printer", "command_timeout_ms") {
		p.CommandTimeout = time.Duration(raw.Printer.CommandTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("printer", "charset") {
		p.Charset = strings.TrimSpace(raw.Printer.Charset)
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = raw.Log.Level
	}
	if meta.IsDefined("log", "format") {
		cfg.Log.Format = raw.Log.Format
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	if meta.IsDefined("metrics", "addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.Metrics.Addr)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек
func Validate(cfg Config) error {
	p := cfg.Printer
	switch p.Network {
	case dtp.NetworkTCP:
		if p.Host == "" {
			return fmt.Errorf("config: printer.host is required for tcp")
		}
		if p.Port <= 0 || p.Port > 65535 {
			return fmt.Errorf("config: printer.port %d out of range", p.Port)
		}
	case dtp.NetworkSerial:
		if p.ComName == "" {
			return fmt.Errorf("config: printer.com_name is required for serial")
		}
		if p.BaudRate <= 0 {
			return fmt.Errorf("config: printer.baud_rate must be positive")
		}
	default:
		return fmt.Errorf("config: %w: %q", dtp.ErrUnknownNetwork, p.Network)
	}
	if p.ConnectTimeout <= 0 {
		return fmt.Errorf("config: printer.connect_timeout_ms must be positive")
	}
	if p.CommandTimeout <= 0 {
		return fmt.Errorf("config: printer.command_timeout_ms must be positive")
	}
	if _, err := dtp.NewCodec(p.Charset); err != nil {
		return fmt.Errorf("config: printer.charset: %w", err)
	}
	if cfg.Log.Level != "" {
		if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
			return fmt.Errorf("config: unknown log.level %q", cfg.Log.Level)
		}
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("config: unknown log.format %q", cfg.Log.Format)
	}
	return nil
}
