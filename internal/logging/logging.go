package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "DTP_LOG_LEVEL"
	EnvLogFormat  = "DTP_LOG_FORMAT"
	EnvLogNoColor = "DTP_LOG_NOCOLOR"

	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config — параметры журнала
type Config struct {
	Level   string
	Format  string
	NoColor bool
}

// DefaultConfig возвращает настройки по умолчанию: info, консольный вывод
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatConsole}
}

// New создаёт логгер. Переменные окружения DTP_LOG_* имеют приоритет над cfg.
func New(cfg Config, out io.Writer) zerolog.Logger {
	applyEnvOverrides(&cfg)
	if out == nil {
		out = os.Stderr
	}

	level, ok := ParseLevel(cfg.Level)
	if !ok {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, FormatJSON) {
		return zerolog.New(out).Level(level).With().Timestamp().Str("app", "dtpctl").Logger()
	}
	w := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    cfg.NoColor,
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Format = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

// ParseLevel разбирает уровень журнала. ok=false для пустой или неизвестной строки.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
