package dtp

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	NetworkTCP    = "tcp"
	NetworkSerial = "serial"

	DefaultConnectTimeout = 3000 * time.Millisecond
	DefaultCommandTimeout = 10000 * time.Millisecond
	DefaultBaudRate       = 9600
)

// Config определяет параметры подключения к принтеру DTP.
type Config struct {
	Network        string        `json:"network"`           // tcp | serial
	Host           string        `json:"host,omitempty"`    // TCP IP
	Port           int           `json:"port,omitempty"`    // TCP Port
	ComName        string        `json:"comName,omitempty"` // COM Port Name
	BaudRate       int           `json:"baudRate,omitempty"`
	ConnectTimeout time.Duration `json:"connectTimeout,omitempty"`
	CommandTimeout time.Duration `json:"commandTimeout,omitempty"`
	Charset        string        `json:"charset,omitempty"` // пусто = ISO-8859-1

	Logger  *zerolog.Logger `json:"-"`
	Metrics *Metrics        `json:"-"`
}

func (c Config) withDefaults() Config {
	if c.Network == "" {
		c.Network = NetworkTCP
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = DefaultCommandTimeout
	}
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}
