package dtp

import (
	"errors"
	"fmt"
)

var (
	ErrConnectTimeout   = errors.New("dtp: connect timeout")
	ErrNotConnected     = errors.New("dtp: not connected")
	ErrCommandInFlight  = errors.New("dtp: another command is in flight")
	ErrCommandTimeout   = errors.New("dtp: command timeout")
	ErrConnectionClosed = errors.New("dtp: connection closed")
	ErrUnknownCharset   = errors.New("dtp: unknown charset")
	ErrUnknownNetwork   = errors.New("dtp: unknown network")
	ErrUnknownCommand   = errors.New("dtp: unknown command")
	ErrNoCommands       = errors.New("dtp: no commands to execute")
)

// CodeMalformedResponse — код результата для ответа без числового первого поля
const CodeMalformedResponse = 16

// ConnectError — сетевая ошибка при подключении (отказ, DNS, нет маршрута)
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("dtp: connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// CommandTimeoutError — ответ на команду не получен за отведённое время
type CommandTimeoutError struct {
	Command string
}

func (e *CommandTimeoutError) Error() string {
	return fmt.Sprintf("dtp: command timeout: %s", e.Command)
}

func (e *CommandTimeoutError) Is(target error) bool {
	return target == ErrCommandTimeout
}

// DeviceError — устройство вернуло ненулевой код результата
type DeviceError struct {
	Command string
	Code    int
	// Index — позиция команды в выполняемой последовательности
	Index int
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("dtp: %s failed: code %d", e.Command, e.Code)
}
