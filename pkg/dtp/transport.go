package dtp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"go.bug.st/serial"
)

const readChunkSize = 1024

// Handler получает события сессии. Вызовы идут из горутины чтения сессии,
// по одному на каждое физическое событие.
type Handler interface {
	// OnData — получена очередная порция байт
	OnData(chunk []byte)
	// OnError — ошибка чтения; после неё всегда следует OnClosed
	OnError(err error)
	// OnClosed — соединение закрыто (удалённой стороной или локально)
	OnClosed()
}

// Session — открытое соединение с устройством
type Session interface {
	Write(p []byte) error
	Close() error
}

// Transport открывает сессии с устройством
type Transport interface {
	Dial(ctx context.Context, h Handler) (Session, error)
}

// NewTransport выбирает транспорт по Config.Network
func NewTransport(cfg Config) (Transport, error) {
	cfg = cfg.withDefaults()
	switch cfg.Network {
	case NetworkTCP:
		return &TCPTransport{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Timeout:      cfg.ConnectTimeout,
			WriteTimeout: cfg.CommandTimeout,
		}, nil
	case NetworkSerial:
		return &SerialTransport{
			ComName:  cfg.ComName,
			BaudRate: cfg.BaudRate,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, cfg.Network)
	}
}

// TCPTransport — постоянное TCP-соединение с принтером
type TCPTransport struct {
	Addr         string
	Timeout      time.Duration
	WriteTimeout time.Duration
}

// Dial устанавливает TCP-соединение с таймаутом подключения
func (t *TCPTransport) Dial(ctx context.Context, h Handler) (Session, error) {
	dialer := &net.Dialer{Timeout: t.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrConnectTimeout, t.Addr)
		}
		return nil, &ConnectError{Addr: t.Addr, Err: err}
	}
	return newStreamSession(conn, h, t.WriteTimeout), nil
}

// SerialTransport — подключение через COM-порт (RS-232 / USB-CDC)
type SerialTransport struct {
	ComName  string
	BaudRate int
}

// Dial открывает COM-порт, 8N1
func (t *SerialTransport) Dial(ctx context.Context, h Handler) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mode := &serial.Mode{
		BaudRate: t.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(t.ComName, mode)
	if err != nil {
		return nil, &ConnectError{Addr: t.ComName, Err: err}
	}
	return newStreamSession(port, h, 0), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// streamSession читает поток в отдельной горутине и отдаёт события обработчику
type streamSession struct {
	rwc          io.ReadWriteCloser
	h            Handler
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool // вызван Close
	ended  bool // горутина чтения завершилась
}

func newStreamSession(rwc io.ReadWriteCloser, h Handler, writeTimeout time.Duration) *streamSession {
	s := &streamSession{rwc: rwc, h: h, writeTimeout: writeTimeout}
	go s.readLoop()
	return s
}

func (s *streamSession) readLoop() {
	buf := make([]byte, readChunkSize)
	for {
		n, err := s.rwc.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.h.OnData(chunk)
		}
		if err != nil {
			// локальное закрытие и EOF — штатное завершение, не ошибка
			if !s.isClosed() && !errors.Is(err, io.EOF) {
				s.h.OnError(err)
			}
			s.markEnded()
			s.h.OnClosed()
			return
		}
	}
}

func (s *streamSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *streamSession) markEnded() {
	s.mu.Lock()
	s.ended = true
	s.mu.Unlock()
}

// Write отправляет байты устройству
func (s *streamSession) Write(p []byte) error {
	s.mu.Lock()
	dead := s.closed || s.ended
	s.mu.Unlock()
	if dead {
		return ErrNotConnected
	}
	if conn, ok := s.rwc.(net.Conn); ok && s.writeTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := s.rwc.Write(p)
	return err
}

// Close закрывает соединение. Повторный вызов ничего не делает.
func (s *streamSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.rwc.Close()
}
