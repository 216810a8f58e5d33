package fakedtp

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dtpprinter/pkg/dtp"
)

// Handler отвечает на кадр запроса. nil — не отвечать (имитация зависания).
type Handler func(fields []string) []string

// Server — TCP-эмулятор принтера DTP для тестов и отладки без устройства
type Server struct {
	ln      net.Listener
	codec   *dtp.Codec
	handler Handler
	delay   time.Duration
	log     zerolog.Logger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// Option настраивает Server
type Option func(*Server)

// WithDelay задерживает каждый ответ
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// WithLogger задаёт логгер эмулятора
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// Listen запускает эмулятор на addr ("127.0.0.1:0" — свободный порт)
func Listen(addr string, h Handler, opts ...Option) (*Server, error) {
	codec, err := dtp.NewCodec("")
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:      ln,
		codec:   codec,
		handler: h,
		log:     zerolog.Nop(),
		conns:   make(map[net.Conn]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr возвращает адрес, на котором слушает эмулятор
func (s *Server) Addr() *net.TCPAddr {
	return s.ln.Addr().(*net.TCPAddr)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Error().Err(err).Msg("accept failed")
			}
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("client connected")
		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.forget(conn)

	var buf []byte
	chunk := make([]byte, 1024)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			for {
				fields, rest, ok := s.codec.Extract(buf)
				if !ok {
					break
				}
				buf = rest
				resp := s.handler(fields)
				if resp == nil {
					s.log.Debug().Strs("request", fields).Msg("no reply")
					continue
				}
				if s.delay > 0 {
					time.Sleep(s.delay)
				}
				if _, err := conn.Write(s.codec.Encode(resp)); err != nil {
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) forget(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

// DropConnections разрывает все клиентские соединения, не останавливая эмулятор
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

// Close останавливает эмулятор и ждёт завершения всех горутин
func (s *Server) Close() error {
	s.mu.Lock()
	s.closed = true
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	err := s.ln.Close()
	s.wg.Wait()
	return err
}
