package dtp

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sender — единственная протокольная операция: отправить кадр и дождаться ответа.
// Реализуется Client; в тестах подменяется моком.
type Sender interface {
	Send(ctx context.Context, fields []string) ([]string, error)
}

// Client держит постоянную сессию с принтером DTP.
// Одновременно может ожидать ответа только одна команда: протокол не несёт
// идентификатора запроса, ответ сопоставляется с единственным запросом.
type Client struct {
	cfg       Config
	transport Transport
	codec     *Codec
	log       zerolog.Logger
	metrics   *Metrics

	// connMu упорядочивает Connect/Close; mu защищает состояние сессии
	connMu sync.Mutex

	mu      sync.Mutex
	gen     uint64 // поколение сессии, события старых сессий игнорируются
	lost    bool   // сессия закрылась во время подключения
	session Session
	buf     []byte
	pending *pendingRequest
}

type pendingRequest struct {
	command string
	done    chan result
	timer   *time.Timer
}

type result struct {
	fields []string
	err    error
}

// NewClient создаёт клиент с транспортом, выбранным по cfg.Network
func NewClient(cfg Config) (*Client, error) {
	transport, err := NewTransport(cfg)
	if err != nil {
		return nil, err
	}
	return NewClientWithTransport(cfg, transport)
}

// NewClientWithTransport создаёт клиент с пользовательским транспортом (для тестов)
func NewClientWithTransport(cfg Config, transport Transport) (*Client, error) {
	cfg = cfg.withDefaults()
	codec, err := NewCodec(cfg.Charset)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:       cfg,
		transport: transport,
		codec:     codec,
		log:       cfg.Logger.With().Str("component", "dtp").Logger(),
		metrics:   cfg.Metrics,
	}, nil
}

// Connect открывает сессию. Если сессия уже открыта, ничего не делает.
func (c *Client) Connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.mu.Lock()
	if c.session != nil {
		c.mu.Unlock()
		return nil
	}
	c.gen++
	gen := c.gen
	c.lost = false
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	session, err := c.transport.Dial(dialCtx, &sessionHandler{c: c, gen: gen})
	if err != nil {
		c.log.Error().Err(err).Msg("connect failed")
		return err
	}

	c.mu.Lock()
	if c.lost || c.gen != gen {
		c.mu.Unlock()
		session.Close()
		return ErrConnectionClosed
	}
	c.session = session
	c.buf = nil
	c.mu.Unlock()

	c.log.Info().Msg("connected")
	return nil
}

// Connected сообщает, открыта ли сессия
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Close закрывает сессию и очищает буфер приёма.
// Ожидающая ответа команда завершается с ErrConnectionClosed.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.mu.Lock()
	session := c.session
	c.session = nil
	c.gen++
	c.buf = nil
	p := c.pending
	c.pending = nil
	c.mu.Unlock()

	if p != nil {
		p.finish(result{err: ErrConnectionClosed})
	}
	if session == nil {
		return nil
	}
	c.log.Info().Msg("closed")
	return session.Close()
}

// Send отправляет кадр и ждёт ответный кадр, таймаут команды или
// закрытие/ошибку соединения — что наступит раньше.
// Вторая команда во время ожидания ответа отклоняется с ErrCommandInFlight.
func (c *Client) Send(ctx context.Context, fields []string) ([]string, error) {
	command := ""
	if len(fields) > 0 {
		command = fields[0]
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	if c.pending != nil {
		c.mu.Unlock()
		c.metrics.observe(command, outcomeInFlight, 0)
		return nil, ErrCommandInFlight
	}
	p := &pendingRequest{command: command, done: make(chan result, 1)}
	p.timer = time.AfterFunc(c.cfg.CommandTimeout, func() {
		if c.resolve(p, result{err: &CommandTimeoutError{Command: command}}) {
			c.log.Warn().Str("cmd", command).Dur("timeout", c.cfg.CommandTimeout).Msg("command timeout")
		}
	})
	// запрос регистрируется до записи, чтобы быстрый ответ не потерялся
	c.pending = p
	session := c.session
	frame := c.codec.Encode(fields)
	c.mu.Unlock()

	started := time.Now()
	c.log.Debug().Str("cmd", command).Str("frame", formatFields(fields)).Msg(">> TX")

	if err := session.Write(frame); err != nil {
		c.resolve(p, result{err: err})
	}

	var r result
	select {
	case r = <-p.done:
	case <-ctx.Done():
		c.resolve(p, result{err: ctx.Err()})
		r = <-p.done
	}

	outcome := outcomeOf(r.err)
	if r.err == nil && parseCode(r.fields) != 0 {
		outcome = outcomeDeviceError
	}
	c.metrics.observe(command, outcome, time.Since(started))
	if r.err != nil {
		return nil, r.err
	}
	c.log.Debug().Str("cmd", command).Str("frame", formatFields(r.fields)).Msg("<< RX")
	return r.fields, nil
}

// resolve завершает запрос, если он всё ещё ожидает ответа.
// Возвращает false, если запрос уже завершён другим событием.
func (c *Client) resolve(p *pendingRequest, r result) bool {
	c.mu.Lock()
	if c.pending != p {
		c.mu.Unlock()
		return false
	}
	c.pending = nil
	c.mu.Unlock()
	p.finish(r)
	return true
}

func (p *pendingRequest) finish(r result) {
	p.timer.Stop()
	p.done <- r
}

func (c *Client) onData(gen uint64, chunk []byte) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.buf = append(c.buf, chunk...)
	fields, rest, ok := c.codec.Extract(c.buf)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.buf = rest
	p := c.pending
	c.pending = nil
	c.mu.Unlock()

	if p == nil {
		// ответ на команду, для которой уже истёк таймаут, или мусор
		c.metrics.strayFrame()
		c.log.Warn().Str("frame", formatFields(fields)).Msg("stray frame dropped")
		return
	}
	p.finish(result{fields: fields})
}

func (c *Client) onError(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	p := c.pending
	c.pending = nil
	c.mu.Unlock()

	if p == nil {
		c.log.Debug().Err(err).Msg("transport error with no command outstanding")
		return
	}
	c.log.Error().Err(err).Str("cmd", p.command).Msg("transport error")
	p.finish(result{err: err})
}

func (c *Client) onClosed(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	session := c.session
	if session == nil {
		c.lost = true
	}
	c.session = nil
	c.buf = nil
	p := c.pending
	c.pending = nil
	c.mu.Unlock()

	if session != nil {
		session.Close()
		c.log.Info().Msg("connection closed by peer")
	}
	if p != nil {
		p.finish(result{err: ErrConnectionClosed})
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrCommandTimeout):
		return outcomeTimeout
	case errors.Is(err, ErrConnectionClosed):
		return outcomeClosed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	default:
		return outcomeError
	}
}

// sessionHandler привязывает события транспорта к поколению сессии
type sessionHandler struct {
	c   *Client
	gen uint64
}

func (h *sessionHandler) OnData(chunk []byte) { h.c.onData(h.gen, chunk) }
func (h *sessionHandler) OnError(err error)   { h.c.onError(h.gen, err) }
func (h *sessionHandler) OnClosed()           { h.c.onClosed(h.gen) }
