package dtp

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// fakeTransport — транспорт в памяти: тест сам подаёт события сессии
type fakeTransport struct {
	mu      sync.Mutex
	dialErr error
	dials   int
	handler Handler
	session *fakeSession
	// onWrite вызывается синхронно внутри Session.Write
	onWrite func(h Handler, p []byte)
}

func (t *fakeTransport) Dial(ctx context.Context, h Handler) (Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.dialErr != nil {
		return nil, t.dialErr
	}
	t.handler = h
	t.session = &fakeSession{t: t, h: h, writes: make(chan []byte, 16)}
	return t.session, nil
}

func (t *fakeTransport) current() (Handler, *fakeSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handler, t.session
}

type fakeSession struct {
	t        *fakeTransport
	h        Handler
	writes   chan []byte
	writeErr error

	mu     sync.Mutex
	closed bool
}

func (s *fakeSession) Write(p []byte) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.t.mu.Lock()
	onWrite := s.t.onWrite
	s.t.mu.Unlock()
	if onWrite != nil {
		onWrite(s.h, p)
	}
	s.writes <- p
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type sendResult struct {
	fields []string
	err    error
}

func newTestClient(t *testing.T, cfg Config) (*Client, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	c, err := NewClientWithTransport(cfg, tr)
	if err != nil {
		t.Fatalf("NewClientWithTransport: %v", err)
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, tr
}

func sendAsync(ctx context.Context, c *Client, fields ...string) <-chan sendResult {
	ch := make(chan sendResult, 1)
	go func() {
		r, err := c.Send(ctx, fields)
		ch <- sendResult{r, err}
	}()
	return ch
}

func waitWrite(t *testing.T, s *fakeSession) []byte {
	t.Helper()
	select {
	case p := <-s.writes:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("frame was not written")
		return nil
	}
}

func waitResult(t *testing.T, ch <-chan sendResult) sendResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("Send did not return")
		return sendResult{}
	}
}

func TestClientSend(t *testing.T) {
	c, tr := newTestClient(t, Config{CommandTimeout: 2 * time.Second})

	t.Run("Request frame", func(t *testing.T) {
		ch := sendAsync(context.Background(), c, "C0")
		h, s := tr.current()
		if got := string(waitWrite(t, s)); got != "\x02C0\x03" {
			t.Errorf("written frame: got %q", got)
		}
		h.OnData([]byte("\x020\x1C0\x1C0\x1C0\x1C0\x1C65535\x1C\x03"))
		r := waitResult(t, ch)
		if r.err != nil {
			t.Fatalf("Send: %v", r.err)
		}
		if len(r.fields) != 7 || r.fields[0] != "0" || r.fields[5] != "65535" {
			t.Errorf("fields: got %q", r.fields)
		}
	})

	t.Run("Response split into chunks", func(t *testing.T) {
		ch := sendAsync(context.Background(), c, "F0")
		h, s := tr.current()
		waitWrite(t, s)
		h.OnData([]byte("\x020\x1C4"))
		h.OnData([]byte("2\x1C\x03"))
		r := waitResult(t, ch)
		if r.err != nil {
			t.Fatalf("Send: %v", r.err)
		}
		if len(r.fields) != 3 || r.fields[1] != "42" {
			t.Errorf("fields: got %q", r.fields)
		}
	})

	t.Run("Immediate response during write", func(t *testing.T) {
		tr.mu.Lock()
		tr.onWrite = func(h Handler, p []byte) { h.OnData([]byte("\x020\x1C\x03")) }
		tr.mu.Unlock()
		defer func() {
			tr.mu.Lock()
			tr.onWrite = nil
			tr.mu.Unlock()
		}()

		r, err := c.Send(context.Background(), []string{"F2", "1", "0"})
		if err != nil {
			t.Fatalf("Send: %v", err)
		}
		if r[0] != "0" {
			t.Errorf("fields: got %q", r)
		}
	})
}

func TestClientInFlight(t *testing.T) {
	c, tr := newTestClient(t, Config{CommandTimeout: 2 * time.Second})

	first := sendAsync(context.Background(), c, "F1")
	h, s := tr.current()
	waitWrite(t, s)

	_, err := c.Send(context.Background(), []string{"F2"})
	if !errors.Is(err, ErrCommandInFlight) {
		t.Fatalf("expected ErrCommandInFlight, got %v", err)
	}
	select {
	case p := <-s.writes:
		t.Fatalf("second command must not be written, got %q", p)
	default:
	}

	h.OnData([]byte("\x020\x1C1\x1C30000\x1C1\x1C\x03"))
	r := waitResult(t, first)
	if r.err != nil {
		t.Fatalf("first Send: %v", r.err)
	}
	if r.fields[2] != "30000" {
		t.Errorf("first command got wrong response: %q", r.fields)
	}
}

func TestClientTimeout(t *testing.T) {
	c, tr := newTestClient(t, Config{CommandTimeout: 50 * time.Millisecond})

	ch := sendAsync(context.Background(), c, "F5")
	h, s := tr.current()
	waitWrite(t, s)

	r := waitResult(t, ch)
	if !errors.Is(r.err, ErrCommandTimeout) {
		t.Fatalf("expected ErrCommandTimeout, got %v", r.err)
	}
	var te *CommandTimeoutError
	if !errors.As(r.err, &te) || te.Command != "F5" {
		t.Errorf("expected CommandTimeoutError for F5, got %v", r.err)
	}
	if !c.Connected() {
		t.Error("timeout must not close the session")
	}

	// поздний ответ на F5 отбрасывается
	h.OnData([]byte("\x020\x1C7\x1C100\x1C\x03"))

	ch = sendAsync(context.Background(), c, "C0")
	waitWrite(t, s)
	h.OnData([]byte("\x020\x1C0\x1C0\x1C\x03"))
	r = waitResult(t, ch)
	if r.err != nil {
		t.Fatalf("Send after timeout: %v", r.err)
	}
	if len(r.fields) != 4 {
		t.Errorf("got stale response: %q", r.fields)
	}
}

func TestClientConnectionClosed(t *testing.T) {
	c, tr := newTestClient(t, Config{CommandTimeout: 2 * time.Second})

	ch := sendAsync(context.Background(), c, "F0")
	h, s := tr.current()
	waitWrite(t, s)
	h.OnClosed()

	r := waitResult(t, ch)
	if !errors.Is(r.err, ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", r.err)
	}
	if c.Connected() {
		t.Error("client must forget a session closed by peer")
	}
	if !s.isClosed() {
		t.Error("session must be closed")
	}
	if _, err := c.Send(context.Background(), []string{"C0"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if tr.dials != 2 {
		t.Errorf("expected second dial, got %d", tr.dials)
	}
}

func TestClientTransportError(t *testing.T) {
	c, tr := newTestClient(t, Config{CommandTimeout: 2 * time.Second})

	ch := sendAsync(context.Background(), c, "F4")
	h, s := tr.current()
	waitWrite(t, s)
	h.OnError(io.ErrUnexpectedEOF)

	r := waitResult(t, ch)
	if !errors.Is(r.err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected transport error, got %v", r.err)
	}

	// ошибка без ожидающей команды ни на что не влияет
	h.OnError(io.ErrUnexpectedEOF)

	ch = sendAsync(context.Background(), c, "C0")
	waitWrite(t, s)
	h.OnData([]byte("\x020\x03"))
	if r := waitResult(t, ch); r.err != nil {
		t.Fatalf("Send after error: %v", r.err)
	}
}

func TestClientStrayFrame(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	c, tr := newTestClient(t, Config{CommandTimeout: 2 * time.Second, Metrics: m})

	h, s := tr.current()
	h.OnData([]byte("\x02999\x03"))

	ch := sendAsync(context.Background(), c, "C0")
	waitWrite(t, s)
	h.OnData([]byte("\x020\x1C0\x1C2\x03"))
	r := waitResult(t, ch)
	if r.err != nil {
		t.Fatal(r.err)
	}
	if r.fields[0] != "0" {
		t.Errorf("stray frame delivered to command: %q", r.fields)
	}

	if got := gatherCounter(t, reg, "dtp_stray_frames_total", nil); got != 1 {
		t.Errorf("stray frames: got %v, expected 1", got)
	}
	if got := gatherCounter(t, reg, "dtp_commands_total", map[string]string{"command": "C0", "outcome": "ok"}); got != 1 {
		t.Errorf("C0 ok: got %v, expected 1", got)
	}
}

func TestClientNotConnected(t *testing.T) {
	c, err := NewClientWithTransport(Config{}, &fakeTransport{})
	if err != nil {
		t.Fatal(err)
	}
	if c.Connected() {
		t.Error("new client must not be connected")
	}
	if _, err := c.Send(context.Background(), []string{"C0"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close without session: %v", err)
	}
}

func TestClientClose(t *testing.T) {
	c, tr := newTestClient(t, Config{CommandTimeout: 2 * time.Second})

	ch := sendAsync(context.Background(), c, "F5")
	h, s := tr.current()
	waitWrite(t, s)

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	r := waitResult(t, ch)
	if !errors.Is(r.err, ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed, got %v", r.err)
	}
	if !s.isClosed() {
		t.Error("session must be closed")
	}

	// события закрытой сессии игнорируются после переподключения
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	h2, s2 := tr.current()
	ch = sendAsync(context.Background(), c, "C0")
	waitWrite(t, s2)
	h.OnData([]byte("\x027\x03"))
	h.OnClosed()
	h2.OnData([]byte("\x020\x03"))
	r = waitResult(t, ch)
	if r.err != nil {
		t.Fatal(r.err)
	}
	if r.fields[0] != "0" {
		t.Errorf("response from old session leaked: %q", r.fields)
	}
	if !c.Connected() {
		t.Error("close of old session must not affect new one")
	}
}

func TestClientContextCanceled(t *testing.T) {
	c, tr := newTestClient(t, Config{CommandTimeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	ch := sendAsync(ctx, c, "R3")
	h, s := tr.current()
	waitWrite(t, s)
	cancel()

	r := waitResult(t, ch)
	if !errors.Is(r.err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", r.err)
	}

	h.OnData([]byte("\x020\x03"))
	ch = sendAsync(context.Background(), c, "C0")
	waitWrite(t, s)
	h.OnData([]byte("\x020\x1C1\x03"))
	if r := waitResult(t, ch); r.err != nil || len(r.fields) != 2 {
		t.Errorf("Send after cancel: %q, %v", r.fields, r.err)
	}
}

func TestClientWriteError(t *testing.T) {
	c, tr := newTestClient(t, Config{CommandTimeout: 2 * time.Second})
	_, s := tr.current()
	s.writeErr = io.ErrClosedPipe

	if _, err := c.Send(context.Background(), []string{"C0"}); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected write error, got %v", err)
	}
	s.writeErr = nil

	ch := sendAsync(context.Background(), c, "C0")
	h, _ := tr.current()
	waitWrite(t, s)
	h.OnData([]byte("\x020\x03"))
	if r := waitResult(t, ch); r.err != nil {
		t.Errorf("request must be cleared after write error: %v", r.err)
	}
}

func TestClientConnect(t *testing.T) {
	t.Run("Dial error", func(t *testing.T) {
		dialErr := &ConnectError{Addr: "10.0.0.1:3010", Err: errors.New("connection refused")}
		c, err := NewClientWithTransport(Config{}, &fakeTransport{dialErr: dialErr})
		if err != nil {
			t.Fatal(err)
		}
		err = c.Connect(context.Background())
		var ce *ConnectError
		if !errors.As(err, &ce) || ce.Addr != "10.0.0.1:3010" {
			t.Errorf("expected ConnectError, got %v", err)
		}
		if c.Connected() {
			t.Error("client must not be connected")
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		tr := &fakeTransport{}
		c, _ := NewClientWithTransport(Config{}, tr)
		defer c.Close()
		for i := 0; i < 3; i++ {
			if err := c.Connect(context.Background()); err != nil {
				t.Fatal(err)
			}
		}
		if tr.dials != 1 {
			t.Errorf("expected one dial, got %d", tr.dials)
		}
	})

	t.Run("Unknown charset", func(t *testing.T) {
		if _, err := NewClientWithTransport(Config{Charset: "bogus"}, &fakeTransport{}); !errors.Is(err, ErrUnknownCharset) {
			t.Errorf("expected ErrUnknownCharset, got %v", err)
		}
	})

	t.Run("Unknown network", func(t *testing.T) {
		if _, err := NewClient(Config{Network: "udp"}); !errors.Is(err, ErrUnknownNetwork) {
			t.Errorf("expected ErrUnknownNetwork, got %v", err)
		}
	})
}

// gatherCounter возвращает значение счётчика с заданными метками
func gatherCounter(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
