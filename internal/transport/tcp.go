package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// TCPConfig carries the settings for a socket transport towards a serial
// gateway. The gateway still clocks the bus at its serial rate, so the
// transmission-time estimate uses the nominal baud rate.
type TCPConfig struct {
	Address string

	BaudRate    int // nominal rate of the bus behind the gateway, 2400 default
	Multiplier  float64
	DialTimeout time.Duration
}

func (c *TCPConfig) applyDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = 2400
	}
	if c.Multiplier == 0 {
		c.Multiplier = DefaultMultiplier
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
}

// TCP is a Transport over a stream socket.
type TCP struct {
	cfg TCPConfig

	mu   sync.Mutex
	conn net.Conn
}

// DialTCP connects to the gateway.
func DialTCP(cfg TCPConfig) (*TCP, error) {
	cfg.applyDefaults()
	conn, err := net.DialTimeout("tcp", cfg.Address, cfg.DialTimeout)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", Err: err}
	}
	return &TCP{cfg: cfg, conn: conn}, nil
}

// NewTCP wraps an existing connection; used by tests over net.Pipe.
func NewTCP(conn net.Conn, cfg TCPConfig) *TCP {
	cfg.applyDefaults()
	return &TCP{cfg: cfg, conn: conn}
}

func (t *TCP) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil
}

func (t *TCP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

func (t *TCP) Write(ctx context.Context, p []byte) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return &ConnectionError{Op: "write", Err: io.ErrClosedPipe}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		defer conn.SetWriteDeadline(time.Time{})
	}
	if _, err := conn.Write(p); err != nil {
		t.Close()
		return &ConnectionError{Op: "write", Err: err}
	}
	return nil
}

func (t *TCP) Read(ctx context.Context, n int, extra time.Duration) ([]byte, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil, &ConnectionError{Op: "read", Err: io.ErrClosedPipe}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wait := extra + transmissionTime(n, t.cfg.BaudRate, 11, t.cfg.Multiplier)
	conn.SetReadDeadline(time.Now().Add(wait))
	defer conn.SetReadDeadline(time.Time{})

	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		if isNetTimeout(err) {
			return nil, nil
		}
		t.Close()
		return nil, &ConnectionError{Op: "read", Err: err}
	}
	return buf, nil
}

// Drain discards buffered input without waiting for more.
func (t *TCP) Drain(ctx context.Context) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	chunk := make([]byte, 256)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
		read, err := conn.Read(chunk)
		if read > 0 {
			continue
		}
		conn.SetReadDeadline(time.Time{})
		if err != nil && !isNetTimeout(err) {
			t.Close()
			return &ConnectionError{Op: "drain", Err: err}
		}
		return nil
	}
}

func isNetTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
