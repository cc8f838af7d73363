package transport

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/grid-x/serial"
)

// SerialConfig carries the port settings. The zero value is completed to the
// M-Bus defaults from EN 13757-2: 2400 baud, 8 data bits, even parity, one
// stop bit.
type SerialConfig struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   string // "N", "E", "O"
	StopBits int

	// Multiplier pads the transmission-time estimate; 1.2 by default.
	Multiplier float64
}

func (c *SerialConfig) applyDefaults() {
	if c.BaudRate == 0 {
		c.BaudRate = 2400
	}
	if c.DataBits == 0 {
		c.DataBits = 8
	}
	if c.Parity == "" {
		c.Parity = "E"
	}
	if c.StopBits == 0 {
		c.StopBits = 1
	}
	if c.Multiplier == 0 {
		c.Multiplier = DefaultMultiplier
	}
}

// pollInterval bounds how long a single port read may block so the deadline
// and the context stay responsive.
const pollInterval = 50 * time.Millisecond

// Serial is a Transport over a local serial port.
type Serial struct {
	cfg SerialConfig

	mu   sync.Mutex
	port io.ReadWriteCloser
}

// OpenSerial opens the port and returns the transport.
func OpenSerial(cfg SerialConfig) (*Serial, error) {
	cfg.applyDefaults()
	port, err := serial.Open(&serial.Config{
		Address:  cfg.Device,
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   cfg.Parity,
		StopBits: cfg.StopBits,
		Timeout:  pollInterval,
	})
	if err != nil {
		return nil, &ConnectionError{Op: "open", Err: err}
	}
	return &Serial{cfg: cfg, port: port}, nil
}

func (s *Serial) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func (s *Serial) Write(ctx context.Context, p []byte) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return &ConnectionError{Op: "write", Err: io.ErrClosedPipe}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := port.Write(p); err != nil {
		s.Close()
		return &ConnectionError{Op: "write", Err: err}
	}
	return nil
}

// Read collects exactly n bytes or returns an empty slice once the deadline
// passes. The deadline is the extra protocol wait plus the transmission-time
// estimate for n bytes at the configured baud rate.
func (s *Serial) Read(ctx context.Context, n int, extra time.Duration) ([]byte, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return nil, &ConnectionError{Op: "read", Err: io.ErrClosedPipe}
	}

	bits := bitsPerByte(s.cfg.DataBits, s.cfg.Parity, s.cfg.StopBits)
	deadline := time.Now().Add(extra + transmissionTime(n, s.cfg.BaudRate, bits, s.cfg.Multiplier))

	buf := make([]byte, 0, n)
	chunk := make([]byte, n)
	for len(buf) < n {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
		// The port read returns after pollInterval at the latest; a timeout
		// from the serial layer just means no bytes yet.
		read, err := port.Read(chunk[:n-len(buf)])
		if read > 0 {
			buf = append(buf, chunk[:read]...)
			continue
		}
		if err != nil && err != io.EOF && !isSerialTimeout(err) {
			s.Close()
			return nil, &ConnectionError{Op: "read", Err: err}
		}
	}
	return buf, nil
}

// Drain discards whatever is pending in the receive buffer.
func (s *Serial) Drain(ctx context.Context) error {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return nil
	}
	chunk := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		read, err := port.Read(chunk)
		if read == 0 {
			if err != nil && err != io.EOF && !isSerialTimeout(err) {
				s.Close()
				return &ConnectionError{Op: "drain", Err: err}
			}
			return nil
		}
	}
}

func isSerialTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	if t, ok := err.(timeouter); ok {
		return t.Timeout()
	}
	return err == serial.ErrTimeout
}
