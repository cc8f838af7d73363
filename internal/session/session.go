// Package session drives request/response cycles on the half-duplex M-Bus:
// it encodes requests, feeds the progressive frame decoder from the
// transport, applies the FCB/FCV datagram sequencing of EN 13757-2 and
// retries on timeouts and line noise.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/d21d3q/gombus/internal/frame"
	"github.com/d21d3q/gombus/internal/records"
	"github.com/d21d3q/gombus/internal/transport"
)

// Config holds the retry policy for one session.
type Config struct {
	// MaxRetries is the number of attempts per datagram exchange.
	MaxRetries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	// BaseTimeout is the protocol-level wait added on top of the transport's
	// transmission-time estimate for every read.
	BaseTimeout time.Duration
}

// DefaultConfig returns the stock retry policy.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		BaseTimeout: 500 * time.Millisecond,
	}
}

func (c *Config) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 100 * time.Millisecond
	}
	if c.BaseTimeout == 0 {
		c.BaseTimeout = 500 * time.Millisecond
	}
}

// TimeoutError is returned once every attempt of an exchange ran into an
// empty read. It records the decoder state at the time of the last attempt.
type TimeoutError struct {
	Attempts    int
	BytesNeeded int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no response after %d attempts (decoder waiting for %d bytes)", e.Attempts, e.BytesNeeded)
}

// Session serialises operations on one bus. Concurrent callers queue on the
// bus lock; the slave cannot tell interleaved requests apart.
type Session struct {
	tr  transport.Transport
	cfg Config
	log logrus.FieldLogger

	mu sync.Mutex

	// fcb holds the next frame count bit per primary address. Cleared by
	// Reset; an address not in the map starts at FCB=1.
	fcb map[byte]bool
}

// New builds a session over the given transport. A nil logger silences the
// session.
func New(tr transport.Transport, cfg Config, log logrus.FieldLogger) *Session {
	cfg.applyDefaults()
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Session{tr: tr, cfg: cfg, log: log, fcb: make(map[byte]bool)}
}

// Reset sends SND_NKE and waits for the acknowledge. The FCB state for the
// address is cleared: the next request uses FCB=1 per EN 13757-2 §5.5.
func (s *Session) Reset(ctx context.Context, addr int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset(ctx, addr)
}

func (s *Session) reset(ctx context.Context, addr int) error {
	req, err := frame.EncodeSndNke(addr)
	if err != nil {
		return err
	}
	_, err = s.exchange(ctx, req,
		frame.Allow(frame.KindAck))
	if err != nil {
		return err
	}
	delete(s.fcb, byte(addr))
	s.log.WithField("address", addr).Debug("link reset acknowledged")
	return nil
}

// ReadRecords retrieves all records from a slave, walking a multi-datagram
// sequence transparently. Identification fields from the first datagram are
// carried into the aggregate; records are concatenated in request order.
func (s *Session) ReadRecords(ctx context.Context, addr int) (*records.UserData, error) {
	if err := frame.CheckUnicastAddress(addr); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reset(ctx, addr); err != nil {
		return nil, fmt.Errorf("reset before readout: %w", err)
	}

	fcb := true
	var aggregate *records.UserData
	for {
		req, err := frame.EncodeReqUD2(addr, fcb)
		if err != nil {
			return nil, err
		}
		f, err := s.exchange(ctx, req,
			frame.Allow(frame.KindLong, frame.KindAck),
			frame.ExpectAddress(byte(addr)))
		if err != nil {
			s.fcb[byte(addr)] = fcb
			return nil, err
		}
		if f.Kind == frame.KindAck {
			// An ack on REQ_UD2 means the slave has nothing to report.
			if aggregate == nil {
				aggregate = &records.UserData{Address: byte(addr)}
			}
			aggregate.MoreRecordsFollow = false
			break
		}
		ud, err := records.ParseUserData(f)
		if err != nil {
			s.fcb[byte(addr)] = fcb
			return nil, err
		}
		// Datagram delivered: the next request for this address toggles.
		fcb = !fcb
		s.fcb[byte(addr)] = fcb

		if aggregate == nil {
			aggregate = ud
		} else {
			aggregate.Records = append(aggregate.Records, ud.Records...)
			aggregate.MoreRecordsFollow = ud.MoreRecordsFollow
			aggregate.Status = ud.Status
			if len(ud.ManufacturerData) > 0 {
				aggregate.ManufacturerData = append(aggregate.ManufacturerData, ud.ManufacturerData...)
			}
			if ud.Identification != nil {
				aggregate.Identification = ud.Identification
			}
		}
		s.log.WithFields(logrus.Fields{
			"address": addr,
			"records": len(ud.Records),
			"more":    ud.MoreRecordsFollow,
		}).Debug("datagram received")

		if !ud.MoreRecordsFollow {
			break
		}
	}
	return aggregate, nil
}

// exchange performs one request/response cycle with retries. A retry resends
// the same bytes: from the slave's point of view the previous datagram was
// never delivered, so the FCB must not change.
func (s *Session) exchange(ctx context.Context, req []byte, opts ...frame.Option) (frame.Frame, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			s.drain()
			return frame.Frame{}, err
		}
		if err := s.tr.Write(ctx, req); err != nil {
			return frame.Frame{}, err
		}

		dec := frame.NewDecoder(opts...)
		f, err := s.readFrame(ctx, dec)
		if err == nil {
			return f, nil
		}
		var connErr *transport.ConnectionError
		if errors.As(err, &connErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				s.drain()
			}
			return frame.Frame{}, err
		}
		lastErr = err
		s.log.WithError(err).WithField("attempt", attempt).Warn("exchange failed")
		if attempt < s.cfg.MaxRetries {
			select {
			case <-time.After(s.cfg.RetryDelay):
			case <-ctx.Done():
				s.drain()
				return frame.Frame{}, ctx.Err()
			}
		}
	}
	var tErr *TimeoutError
	if errors.As(lastErr, &tErr) {
		tErr.Attempts = s.cfg.MaxRetries
	}
	return frame.Frame{}, lastErr
}

func (s *Session) readFrame(ctx context.Context, dec *frame.Decoder) (frame.Frame, error) {
	for !dec.Done() {
		n := dec.BytesNeeded()
		data, err := s.tr.Read(ctx, n, s.cfg.BaseTimeout)
		if err != nil {
			return frame.Frame{}, err
		}
		if len(data) == 0 {
			return frame.Frame{}, &TimeoutError{Attempts: 1, BytesNeeded: n}
		}
		if err := dec.Feed(data); err != nil {
			return frame.Frame{}, err
		}
	}
	return dec.Frame()
}

// drain clears pending input after a cancelled operation so orphaned bytes
// are not mistaken for the next response's header.
func (s *Session) drain() {
	if d, ok := s.tr.(transport.Drainer); ok {
		drainCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		if err := d.Drain(drainCtx); err != nil {
			s.log.WithError(err).Debug("input drain failed")
		}
	}
}
