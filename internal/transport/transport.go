// Package transport provides the byte transports the M-Bus session drives:
// a serial port in the 8E1 framing EN 13757-2 prescribes, or a TCP socket
// towards a serial gateway.
package transport

import (
	"context"
	"fmt"
	"time"
)

// Transport is the contract the session requires. Read returns exactly n
// bytes, or an empty slice when the timeout expires; it errors only on
// disconnect. The extra duration is protocol-level wait on top of the
// transmission-time estimate the transport computes itself.
type Transport interface {
	Write(ctx context.Context, p []byte) error
	Read(ctx context.Context, n int, extra time.Duration) ([]byte, error)
	Connected() bool
	Close() error
}

// Drainer is implemented by transports that can discard pending input. The
// session drains after a cancelled operation so orphaned bytes are not
// mistaken for the next response.
type Drainer interface {
	Drain(ctx context.Context) error
}

// ConnectionError reports a lost or unusable connection. The session never
// retries it.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// DefaultMultiplier pads the theoretical transmission time for slow devices.
const DefaultMultiplier = 1.2

// transmissionTime estimates how long n bytes take on the wire. bitsPerByte
// covers start, data, parity and stop bits; 11 for the M-Bus 8E1 framing.
func transmissionTime(n int, baudRate int, bitsPerByte float64, multiplier float64) time.Duration {
	if baudRate <= 0 {
		return 0
	}
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	seconds := float64(n) * bitsPerByte / float64(baudRate) * multiplier
	return time.Duration(seconds * float64(time.Second))
}

func bitsPerByte(dataBits int, parity string, stopBits int) float64 {
	bits := 1.0 + float64(dataBits) + float64(stopBits)
	if parity != "" && parity != "N" {
		bits++
	}
	return bits
}
