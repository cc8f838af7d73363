package frame

import (
	"fmt"
)

// Decoder is a progressive frame decoder. It never reads from a transport
// itself: callers ask BytesNeeded, read exactly that many bytes and hand the
// chunk to Feed. Every chunk is validated as it arrives, so line noise is
// rejected before the rest of the frame is waited for.
//
// A Decoder is single-use. After Done reports true the frame is collected
// with Frame; after any Feed error the decoder stays in a terminal error
// state and the caller starts over with a fresh request.
type Decoder struct {
	state    state
	allowed  Kind
	expected int // expected A-field, -1 when any

	length  int // L field of a long frame
	c, a, ci byte
	payload []byte

	frame Frame
	err   error
}

type state uint8

const (
	stateFirst state = iota
	stateShortRest
	stateLengthPair
	stateStart2
	stateHeader
	statePayload
	stateChecksum
	stateStop
	stateDone
	stateError
)

// Option configures a Decoder.
type Option func(*Decoder)

// ExpectAddress makes the decoder reject frames whose A-field differs from
// addr.
func ExpectAddress(addr byte) Option {
	return func(d *Decoder) { d.expected = int(addr) }
}

// Allow restricts the set of frame kinds the decoder accepts. The start byte
// is checked against this set before anything else is read.
func Allow(kinds ...Kind) Option {
	return func(d *Decoder) {
		d.allowed = 0
		for _, k := range kinds {
			d.allowed |= k
		}
	}
}

// NewDecoder returns a decoder that accepts every frame kind from any
// address unless restricted by options.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		allowed:  KindAck | KindShort | KindLong,
		expected: -1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// BytesNeeded returns how many bytes the decoder wants next. Zero means the
// machine is in a terminal state.
func (d *Decoder) BytesNeeded() int {
	switch d.state {
	case stateFirst:
		return 1
	case stateShortRest:
		return 4
	case stateLengthPair:
		return 2
	case stateStart2:
		return 1
	case stateHeader:
		return 3
	case statePayload:
		return d.length - MinLength
	case stateChecksum, stateStop:
		return 1
	default:
		return 0
	}
}

// Done reports whether a complete frame has been decoded.
func (d *Decoder) Done() bool { return d.state == stateDone }

// Err returns the validation error that moved the decoder into its terminal
// error state, if any.
func (d *Decoder) Err() error { return d.err }

// Frame returns the decoded frame. Only valid once Done reports true.
func (d *Decoder) Frame() (Frame, error) {
	if d.state != stateDone {
		if d.err != nil {
			return Frame{}, d.err
		}
		return Frame{}, fmt.Errorf("frame not complete, %d bytes still needed", d.BytesNeeded())
	}
	return d.frame, nil
}

// Feed hands the decoder exactly BytesNeeded bytes. Validation happens
// inline; any failure is terminal for this decoder instance.
func (d *Decoder) Feed(chunk []byte) error {
	if d.state == stateDone || d.state == stateError {
		return d.fail(fmt.Errorf("feed on terminal decoder state"))
	}
	if len(chunk) != d.BytesNeeded() {
		return d.fail(fmt.Errorf("feed of %d bytes, decoder needs %d", len(chunk), d.BytesNeeded()))
	}

	switch d.state {
	case stateFirst:
		return d.feedFirst(chunk[0])
	case stateShortRest:
		return d.feedShortRest(chunk)
	case stateLengthPair:
		if chunk[0] != chunk[1] {
			return d.fail(fmt.Errorf("%w: duplicated L fields differ (0x%02X vs 0x%02X)", ErrLengthMismatch, chunk[0], chunk[1]))
		}
		if int(chunk[0]) < MinLength {
			return d.fail(fmt.Errorf("%w: L=%d below minimum %d", ErrLengthMismatch, chunk[0], MinLength))
		}
		d.length = int(chunk[0])
		d.state = stateStart2
		return nil
	case stateStart2:
		if chunk[0] != StartLong {
			return d.fail(fmt.Errorf("%w: second start byte 0x%02X", ErrInvalidStartByte, chunk[0]))
		}
		d.state = stateHeader
		return nil
	case stateHeader:
		d.c, d.a, d.ci = chunk[0], chunk[1], chunk[2]
		if d.expected >= 0 && int(d.a) != d.expected {
			return d.fail(fmt.Errorf("%w: frame from %d, expected %d", ErrAddressMismatch, d.a, d.expected))
		}
		if d.length == MinLength {
			d.state = stateChecksum
		} else {
			d.state = statePayload
		}
		return nil
	case statePayload:
		d.payload = append([]byte(nil), chunk...)
		d.state = stateChecksum
		return nil
	case stateChecksum:
		cs := d.c + d.a + d.ci + Checksum(d.payload)
		if chunk[0] != cs {
			return d.fail(fmt.Errorf("%w: computed 0x%02X, frame carries 0x%02X", ErrChecksumMismatch, cs, chunk[0]))
		}
		d.state = stateStop
		return nil
	case stateStop:
		if chunk[0] != Stop {
			return d.fail(fmt.Errorf("%w: got 0x%02X", ErrStopByteMissing, chunk[0]))
		}
		d.frame = Frame{Kind: KindLong, C: d.c, A: d.a, CI: d.ci, Payload: d.payload}
		d.state = stateDone
		return nil
	}
	return d.fail(fmt.Errorf("decoder in unknown state %d", d.state))
}

func (d *Decoder) feedFirst(b byte) error {
	switch b {
	case AckByte:
		if d.allowed&KindAck == 0 {
			return d.fail(fmt.Errorf("%w: ack not allowed here", ErrUnexpectedFrameKind))
		}
		d.frame = Frame{Kind: KindAck}
		d.state = stateDone
		return nil
	case StartShort:
		if d.allowed&KindShort == 0 {
			return d.fail(fmt.Errorf("%w: short frame not allowed here", ErrUnexpectedFrameKind))
		}
		d.state = stateShortRest
		return nil
	case StartLong:
		if d.allowed&KindLong == 0 {
			return d.fail(fmt.Errorf("%w: long frame not allowed here", ErrUnexpectedFrameKind))
		}
		d.state = stateLengthPair
		return nil
	default:
		return d.fail(fmt.Errorf("%w: 0x%02X", ErrInvalidStartByte, b))
	}
}

func (d *Decoder) feedShortRest(chunk []byte) error {
	buf := []byte{StartShort, chunk[0], chunk[1], chunk[2], chunk[3]}
	if err := ValidateShort(buf); err != nil {
		return d.fail(err)
	}
	if d.expected >= 0 && int(chunk[1]) != d.expected {
		return d.fail(fmt.Errorf("%w: frame from %d, expected %d", ErrAddressMismatch, chunk[1], d.expected))
	}
	d.frame = Frame{Kind: KindShort, C: chunk[0], A: chunk[1]}
	d.state = stateDone
	return nil
}

func (d *Decoder) fail(err error) error {
	d.state = stateError
	d.err = err
	return err
}

// Decode runs the progressive decoder over a complete in-memory buffer. It
// is a convenience for tests and offline analysis; live traffic goes through
// BytesNeeded/Feed.
func Decode(buf []byte, opts ...Option) (Frame, error) {
	d := NewDecoder(opts...)
	off := 0
	for !d.Done() {
		n := d.BytesNeeded()
		if off+n > len(buf) {
			return Frame{}, fmt.Errorf("buffer exhausted: need %d more bytes at offset %d", n, off)
		}
		if err := d.Feed(buf[off : off+n]); err != nil {
			return Frame{}, err
		}
		off += n
	}
	if off != len(buf) {
		return Frame{}, fmt.Errorf("%w: %d trailing bytes after frame", ErrLengthMismatch, len(buf)-off)
	}
	return d.Frame()
}
