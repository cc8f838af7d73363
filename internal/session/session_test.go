package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/d21d3q/gombus/internal/frame"
	"github.com/d21d3q/gombus/internal/testutil"
	"github.com/d21d3q/gombus/internal/transport"
)

// fakeTransport replays scripted responses. Each Write appends to Writes and
// arms the next response; reads serve bytes from the armed response and
// return empty slices once it is exhausted.
type fakeTransport struct {
	t *testing.T

	Writes    [][]byte
	responses [][]byte
	current   []byte

	writeErr error
	readErr  error
	drained  int
}

func newFakeTransport(t *testing.T, responses ...[]byte) *fakeTransport {
	return &fakeTransport{t: t, responses: responses}
}

func (f *fakeTransport) Write(_ context.Context, p []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.Writes = append(f.Writes, append([]byte(nil), p...))
	if len(f.responses) > 0 {
		f.current = f.responses[0]
		f.responses = f.responses[1:]
	} else {
		f.current = nil
	}
	return nil
}

func (f *fakeTransport) Read(_ context.Context, n int, _ time.Duration) ([]byte, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.current) < n {
		return nil, nil // timeout
	}
	chunk := f.current[:n]
	f.current = f.current[n:]
	return chunk, nil
}

func (f *fakeTransport) Connected() bool { return true }
func (f *fakeTransport) Close() error    { return nil }
func (f *fakeTransport) Drain(context.Context) error {
	f.drained++
	f.current = nil
	return nil
}

func quickConfig() Config {
	return Config{MaxRetries: 3, RetryDelay: time.Millisecond, BaseTimeout: time.Millisecond}
}

func mustUserDataFrame(t *testing.T, addr byte, payloadHex string) []byte {
	t.Helper()
	buf, err := frame.EncodeLong(0x08, addr, 0x72, testutil.MustHex(t, payloadHex))
	require.NoError(t, err)
	return buf
}

// Identification header for address tests: serial 12345678, BMT, water.
const testHeader = "78 56 34 12 B4 09 01 07 2A 00 00 00"

func TestResetAck(t *testing.T) {
	tr := newFakeTransport(t, []byte{0xE5})
	s := New(tr, quickConfig(), nil)

	require.NoError(t, s.Reset(context.Background(), 5))
	require.Len(t, tr.Writes, 1)
	require.Equal(t, []byte{0x10, 0x40, 0x05, 0x45, 0x16}, tr.Writes[0])
}

func TestResetIsIdempotent(t *testing.T) {
	tr := newFakeTransport(t, []byte{0xE5}, []byte{0xE5})
	s := New(tr, quickConfig(), nil)

	require.NoError(t, s.Reset(context.Background(), 5))
	require.NoError(t, s.Reset(context.Background(), 5))
	require.Len(t, tr.Writes, 2)
	require.Equal(t, tr.Writes[0], tr.Writes[1])
}

func TestResetInvalidAddress(t *testing.T) {
	tr := newFakeTransport(t)
	s := New(tr, quickConfig(), nil)

	err := s.Reset(context.Background(), 255)
	require.ErrorIs(t, err, frame.ErrReservedAddress)
	require.Empty(t, tr.Writes, "caller errors must not reach the wire")
}

func TestReadRecordsSingleDatagram(t *testing.T) {
	response := mustUserDataFrame(t, 1, testHeader+" 04 03 D2 04 00 00")
	tr := newFakeTransport(t, []byte{0xE5}, response)
	s := New(tr, quickConfig(), nil)

	ud, err := s.ReadRecords(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ud.Records, 1)
	require.False(t, ud.MoreRecordsFollow)

	require.Len(t, tr.Writes, 2)
	// Reset first, then REQ_UD2 with FCV=1 FCB=1.
	require.Equal(t, []byte{0x10, 0x40, 0x01, 0x41, 0x16}, tr.Writes[0])
	require.Equal(t, []byte{0x10, 0x7B, 0x01, 0x7C, 0x16}, tr.Writes[1])

	v, ok := ud.Records[0].Scaled()
	require.True(t, ok)
	require.InDelta(t, 1234.0, v, 1e-9)
	require.Equal(t, "Wh", ud.Records[0].Unit())
}

func TestReadRecordsMultiDatagramTogglesFCB(t *testing.T) {
	first := mustUserDataFrame(t, 1, testHeader+" 04 03 D2 04 00 00 1F")
	second := mustUserDataFrame(t, 1, testHeader+" 02 5A 1A 01")
	tr := newFakeTransport(t, []byte{0xE5}, first, second)
	s := New(tr, quickConfig(), nil)

	ud, err := s.ReadRecords(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ud.Records, 2)
	require.False(t, ud.MoreRecordsFollow)

	require.Len(t, tr.Writes, 3)
	// First request FCB=1 (0x7B), follow-up toggles to FCB=0 (0x6B).
	require.Equal(t, byte(0x7B), tr.Writes[1][1])
	require.Equal(t, byte(0x6B), tr.Writes[2][1])

	// Records concatenate in request order.
	require.Equal(t, "Energy", ud.Records[0].VIB.Description)
	require.Equal(t, "Flow temperature", ud.Records[1].VIB.Description)
}

func TestReadRecordsChecksumCorruptionRetriesSameFCB(t *testing.T) {
	good := mustUserDataFrame(t, 1, testHeader+" 04 03 D2 04 00 00")
	bad := append([]byte(nil), good...)
	bad[len(bad)-2]++ // corrupt the checksum byte

	tr := newFakeTransport(t, []byte{0xE5}, bad, good)
	s := New(tr, quickConfig(), nil)

	ud, err := s.ReadRecords(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ud.Records, 1)

	require.Len(t, tr.Writes, 3)
	// The retry resends the identical request: same FCB.
	require.Equal(t, tr.Writes[1], tr.Writes[2])
}

func TestReadRecordsTimeoutExhaustion(t *testing.T) {
	tr := newFakeTransport(t, []byte{0xE5}) // reset answered, then silence
	s := New(tr, quickConfig(), nil)

	_, err := s.ReadRecords(context.Background(), 1)
	var tErr *TimeoutError
	require.ErrorAs(t, err, &tErr)
	require.Equal(t, 3, tErr.Attempts)

	// Reset plus MaxRetries identical REQ_UD2 writes.
	require.Len(t, tr.Writes, 4)
	require.Equal(t, tr.Writes[1], tr.Writes[2])
	require.Equal(t, tr.Writes[2], tr.Writes[3])
}

func TestReadRecordsAckMeansNoData(t *testing.T) {
	tr := newFakeTransport(t, []byte{0xE5}, []byte{0xE5})
	s := New(tr, quickConfig(), nil)

	ud, err := s.ReadRecords(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, ud.Records)
	require.False(t, ud.MoreRecordsFollow)
}

func TestReadRecordsAddressMismatchRetried(t *testing.T) {
	wrong := mustUserDataFrame(t, 2, testHeader+" 04 03 D2 04 00 00")
	right := mustUserDataFrame(t, 1, testHeader+" 04 03 D2 04 00 00")
	tr := newFakeTransport(t, []byte{0xE5}, wrong, right)
	s := New(tr, quickConfig(), nil)

	ud, err := s.ReadRecords(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, ud.Records, 1)
	require.Len(t, tr.Writes, 3)
}

func TestReadRecordsConnectionErrorNotRetried(t *testing.T) {
	tr := newFakeTransport(t, []byte{0xE5})
	s := New(tr, quickConfig(), nil)
	require.NoError(t, s.Reset(context.Background(), 1))

	tr.readErr = &transport.ConnectionError{Op: "read"}
	_, err := s.ReadRecords(context.Background(), 1)
	var connErr *transport.ConnectionError
	require.ErrorAs(t, err, &connErr)
	// The explicit reset plus the single SND_NKE of ReadRecords' own reset:
	// no retries for connection loss.
	require.Len(t, tr.Writes, 2)
}

func TestReadRecordsCancelledContext(t *testing.T) {
	tr := newFakeTransport(t, []byte{0xE5})
	s := New(tr, quickConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.ReadRecords(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
	require.Positive(t, tr.drained, "cancelled operation drains the input")
}

func TestExchangeRetriesValidationError(t *testing.T) {
	// Garbage first byte, then a clean acknowledge.
	tr := newFakeTransport(t, []byte{0x42}, []byte{0xE5})
	s := New(tr, quickConfig(), nil)

	require.NoError(t, s.Reset(context.Background(), 5))
	require.Len(t, tr.Writes, 2)
}

func TestExchangeSurfacesLastProtocolError(t *testing.T) {
	tr := newFakeTransport(t, []byte{0x42}, []byte{0x42}, []byte{0x42})
	s := New(tr, quickConfig(), nil)

	err := s.Reset(context.Background(), 5)
	require.ErrorIs(t, err, frame.ErrInvalidStartByte)
	require.Len(t, tr.Writes, 3)
}
