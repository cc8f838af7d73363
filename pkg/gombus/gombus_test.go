package gombus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/d21d3q/gombus/internal/frame"
	"github.com/d21d3q/gombus/internal/testutil"
)

// scriptTransport replays canned responses, one per write.
type scriptTransport struct {
	writes    [][]byte
	responses [][]byte
	current   []byte
	closed    bool
}

func (s *scriptTransport) Write(_ context.Context, p []byte) error {
	s.writes = append(s.writes, append([]byte(nil), p...))
	if len(s.responses) > 0 {
		s.current = s.responses[0]
		s.responses = s.responses[1:]
	} else {
		s.current = nil
	}
	return nil
}

func (s *scriptTransport) Read(_ context.Context, n int, _ time.Duration) ([]byte, error) {
	if len(s.current) < n {
		return nil, nil
	}
	chunk := s.current[:n]
	s.current = s.current[n:]
	return chunk, nil
}

func (s *scriptTransport) Connected() bool { return !s.closed }
func (s *scriptTransport) Close() error    { s.closed = true; return nil }

func respUD(t *testing.T, addr byte, payloadHex string) []byte {
	t.Helper()
	buf, err := frame.EncodeLong(0x08, addr, 0x72, testutil.MustHex(t, payloadHex))
	require.NoError(t, err)
	return buf
}

const header = "78 56 34 12 B4 09 01 07 2A 00 00 00"

func TestClientReset(t *testing.T) {
	tr := &scriptTransport{responses: [][]byte{{0xE5}}}
	client := NewClient(tr, WithRetryDelay(time.Millisecond), WithBaseTimeout(time.Millisecond))

	require.NoError(t, client.Reset(context.Background(), 5))
	require.Equal(t, [][]byte{{0x10, 0x40, 0x05, 0x45, 0x16}}, tr.writes)
	require.NoError(t, client.Close())
	require.True(t, tr.closed)
}

func TestClientReadRecords(t *testing.T) {
	tr := &scriptTransport{responses: [][]byte{
		{0xE5},
		respUD(t, 1, header+" 04 03 D2 04 00 00 0F DE AD"),
	}}
	client := NewClient(tr, WithRetryDelay(time.Millisecond), WithBaseTimeout(time.Millisecond))

	result, err := client.ReadRecords(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, byte(1), result.Address)
	require.Equal(t, "BMT", result.Manufacturer)
	require.Equal(t, uint32(12345678), result.SerialNumber)
	require.Equal(t, "water", result.Medium)
	require.Len(t, result.Records, 1)
	require.Equal(t, []byte{0xDE, 0xAD}, result.ManufacturerData)

	out := result.String()
	require.Contains(t, out, "\"manufacturer\": \"BMT\"")
	require.Contains(t, out, "\"unit\": \"Wh\"")
}

func TestClientTrailerDecoder(t *testing.T) {
	RegisterTrailerDecoder("BMT", TrailerDecoderFunc(func(data []byte) (map[string]any, error) {
		return map[string]any{"trailer_len": len(data)}, nil
	}))
	defer func() {
		trailerMu.Lock()
		delete(trailerRegistry, "BMT")
		trailerMu.Unlock()
	}()

	tr := &scriptTransport{responses: [][]byte{
		{0xE5},
		respUD(t, 1, header+" 04 03 D2 04 00 00 0F DE AD BE"),
	}}
	client := NewClient(tr, WithRetryDelay(time.Millisecond), WithBaseTimeout(time.Millisecond))

	result, err := client.ReadRecords(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"trailer_len": 3}, result.Fields)
}

func TestClientUnknownCIPreserved(t *testing.T) {
	payload := testutil.MustHex(t, "01 02 03")
	buf, err := frame.EncodeLong(0x08, 1, 0xA1, payload)
	require.NoError(t, err)

	tr := &scriptTransport{responses: [][]byte{{0xE5}, buf}}
	client := NewClient(tr, WithRetryDelay(time.Millisecond), WithBaseTimeout(time.Millisecond))

	result, err := client.ReadRecords(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, byte(0xA1), result.OpaqueCI)
	require.Equal(t, payload, result.OpaquePayload)
	require.Empty(t, result.Records)
}

func TestDialRejectsUnsupportedSchemes(t *testing.T) {
	_, err := Dial("rfc2217://host:4001")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rfc2217")

	_, err = Dial("ftp://host")
	require.Error(t, err)
}
