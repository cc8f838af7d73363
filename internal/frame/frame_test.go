package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	require.Equal(t, byte(0x00), Checksum(nil))
	require.Equal(t, byte(0x45), Checksum([]byte{0x40, 0x05}))
	require.Equal(t, byte(0xFF), Checksum([]byte{0xFF}))
	// Sum wraps modulo 256.
	require.Equal(t, byte(0x01), Checksum([]byte{0xFF, 0x02}))
}

func TestValidateShort(t *testing.T) {
	require.NoError(t, ValidateShort([]byte{0x10, 0x40, 0x05, 0x45, 0x16}))

	err := ValidateShort([]byte{0x11, 0x40, 0x05, 0x45, 0x16})
	require.ErrorIs(t, err, ErrInvalidStartByte)

	err = ValidateShort([]byte{0x10, 0x40, 0x05, 0x46, 0x16})
	require.ErrorIs(t, err, ErrChecksumMismatch)

	err = ValidateShort([]byte{0x10, 0x40, 0x05, 0x45, 0x17})
	require.ErrorIs(t, err, ErrStopByteMissing)

	err = ValidateShort([]byte{0x10, 0x40, 0x05, 0x45})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestValidateLong(t *testing.T) {
	// L=3 carries an empty payload.
	buf := []byte{0x68, 0x03, 0x03, 0x68, 0x08, 0x05, 0x72, 0x7F, 0x16}
	require.NoError(t, ValidateLong(buf))

	bad := append([]byte(nil), buf...)
	bad[2] = 0x04
	require.ErrorIs(t, ValidateLong(bad), ErrLengthMismatch)

	bad = append([]byte(nil), buf...)
	bad[7] = 0x00
	require.ErrorIs(t, ValidateLong(bad), ErrChecksumMismatch)

	bad = append([]byte(nil), buf...)
	bad[8] = 0x00
	require.ErrorIs(t, ValidateLong(bad), ErrStopByteMissing)

	require.ErrorIs(t, ValidateLong([]byte{0x68, 0x02, 0x02, 0x68, 0x08, 0x05, 0x0D, 0x16}), ErrLengthMismatch)
}

func TestCheckAddress(t *testing.T) {
	require.NoError(t, CheckAddress(0))
	require.NoError(t, CheckAddress(255))
	require.ErrorIs(t, CheckAddress(-1), ErrInvalidAddress)
	require.ErrorIs(t, CheckAddress(256), ErrInvalidAddress)

	require.NoError(t, CheckUnicastAddress(1))
	require.NoError(t, CheckUnicastAddress(AddrNetworkLayer))
	require.ErrorIs(t, CheckUnicastAddress(AddrNoStation), ErrReservedAddress)
	require.ErrorIs(t, CheckUnicastAddress(AddrBroadcast), ErrReservedAddress)
}

func TestEncodeSndNke(t *testing.T) {
	buf, err := EncodeSndNke(5)
	require.NoError(t, err)
	require.Equal(t, []byte{0x10, 0x40, 0x05, 0x45, 0x16}, buf)

	_, err = EncodeSndNke(255)
	require.ErrorIs(t, err, ErrReservedAddress)
}

func TestEncodeReqUD2FCB(t *testing.T) {
	// FCV=1 adds 0x10, FCV=1 with FCB=1 adds 0x20: 0x5B -> 0x7B / 0x6B.
	buf, err := EncodeReqUD2(1, true)
	require.NoError(t, err)
	require.Equal(t, []byte{0x10, 0x7B, 0x01, 0x7C, 0x16}, buf)

	buf, err = EncodeReqUD2(1, false)
	require.NoError(t, err)
	require.Equal(t, []byte{0x10, 0x6B, 0x01, 0x6C, 0x16}, buf)
}

func TestWithFCB(t *testing.T) {
	require.Equal(t, byte(0x5B), WithFCB(CReqUD2, false, false))
	require.Equal(t, byte(0x6B), WithFCB(CReqUD2, false, true))
	require.Equal(t, byte(0x7B), WithFCB(CReqUD2, true, true))
	require.Equal(t, byte(0x7A), WithFCB(CReqUD1, true, true))
}

func TestEncodeSndUD(t *testing.T) {
	buf, err := EncodeSndUD(1, 0x51, []byte{0x01, 0x7A, 0x08})
	require.NoError(t, err)
	require.Equal(t, byte(0x68), buf[0])
	require.Equal(t, byte(6), buf[1])
	require.Equal(t, buf[1], buf[2])
	require.NoError(t, ValidateLong(buf))

	_, err = EncodeSndUD(1, 0x51, make([]byte, 253))
	require.ErrorIs(t, err, ErrPayloadTooLong)

	// Maximum payload still encodes.
	buf, err = EncodeSndUD(1, 0x51, make([]byte, 252))
	require.NoError(t, err)
	require.Equal(t, byte(255), buf[1])
	require.NoError(t, ValidateLong(buf))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0xFF}
	buf, err := EncodeLong(0x53, 0x07, 0x51, payload)
	require.NoError(t, err)

	f, err := Decode(buf)
	require.NoError(t, err)
	require.Equal(t, KindLong, f.Kind)
	require.Equal(t, byte(0x53), f.C)
	require.Equal(t, byte(0x07), f.A)
	require.Equal(t, byte(0x51), f.CI)
	require.Equal(t, payload, f.Payload)
}
