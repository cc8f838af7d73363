package frame

// WithFCB folds the FCB/FCV bits into a base C-field opcode. The offsets are
// added to the base: FCV=1 adds 0x10, FCV=1 with FCB=1 adds 0x20, so REQ_UD2
// (0x5B) encodes as 0x5B, 0x6B or 0x7B. FCB is ignored while FCV is 0. The
// encoder only performs the arithmetic; FCB bookkeeping lives in the session.
func WithFCB(base byte, fcb, fcv bool) byte {
	if !fcv {
		return base
	}
	if fcb {
		return base + fcbBit
	}
	return base + fcvBit
}

// EncodeShort builds a five-byte short frame: 10 C A cs 16.
func EncodeShort(c, a byte) []byte {
	return []byte{StartShort, c, a, c + a, Stop}
}

// EncodeSndNke builds the link-reset request for the given address.
func EncodeSndNke(addr int) ([]byte, error) {
	if err := CheckUnicastAddress(addr); err != nil {
		return nil, err
	}
	return EncodeShort(CSndNke, byte(addr)), nil
}

// EncodeReqUD2 builds a class-2 data request with FCV=1 and the given FCB.
func EncodeReqUD2(addr int, fcb bool) ([]byte, error) {
	if err := CheckUnicastAddress(addr); err != nil {
		return nil, err
	}
	return EncodeShort(WithFCB(CReqUD2, fcb, true), byte(addr)), nil
}

// EncodeReqUD1 builds a class-1 (alarm) data request with FCV=1 and the given
// FCB.
func EncodeReqUD1(addr int, fcb bool) ([]byte, error) {
	if err := CheckUnicastAddress(addr); err != nil {
		return nil, err
	}
	return EncodeShort(WithFCB(CReqUD1, fcb, true), byte(addr)), nil
}

// EncodeSndUD builds a long frame carrying user data towards the slave.
// Broadcast is permitted here since SND_UD expects no reply.
func EncodeSndUD(addr int, ci byte, payload []byte) ([]byte, error) {
	if err := CheckAddress(addr); err != nil {
		return nil, err
	}
	return EncodeLong(CSndUD, byte(addr), ci, payload)
}

// EncodeLong builds a long frame: 68 L L 68 C A CI data cs 16, with
// L = 3 + len(payload).
func EncodeLong(c, a, ci byte, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLong
	}
	l := byte(MinLength + len(payload))
	buf := make([]byte, 0, int(l)+6)
	buf = append(buf, StartLong, l, l, StartLong, c, a, ci)
	buf = append(buf, payload...)
	buf = append(buf, Checksum(buf[4:]), Stop)
	return buf, nil
}
