package midi

// DecodeVarint reads a variable-length value from the start of data and
// returns it together with the number of bytes it occupied. It returns
// ErrTruncated if data ends while the continuation bit is still set.
func DecodeVarint(data []byte) (uint64, int, error) {
	var rv uint64

	for i, b := range data {
		if rv>>57 != 0 {
			return 0, i, ErrVarintOverflow
		}
		rv = (rv << 7) | uint64(b&0x7f)
		continued := (b & 0x80) != 0
		if !continued {
			return rv, i + 1, nil
		}
	}

	return 0, len(data), ErrTruncated
}

// EncodeVarint returns the shortest variable-length encoding of n.
func EncodeVarint(n uint64) []byte {
	if n == 0 {
		return []byte{0}
	}

	var rrv []byte
	for n > 0 {
		rrv = append(rrv, byte(n&0x7f))
		n = n >> 7
	}

	rv := make([]byte, 0, len(rrv))
	for i := len(rrv) - 1; i >= 0; i-- {
		b := rrv[i]
		if i != 0 {
			b |= 0x80
		}
		rv = append(rv, b)
	}

	return rv
}
