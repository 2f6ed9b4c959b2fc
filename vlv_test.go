package midi

import (
	"bytes"
	"encoding/hex"
	"testing"
	"testing/quick"

	"github.com/pkg/errors"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	data, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex.DecodeString(%q) = err: %v", s, err)
	}
	return data
}

func TestVarintEncoding(t *testing.T) {
	numbers := []uint64{
		12345678,
		12328,
		34278,
		123793,
		0,
		342,
		0x7f,
		0x80,
		0x0fffffff,
	}
	for _, n := range numbers {
		encoded := EncodeVarint(n)
		val, consumed, err := DecodeVarint(encoded)
		if err != nil {
			t.Errorf("DecodeVarint(..EncodeVarint(%d)=%v..) = err: %v", n, encoded, err)
			continue
		}
		if val != n || consumed != len(encoded) {
			t.Errorf("DecodeVarint(..EncodeVarint(%d)=%v..) = %v, %d want %v, %d", n, encoded, val, consumed, n, len(encoded))
		}
	}
}

func TestVarintKnownValues(t *testing.T) {
	testcases := []struct {
		hex  string
		want uint64
	}{
		{"00", 0},
		{"40", 0x40},
		{"7f", 0x7f},
		{"8100", 0x80},
		{"c000", 0x2000},
		{"ff7f", 16383},
		{"818000", 0x4000},
		{"da824f", 1474895},
		{"fea715", 2069397},
		{"ffff7f", 2097151},
		{"81808000", 0x200000},
		{"ffffff7f", 268435455},
	}

	n := len(testcases)

	for i, testcase := range testcases {
		data := mustHex(t, testcase.hex)

		got, consumed, err := DecodeVarint(data)
		if err != nil {
			t.Errorf("[%d/%d] DecodeVarint(% 02x) = err: %v", i+1, n, data, err)
			continue
		}
		if got != testcase.want || consumed != len(data) {
			t.Errorf("[%d/%d] DecodeVarint(% 02x) = %d, %d want %d, %d", i+1, n, data, got, consumed, testcase.want, len(data))
		}

		if encoded := EncodeVarint(testcase.want); !bytes.Equal(encoded, data) {
			t.Errorf("[%d/%d] EncodeVarint(%d) = % 02x want % 02x", i+1, n, testcase.want, encoded, data)
		}
	}
}

func TestVarintStopsAtLastByte(t *testing.T) {
	got, consumed, err := DecodeVarint([]byte{0x81, 0x00, 0x90, 0x3c})
	if err != nil || got != 0x80 || consumed != 2 {
		t.Errorf("DecodeVarint(81 00 90 3c) = %d, %d, %v want 128, 2, nil", got, consumed, err)
	}
}

func TestVarintTruncated(t *testing.T) {
	for _, data := range [][]byte{nil, {0x81}, {0xff, 0xff}, {0x81, 0x80, 0x80}} {
		if _, _, err := DecodeVarint(data); !errors.Is(err, ErrTruncated) {
			t.Errorf("DecodeVarint(% 02x) = err: %v want %v", data, err, ErrTruncated)
		}
	}
}

func TestVarintOverflow(t *testing.T) {
	data := bytes.Repeat([]byte{0xff}, 10)
	data = append(data, 0x7f)
	if _, _, err := DecodeVarint(data); !errors.Is(err, ErrVarintOverflow) {
		t.Errorf("DecodeVarint(% 02x) = err: %v want %v", data, err, ErrVarintOverflow)
	}
}

func TestVarintRoundTrip(t *testing.T) {
	roundTrip := func(v uint32) bool {
		v &= 0x0fffffff
		encoded := EncodeVarint(uint64(v))
		got, consumed, err := DecodeVarint(encoded)
		return err == nil && got == uint64(v) && consumed == len(encoded)
	}
	if err := quick.Check(roundTrip, nil); err != nil {
		t.Error(err)
	}
}

func TestVarintMinimalLength(t *testing.T) {
	bounds := []struct {
		max  uint64
		size int
	}{
		{0x7f, 1},
		{0x3fff, 2},
		{0x1fffff, 3},
		{0x0fffffff, 4},
	}
	for _, b := range bounds {
		if got := len(EncodeVarint(b.max)); got != b.size {
			t.Errorf("len(EncodeVarint(%#x)) = %d want %d", b.max, got, b.size)
		}
		if got := len(EncodeVarint(b.max + 1)); got != b.size+1 {
			t.Errorf("len(EncodeVarint(%#x)) = %d want %d", b.max+1, got, b.size+1)
		}
		if first := EncodeVarint(b.max)[0]; first == 0x80 {
			t.Errorf("EncodeVarint(%#x) starts with a redundant 0x80 group", b.max)
		}
	}
}
