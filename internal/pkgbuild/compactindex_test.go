package pkgbuild

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompactIndexRoundTrip(t *testing.T) {
	values := []uint64{
		0x0, 0x1, 0x3f, 0x40, 0x3fff, 0x4000, 0x3fffffff, 0x40000000,
		1, 100, 1000, 1 << 20, 1 << 40, maxU64,
	}
	wantLen := map[uint64]int{
		0x0: 1, 0x1: 1, 0x3f: 1,
		0x40: 2, 0x3fff: 2,
		0x4000: 4, 0x3fffffff: 4,
		0x40000000: 8,
	}

	for _, v := range values {
		buf, err := EncodeCompactIndex(nil, v)
		require.NoError(t, err)
		if want, ok := wantLen[v]; ok {
			require.Equalf(t, want, len(buf), "value %#x", v)
		}

		got, err := DecodeCompactIndex(bytes.NewReader(buf))
		require.NoError(t, err)
		require.Equalf(t, v, got, "roundtrip mismatch for %#x", v)

		// The low two bits of the first byte always name the chosen width tag.
		tag := buf[0] & 0x3
		switch len(buf) {
		case 1:
			require.EqualValues(t, tagU8, tag)
		case 2:
			require.EqualValues(t, tagU16, tag)
		case 4:
			require.EqualValues(t, tagU32, tag)
		case 8:
			require.EqualValues(t, tagU64, tag)
		}
	}
}

func TestCompactIndexOverflow(t *testing.T) {
	_, err := EncodeCompactIndex(nil, maxU64+1)
	require.Error(t, err)
}

func TestCompactIndexMinimalWidth(t *testing.T) {
	// Every value picks the smallest width that can hold (n<<2)|tag.
	for n := uint64(0); n <= 0x3f; n++ {
		buf, err := EncodeCompactIndex(nil, n)
		require.NoError(t, err)
		require.Len(t, buf, 1)
	}
	buf, err := EncodeCompactIndex(nil, 0x40)
	require.NoError(t, err)
	require.Len(t, buf, 2)
}
