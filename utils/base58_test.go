package utils

import (
	`testing`

	`github.com/stretchr/testify/require`
)

func TestBase58RoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0x00, 0x00, 0x01, 0x02, 0x03},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a},
		{0xff, 0xff, 0xff, 0xff},
	}
	for _, in := range cases {
		encoded := Base58Encoding(in)
		decoded := Base58Decoding(encoded)
		require.Equal(t, in, decoded, "round trip of % x", in)
	}
}

func TestBase58EncodesLeadingZeroAsOne(t *testing.T) {
	encoded := Base58Encoding([]byte{0x00, 0x00, 0x2a})
	require.Equal(t, byte('1'), encoded[0])
	require.Equal(t, byte('1'), encoded[1])
}
