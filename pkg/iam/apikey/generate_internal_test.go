package apikey

import (
	"bytes"
	"strings"
	"testing"
)

func TestBase58RoundTrip(t *testing.T) {
	cases := [][]byte{
		{0x00},
		{0x00, 0x00, 0x01},
		{0xff, 0xff, 0xff, 0xff},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		bytes.Repeat([]byte{0xab}, secretBytes),
	}

	for _, in := range cases {
		encoded := base58Encode(in)
		decoded, ok := base58Decode(encoded)
		if !ok {
			t.Fatalf("decode failed for %x (encoded %q)", in, encoded)
		}
		if !bytes.Equal(decoded, in) {
			t.Fatalf("round trip mismatch: %x -> %q -> %x", in, encoded, decoded)
		}
	}
}

func TestBase58Encode_LeadingZerosBecomeOnes(t *testing.T) {
	encoded := base58Encode([]byte{0x00, 0x00, 0xff})
	if !strings.HasPrefix(encoded, "11") {
		t.Fatalf("expected two leading '1's, got %q", encoded)
	}
}

func TestBase58Encode_NoAmbiguousCharacters(t *testing.T) {
	encoded := base58Encode(bytes.Repeat([]byte{0xff}, 32))
	if strings.ContainsAny(encoded, "0OIl") {
		t.Fatalf("encoding contains ambiguous characters: %q", encoded)
	}
}

func TestBase58Decode_RejectsUnknownCharacters(t *testing.T) {
	for _, bad := range []string{"0abc", "O123", "hello world", "abcI"} {
		if _, ok := base58Decode(bad); ok {
			t.Fatalf("expected decode of %q to fail", bad)
		}
	}
}
