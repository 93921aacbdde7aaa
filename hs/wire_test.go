package hs

import (
	"bufio"
	"bytes"
	"testing"
)

// TestTokenRoundTrip tests that tokens survive encoding and decoding,
// including binary payloads that collide with the framing bytes.
func TestTokenRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		tok  []byte
	}{
		{name: "nil (NULL)", tok: nil},
		{name: "empty", tok: []byte{}},
		{name: "plain ascii", tok: []byte("hello world")},
		{name: "tab and newline", tok: []byte("a\tb\nc")},
		{name: "all low bytes", tok: []byte{0x00, 0x01, 0x02, 0x08, 0x09, 0x0a, 0x0e, 0x0f}},
		{name: "high bytes", tok: []byte{0x10, 0x7f, 0x80, 0xff}},
		{name: "escape marker only", tok: []byte{0x01}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := appendToken(nil, tc.tok)
			decoded, err := decodeToken(encoded)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if (tc.tok == nil) != (decoded == nil) {
				t.Fatalf("nil/non-nil mismatch: sent %v, got %v", tc.tok, decoded)
			}
			if !bytes.Equal(tc.tok, decoded) {
				t.Errorf("round trip mismatch: sent %v, got %v", tc.tok, decoded)
			}
		})
	}
}

// TestDecodeTokenInvalid tests that malformed escape sequences are rejected
func TestDecodeTokenInvalid(t *testing.T) {
	testCases := []struct {
		name string
		tok  []byte
	}{
		{name: "dangling escape marker", tok: []byte{'a', 0x01}},
		{name: "escape shift too low", tok: []byte{0x01, 0x20}},
		{name: "escape shift too high", tok: []byte{0x01, 0x60}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := decodeToken(tc.tok); err == nil {
				t.Errorf("expected error for %v but got none", tc.tok)
			}
		})
	}
}

// TestEncodeLineFormat pins the exact wire bytes for a known request
func TestEncodeLineFormat(t *testing.T) {
	line := EncodeLine([][]byte{[]byte("P"), []byte("1"), []byte("db"), nil})
	want := []byte("P\t1\tdb\t\x00\n")
	if !bytes.Equal(line, want) {
		t.Errorf("unexpected wire bytes: got %q, want %q", line, want)
	}
}

// TestDecodeLine tests token splitting including NULL and empty tokens
func TestDecodeLine(t *testing.T) {
	tokens, err := DecodeLine([]byte("0\t1\t\x00\t"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(tokens) != 4 {
		t.Fatalf("expected 4 tokens, got %d", len(tokens))
	}
	if string(tokens[0]) != "0" || string(tokens[1]) != "1" {
		t.Errorf("unexpected leading tokens: %q %q", tokens[0], tokens[1])
	}
	if tokens[2] != nil {
		t.Errorf("expected NULL token to decode to nil, got %v", tokens[2])
	}
	if tokens[3] == nil || len(tokens[3]) != 0 {
		t.Errorf("expected trailing empty token, got %v", tokens[3])
	}

	if _, err := DecodeLine(nil); err == nil {
		t.Errorf("expected error for empty line")
	}
}

// TestReadLine tests reading consecutive lines from one stream
func TestReadLine(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(EncodeLine([][]byte{[]byte("0"), []byte("1")}))
	buf.Write(EncodeLine([][]byte{[]byte("1"), []byte("0")}))

	r := bufio.NewReader(&buf)

	first, err := ReadLine(r)
	if err != nil {
		t.Fatalf("first line: %v", err)
	}
	if len(first) != 2 || string(first[0]) != "0" {
		t.Errorf("unexpected first line: %v", first)
	}

	second, err := ReadLine(r)
	if err != nil {
		t.Fatalf("second line: %v", err)
	}
	if len(second) != 2 || string(second[0]) != "1" {
		t.Errorf("unexpected second line: %v", second)
	}

	if _, err := ReadLine(r); err == nil {
		t.Errorf("expected EOF after last line")
	}
}

// TestDecodeResult tests status decoding for the three response shapes
func TestDecodeResult(t *testing.T) {
	t.Run("found with rows", func(t *testing.T) {
		res, err := decodeResult([][]byte{[]byte("0"), []byte("2"), []byte("k"), []byte("v")})
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if !res.Found() || len(res.Rows) != 1 || len(res.Rows[0]) != 2 {
			t.Errorf("unexpected result: %+v", res)
		}
	})

	t.Run("soft miss", func(t *testing.T) {
		res, err := decodeResult([][]byte{[]byte("1"), []byte("0")})
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if res.Found() || res.Err != nil {
			t.Errorf("expected miss without error, got %+v", res)
		}
	})

	t.Run("server error", func(t *testing.T) {
		res, err := decodeResult([][]byte{[]byte("2"), []byte("1"), []byte("boom")})
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if res.Err == nil || res.Err.Kind != KindProtocol {
			t.Errorf("expected protocol error, got %+v", res)
		}
	})

	t.Run("mod count", func(t *testing.T) {
		res, err := decodeResult([][]byte{[]byte("0"), []byte("1"), []byte("1")})
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if res.Modified() != 1 {
			t.Errorf("expected 1 modified row, got %d", res.Modified())
		}
	})

	t.Run("ragged rows", func(t *testing.T) {
		if _, err := decodeResult([][]byte{[]byte("0"), []byte("2"), []byte("only")}); err == nil {
			t.Errorf("expected error for ragged row data")
		}
	})
}
