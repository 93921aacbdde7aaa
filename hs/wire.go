package hs

import (
	"bufio"
	"bytes"
	"fmt"
)

// Wire framing: a request or response is a list of tokens separated by TAB
// (0x09) and terminated by LF (0x0A). A SQL NULL is the single byte 0x00.
// Inside a token, bytes in 0x00..0x0F are escaped as 0x01 followed by the
// byte shifted up by 0x40, so TAB and LF never appear in encoded payload.
const (
	tokenSep  = 0x09
	lineEnd   = 0x0a
	escMarker = 0x01
	escShift  = 0x40
	escMax    = 0x0f
	nullByte  = 0x00
)

// appendToken appends the wire encoding of one token to dst.
// A nil token encodes as NULL.
func appendToken(dst []byte, tok []byte) []byte {
	if tok == nil {
		return append(dst, nullByte)
	}
	for _, b := range tok {
		if b <= escMax {
			dst = append(dst, escMarker, b+escShift)
		} else {
			dst = append(dst, b)
		}
	}
	return dst
}

// decodeToken reverses appendToken. The NULL token decodes to nil.
func decodeToken(tok []byte) ([]byte, error) {
	if len(tok) == 1 && tok[0] == nullByte {
		return nil, nil
	}
	// Fast path: nothing escaped
	if bytes.IndexByte(tok, escMarker) < 0 {
		out := make([]byte, len(tok))
		copy(out, tok)
		return out, nil
	}
	out := make([]byte, 0, len(tok))
	for i := 0; i < len(tok); i++ {
		b := tok[i]
		if b != escMarker {
			out = append(out, b)
			continue
		}
		i++
		if i >= len(tok) {
			return nil, fmt.Errorf("dangling escape marker")
		}
		shifted := tok[i]
		if shifted < escShift || shifted > escShift+escMax {
			return nil, fmt.Errorf("invalid escape sequence 0x01 0x%02x", shifted)
		}
		out = append(out, shifted-escShift)
	}
	return out, nil
}

// EncodeLine encodes a list of tokens into one wire line including the
// trailing LF. A nil token encodes as NULL.
func EncodeLine(tokens [][]byte) []byte {
	line := make([]byte, 0, 16*len(tokens))
	for i, tok := range tokens {
		if i > 0 {
			line = append(line, tokenSep)
		}
		line = appendToken(line, tok)
	}
	return append(line, lineEnd)
}

// DecodeLine decodes one wire line (without the trailing LF) into its
// tokens. NULL tokens decode to nil.
func DecodeLine(line []byte) ([][]byte, error) {
	if len(line) == 0 {
		return nil, fmt.Errorf("empty line")
	}
	raw := bytes.Split(line, []byte{tokenSep})
	tokens := make([][]byte, len(raw))
	for i, r := range raw {
		tok, err := decodeToken(r)
		if err != nil {
			return nil, fmt.Errorf("token %d: %v", i, err)
		}
		tokens[i] = tok
	}
	return tokens, nil
}

// ReadLine reads one wire line from r and decodes it. The trailing LF is
// safe as a delimiter because LF never occurs in encoded payload.
func ReadLine(r *bufio.Reader) ([][]byte, error) {
	line, err := r.ReadBytes(lineEnd)
	if err != nil {
		return nil, err
	}
	return DecodeLine(line[:len(line)-1])
}
