package security

import (
	"encoding/ascii85"
	"fmt"
)

// Obscure reversibly encodes an internal identifier before it is placed in a
// token payload. This is encoding, not encryption: secrecy comes from the
// token signature, not from this transform.
func Obscure(s string) string {
	src := []byte(s)
	dst := make([]byte, ascii85.MaxEncodedLen(len(src)))
	n := ascii85.Encode(dst, src)
	return string(dst[:n])
}

// Reveal inverts Obscure. It fails on input that is not valid ascii85.
func Reveal(s string) (string, error) {
	src := []byte(s)
	dst := make([]byte, 4*len(src))
	n, _, err := ascii85.Decode(dst, src, true)
	if err != nil {
		return "", fmt.Errorf("reveal identifier: %w", err)
	}
	return string(dst[:n]), nil
}
