package reference

import (
	"crypto/rand"
)

// Order references are displayed to customers and printed on invoices:
// a fixed prefix plus 8 uppercase alphanumerics, e.g. MC-7K2Q9XAB.
const (
	Prefix   = "MC-"
	codeLen  = 8
	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// largest multiple of len(alphabet) below 256; bytes at or above it
	// are rejected so every character is equally likely
	rejectAt = 256 - 256%len(alphabet)
)

// Generator produces random order references. Uniqueness is not
// guaranteed here; the orders table's unique index is the arbiter and
// callers regenerate on collision.
type Generator struct{}

func NewGenerator() *Generator { return &Generator{} }

func (g *Generator) NewReference() (string, error) {
	code := make([]byte, 0, codeLen)
	buf := make([]byte, codeLen)
	for len(code) < codeLen {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if c, ok := pick(b); ok {
				code = append(code, c)
				if len(code) == codeLen {
					break
				}
			}
		}
	}
	return Prefix + string(code), nil
}

// pick maps a random byte onto the alphabet, rejecting the tail of the
// byte range that does not divide evenly across it.
func pick(b byte) (byte, bool) {
	if int(b) >= rejectAt {
		return 0, false
	}
	return alphabet[int(b)%len(alphabet)], true
}
