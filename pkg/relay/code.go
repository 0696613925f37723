package relay

import (
	"crypto/rand"
	"io"
)

const (
	// CodeAlphabet has no look-alike symbols (I, O, 0).
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ123456789"
	CodeLength   = 8
)

// biggest multiple of the alphabet size that fits into a byte,
// bytes above are skipped so each symbol is equally likely
const maxByte = 256 - 256%len(CodeAlphabet)

// NewCode generates a random session code.
func NewCode() (string, error) { return newCode(rand.Reader) }

func newCode(rnd io.Reader) (string, error) {
	code := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength*2)
	for len(code) < CodeLength {
		if _, err := io.ReadFull(rnd, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= maxByte {
				continue
			}
			code = append(code, CodeAlphabet[int(b)%len(CodeAlphabet)])
			if len(code) == CodeLength {
				break
			}
		}
	}
	return string(code), nil
}

// IsValidCode checks the format of a session code.
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !isCodeSymbol(code[i]) {
			return false
		}
	}
	return true
}

func isCodeSymbol(b byte) bool {
	for i := 0; i < len(CodeAlphabet); i++ {
		if CodeAlphabet[i] == b {
			return true
		}
	}
	return false
}
