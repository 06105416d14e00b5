package services

import (
	"crypto/rand"
	"math/big"

	"github.com/urlzip/urlzip/pkg/ports"
)

const (
	charset           = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	DefaultCodeLength = 6
)

var charsetSize = big.NewInt(int64(len(charset)))

// RandomCodeGenerator draws each symbol independently and uniformly from charset
type RandomCodeGenerator struct {
	Length int
}

func NewRandomCodeGenerator(length int) *RandomCodeGenerator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	return &RandomCodeGenerator{Length: length}
}

func (g *RandomCodeGenerator) NewCode() (string, error) {
	return generateShortCode(g.Length)
}

func generateShortCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, charsetSize)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}

// isShortCode reports whether code could have been produced by a generator.
func isShortCode(code string) bool {
	if code == "" {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

var _ ports.CodeGenerator = (*RandomCodeGenerator)(nil)
