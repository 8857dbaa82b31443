package apikey

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/flagforge/flagforge/pkg/errx"
)

// secretBytes is how much cryptographic randomness backs each key.
const secretBytes = 20

// Generate produces a new plaintext API key: sk_{env}_{base58 payload}.
// Example: sk_prod_x7k2m9p1q4r8w3v6b5n8. The caller hashes it and stores the
// digest; the plaintext is shown exactly once.
func Generate(environmentKey string) (string, error) {
	payload := make([]byte, secretBytes)
	if _, err := rand.Read(payload); err != nil {
		return "", errx.Wrap(err, "failed to generate API key entropy", errx.TypeInternal)
	}
	return "sk_" + environmentKey + "_" + base58Encode(payload), nil
}

// base58Alphabet is the Bitcoin alphabet: base-64's URL-unsafe characters
// and the visually ambiguous 0, O, I, l are absent.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var base58Base = big.NewInt(58)

// base58Encode converts buf to canonical base-58: leading zero bytes become
// leading '1' characters so the encoding preserves bit length.
func base58Encode(buf []byte) string {
	num := new(big.Int).SetBytes(buf)
	var sb strings.Builder

	mod := new(big.Int)
	for num.Sign() > 0 {
		num.DivMod(num, base58Base, mod)
		sb.WriteByte(base58Alphabet[mod.Int64()])
	}

	for _, b := range buf {
		if b != 0 {
			break
		}
		sb.WriteByte('1')
	}

	// Digits were produced least-significant first.
	encoded := []byte(sb.String())
	for i, j := 0, len(encoded)-1; i < j; i, j = i+1, j-1 {
		encoded[i], encoded[j] = encoded[j], encoded[i]
	}
	return string(encoded)
}

// base58Decode inverts base58Encode. Unknown characters fail the decode.
func base58Decode(s string) ([]byte, bool) {
	num := big.NewInt(0)
	for _, r := range s {
		idx := strings.IndexRune(base58Alphabet, r)
		if idx < 0 {
			return nil, false
		}
		num.Mul(num, base58Base)
		num.Add(num, big.NewInt(int64(idx)))
	}

	leading := 0
	for _, r := range s {
		if r != '1' {
			break
		}
		leading++
	}

	return append(make([]byte, leading), num.Bytes()...), true
}
