package testutil

import (
	"crypto/rand"
	"encoding/base32"
	"math/big"
)

// RandomSecret returns a random base32 TOTP secret of the given length.
func RandomSecret(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	// 5 bits per base32 character
	numBytes := (length*5 + 7) / 8
	bytes := make([]byte, numBytes)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", err
	}
	b32 := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(bytes)
	return b32[:length], nil
}

// RandomFrom returns a string of length runes drawn from alphabet.
func RandomFrom(alphabet []rune, length int) (string, error) {
	if length <= 0 || len(alphabet) == 0 {
		return "", nil
	}
	out := make([]rune, length)
	max := big.NewInt(int64(len(alphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}
