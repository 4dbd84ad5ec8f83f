package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// TokenLength is the number of characters in a subscription token.
	TokenLength = 25

	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateToken returns a random alphanumeric subscription token.
// Every character is drawn uniformly from crypto/rand.
func GenerateToken() (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	b := make([]byte, TokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b[i] = tokenAlphabet[n.Int64()]
	}
	return string(b), nil
}
