package utils

import (
	"crypto/rand"
	"math/big"
)

// RandomString returns a crypto-random alphanumeric string. Session ids and
// OAuth state values are drawn from it.
func RandomString(length int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		result[i] = chars[num.Int64()]
	}
	return string(result)
}
