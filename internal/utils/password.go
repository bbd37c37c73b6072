package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// DummyHash is a hash of a random password at the normal cost. Compare
// against it when no account matched so the miss costs as much as a wrong
// password.
func DummyHash() string {
	dummyOnce.Do(func() {
		h, err := HashPassword(RandomString(32))
		if err != nil {
			panic(err)
		}
		dummyHash = h
	})
	return dummyHash
}
