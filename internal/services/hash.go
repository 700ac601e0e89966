package services

import (
	"crypto/sha256"
	"encoding/base64"
)

// HashString digests input with a server-side key appended, returning the
// base64-encoded SHA-256 sum. Used to store password digests so the
// database never holds plain-text credentials.
func HashString(input, key string) string {
	sum := sha256.Sum256([]byte(input + key))
	return base64.StdEncoding.EncodeToString(sum[:])
}
