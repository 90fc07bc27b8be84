package utils

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
)

// keyedSum hashes parts with a blake2b-256 MAC keyed by secret.
// blake2b accepts keys up to 64 bytes; longer secrets are pre-hashed.
func keyedSum(secret string, parts ...string) []byte {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	mac, err := blake2b.New256(key)
	if err != nil {
		// only returned for keys over 64 bytes, handled above
		panic(err)
	}
	mac.Write([]byte(strings.Join(parts, "\x00")))
	return mac.Sum(nil)
}

// Digest returns a stable hex fingerprint of parts. Used to key per-origin
// state (rate limits) without storing raw addresses.
func Digest(secret string, parts ...string) string {
	return hex.EncodeToString(keyedSum(secret, parts...))
}

// Ident derives the short public poster id shown next to a reply. It changes
// daily and differs between boards so posters cannot be tracked across them.
func Ident(secret, namespace, ipAddress string, at time.Time) string {
	sum := keyedSum(secret, namespace, ipAddress, at.UTC().Format("20060102"))
	return base64.RawURLEncoding.EncodeToString(sum)[:8]
}
