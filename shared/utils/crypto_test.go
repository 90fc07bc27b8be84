package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDigest(t *testing.T) {
	a := Digest("secret", "foo", "1.2.3.4")

	assert.Len(t, a, 64)
	assert.Equal(t, a, Digest("secret", "foo", "1.2.3.4"), "digest must be stable")
	assert.NotEqual(t, a, Digest("other", "foo", "1.2.3.4"), "digest must depend on secret")
	assert.NotEqual(t, a, Digest("secret", "foo1", ".2.3.4"), "parts must not be concatenated blindly")
	assert.NotContains(t, a, "1.2.3.4")
}

func TestDigest_LongSecret(t *testing.T) {
	long := strings.Repeat("k", 200)
	assert.NotPanics(t, func() { Digest(long, "x") })
}

func TestIdent(t *testing.T) {
	day := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	ident := Ident("secret", "foo", "1.2.3.4", day)
	assert.Len(t, ident, 8)
	assert.Equal(t, ident, Ident("secret", "foo", "1.2.3.4", day.Add(5*time.Hour)), "same day, same ident")
	assert.NotEqual(t, ident, Ident("secret", "foo", "1.2.3.4", day.Add(24*time.Hour)), "ident rotates daily")
	assert.NotEqual(t, ident, Ident("secret", "bar", "1.2.3.4", day), "ident differs per board")
}
