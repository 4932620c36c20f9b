package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerify(t *testing.T) {
	a := New()

	encoded, err := a.GenerateFromPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))
	assert.NotContains(t, encoded, "s3cret")

	ok, err := a.VerifyPasswd("s3cret", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.VerifyPasswd("wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateIsSalted(t *testing.T) {
	a := New()

	first, err := a.GenerateFromPassword("same")
	require.NoError(t, err)

	second, err := a.GenerateFromPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyUsesEncodedParams(t *testing.T) {
	weak := &ArgonHash{
		Memory:      16 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}

	encoded, err := weak.GenerateFromPassword("pw")
	require.NoError(t, err)

	// A verifier with different defaults must still match
	ok, err := New().VerifyPasswd("pw", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyMalformedHash(t *testing.T) {
	a := New()

	for _, e := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=65536,t=3,p=2$only-four-parts",
		"$bcrypt$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=65536,t=3,p=2$!!!$aGFzaA",
	} {
		_, err := a.VerifyPasswd("pw", e)
		assert.Error(t, err, "input %q", e)
	}
}
