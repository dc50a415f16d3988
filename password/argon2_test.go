package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	h, err := NewArgon2(DefaultConfig())
	require.NoError(t, err)

	digest, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(digest, "$argon2id$"))

	ok, err := h.Verify("correct horse battery staple", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong password", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	h, err := NewArgon2(DefaultConfig())
	require.NoError(t, err)

	a, err := h.Hash("same input")
	require.NoError(t, err)
	b, err := h.Hash("same input")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsMangledDigest(t *testing.T) {
	h, err := NewArgon2(DefaultConfig())
	require.NoError(t, err)

	for _, digest := range []string{
		"",
		"not-a-phc-string",
		"$argon2i$v=19$m=65536,t=3,p=2$AAAA$BBBB",
	} {
		_, err := h.Verify("anything", digest)
		assert.Error(t, err, "digest %q", digest)
	}
}

func TestVerifyHonorsStoredParameters(t *testing.T) {
	// A digest minted with lighter parameters must still verify: the
	// parameters come from the stored string, not the verifier's config.
	light, err := NewArgon2(Config{Memory: 16 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	heavy, err := NewArgon2(DefaultConfig())
	require.NoError(t, err)

	digest, err := light.Hash("portable")
	require.NoError(t, err)

	ok, err := heavy.Verify("portable", digest)
	require.NoError(t, err)
	assert.True(t, ok)
}
