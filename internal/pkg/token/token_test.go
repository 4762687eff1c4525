package token

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundtrip(t *testing.T) {
	t.Parallel()

	codec := NewCodec("test-secret", time.Hour)
	now := time.Unix(1700000000, 0)

	tok := codec.Issue("admin", now)
	userID, err := codec.Verify(tok, now)
	require.NoError(t, err)
	assert.Equal(t, "admin", userID)
}

func TestVerifyTamperedSignature(t *testing.T) {
	t.Parallel()

	codec := NewCodec("test-secret", time.Hour)
	now := time.Unix(1700000000, 0)
	tok := codec.Issue("admin", now)

	_, _, sig, err := Split(tok)
	require.NoError(t, err)

	// Flipping any single signature character must fail verification.
	for i := 0; i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		bad := strings.TrimSuffix(tok, sig) + string(mutated)

		_, err := codec.Verify(bad, now)
		assert.ErrorIs(t, err, ErrBadSignature, "position %d", i)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0)
	tok := NewCodec("right-secret", time.Hour).Issue("admin", now)

	_, err := NewCodec("wrong-secret", time.Hour).Verify(tok, now)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyTTLBoundary(t *testing.T) {
	t.Parallel()

	ttl := time.Hour
	codec := NewCodec("test-secret", ttl)
	issuedAt := time.Unix(1700000000, 0)
	tok := codec.Issue("admin", issuedAt)

	_, err := codec.Verify(tok, issuedAt.Add(ttl-time.Second))
	assert.NoError(t, err)

	_, err = codec.Verify(tok, issuedAt.Add(ttl))
	assert.NoError(t, err)

	_, err = codec.Verify(tok, issuedAt.Add(ttl+time.Second))
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyMalformed(t *testing.T) {
	t.Parallel()

	codec := NewCodec("test-secret", time.Hour)
	now := time.Now()

	cases := []struct {
		name string
		tok  string
	}{
		{"empty", ""},
		{"one part", "admin"},
		{"two parts", "admin.12345"},
		{"four parts", "admin.12345.deadbeef.extra"},
		{"empty user", ".12345.deadbeef"},
		{"empty timestamp", "admin..deadbeef"},
		{"empty signature", "admin.12345."},
		{"non-integer timestamp", "admin.notanumber.deadbeef"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := codec.Verify(tc.tok, now)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
