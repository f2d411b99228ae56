package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// makeJWT builds an unsigned JWT-shaped token with the given claims.
func makeJWT(t *testing.T, claims map[string]any) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	require.NoError(t, err)

	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	return fmt.Sprintf("%s.%s.sig",
		base64.RawURLEncoding.EncodeToString(header),
		base64.RawURLEncoding.EncodeToString(payload))
}

func TestDecodeClaims(t *testing.T) {
	t.Parallel()

	t.Run("valid token yields claims", func(t *testing.T) {
		t.Parallel()
		tok := makeJWT(t, map[string]any{"exp": 1700000000, "sub": "student"})
		claims := DecodeClaims(tok)
		require.Equal(t, "student", claims["sub"])
		require.EqualValues(t, 1700000000, claims["exp"])
	})

	t.Run("padded payload is tolerated", func(t *testing.T) {
		t.Parallel()
		payload := base64.URLEncoding.EncodeToString([]byte(`{"exp":42}`))
		claims := DecodeClaims("header." + payload + ".sig")
		require.EqualValues(t, 42, claims["exp"])
	})

	t.Run("wrong segment count yields empty", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, DecodeClaims("not-a-jwt"))
		require.Empty(t, DecodeClaims("only.two"))
		require.Empty(t, DecodeClaims("a.b.c.d"))
		require.Empty(t, DecodeClaims(""))
	})

	t.Run("invalid base64 yields empty", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, DecodeClaims("header.!!!not-base64!!!.sig"))
	})

	t.Run("non-JSON payload yields empty", func(t *testing.T) {
		t.Parallel()
		payload := base64.RawURLEncoding.EncodeToString([]byte("plain text"))
		require.Empty(t, DecodeClaims("header."+payload+".sig"))
	})
}

func TestClaimExpiry(t *testing.T) {
	t.Parallel()

	t.Run("reads exp claim", func(t *testing.T) {
		t.Parallel()
		exp := time.Now().Add(time.Hour).Unix()
		got, ok := claimExpiry(makeJWT(t, map[string]any{"exp": exp}))
		require.True(t, ok)
		require.Equal(t, exp, got)
	})

	t.Run("missing exp claim", func(t *testing.T) {
		t.Parallel()
		_, ok := claimExpiry(makeJWT(t, map[string]any{"sub": "x"}))
		require.False(t, ok)
	})

	t.Run("non-numeric exp claim", func(t *testing.T) {
		t.Parallel()
		_, ok := claimExpiry(makeJWT(t, map[string]any{"exp": "soon"}))
		require.False(t, ok)
	})

	t.Run("malformed token", func(t *testing.T) {
		t.Parallel()
		_, ok := claimExpiry("garbage")
		require.False(t, ok)
	})
}
