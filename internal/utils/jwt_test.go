package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/require"
    "golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 42, "ana@civeni.org", "ADMIN", 15)
    require.NoError(t, err)
    require.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 5*time.Second)

    claims, err := ParseAccessToken("s3cret", tok.Token)
    require.NoError(t, err)
    id, err := claims.UserID()
    require.NoError(t, err)
    require.Equal(t, uint64(42), id)
    require.Equal(t, "ADMIN", claims.Role)
    require.Equal(t, "ana@civeni.org", claims.Email)
}

func TestParseAccessTokenRejects(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 1, "", "ADMIN", 15)
    require.NoError(t, err)

    _, err = ParseAccessToken("other", tok.Token)
    require.ErrorIs(t, err, ErrInvalidToken)

    expired, err := NewAccessToken("s3cret", 1, "", "ADMIN", -1)
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", expired.Token)
    require.ErrorIs(t, err, ErrInvalidToken)

    none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: "ADMIN"}).
        SignedString(jwt.UnsafeAllowNoneSignatureType)
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", none)
    require.ErrorIs(t, err, ErrInvalidToken)

    _, err = ParseAccessToken("s3cret", "garbage")
    require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokenHash(t *testing.T) {
    rt, err := NewRefreshToken(7)
    require.NoError(t, err)
    require.Len(t, rt.Raw, 96)
    require.Len(t, HashRefreshRaw(rt.Raw), 64)
    require.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))

    other, err := NewRefreshToken(7)
    require.NoError(t, err)
    require.NotEqual(t, rt.Raw, other.Raw)
}

func TestPassword(t *testing.T) {
    _, err := HashPassword("short", bcrypt.MinCost)
    require.ErrorIs(t, err, ErrWeakPassword)

    h, err := HashPassword("correct horse", bcrypt.MinCost)
    require.NoError(t, err)
    require.True(t, VerifyPassword(h, "correct horse"))
    require.False(t, VerifyPassword(h, "wrong horse"))
}
