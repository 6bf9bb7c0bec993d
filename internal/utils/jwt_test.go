package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	at, err := NewAccessToken("s3cret", "tech@uni.edu", "STAFF", "sid-1", 5)
	require.NoError(t, err)
	c, err := ParseAccessToken("s3cret", at.Token)
	require.NoError(t, err)
	assert.Equal(t, Claims{Email: "tech@uni.edu", Role: "STAFF", SessionID: "sid-1"}, c)
}

func TestParseAccessTokenRejects(t *testing.T) {
	at, err := NewAccessToken("s3cret", "tech@uni.edu", "STAFF", "sid-1", 5)
	require.NoError(t, err)
	_, err = ParseAccessToken("other", at.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewAccessToken("s3cret", "tech@uni.edu", "STAFF", "sid-1", -1)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", expired.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSession, err := NewAccessToken("s3cret", "tech@uni.edu", "STAFF", "", 5)
	require.NoError(t, err)
	_, err = ParseAccessToken("s3cret", noSession.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)
	h := HashRefreshRaw(rt.Raw)
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashRefreshRaw(rt.Raw))
}
