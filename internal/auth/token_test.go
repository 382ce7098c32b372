package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestDemoCodecRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	codec := NewDemoCodec(24*time.Hour, clock.Now)

	token, err := codec.Issue("demo")
	require.NoError(t, err)

	decoded, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	parts := strings.Split(string(decoded), ":")
	require.Len(t, parts, 3)
	assert.Equal(t, "demo", parts[0])
	assert.Equal(t, "1700000000000", parts[1])
	assert.NotEmpty(t, parts[2])

	id, err := codec.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "demo", id.Username)
	assert.Equal(t, "user_demo", id.UserID())
}

func TestDemoCodecExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	codec := NewDemoCodec(24*time.Hour, clock.Now)

	token, err := codec.Issue("kent")
	require.NoError(t, err)

	clock.Advance(24*time.Hour - time.Millisecond)
	_, err = codec.Validate(token)
	assert.NoError(t, err)

	clock.Advance(time.Millisecond)
	_, err = codec.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestDemoCodecUsernameWithColon(t *testing.T) {
	codec := NewDemoCodec(time.Hour, nil)
	token, err := codec.Issue("a:b")
	require.NoError(t, err)

	id, err := codec.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "a:b", id.Username)
}

func TestDemoCodecRejectsGarbage(t *testing.T) {
	codec := NewDemoCodec(time.Hour, nil)

	cases := []string{
		"",
		"not base64!!",
		base64.StdEncoding.EncodeToString([]byte("nocolons")),
		base64.StdEncoding.EncodeToString([]byte("demo:notanumber:abc")),
		base64.StdEncoding.EncodeToString([]byte(":123:abc")),
	}
	for _, tc := range cases {
		_, err := codec.Validate(tc)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", tc)
	}
}

func TestJWTCodec(t *testing.T) {
	clock := &fakeClock{t: time.Now().Truncate(time.Second)}
	codec := NewJWTCodec("test-secret", time.Hour, "kentj", clock.Now)

	token, err := codec.Issue("admin")
	require.NoError(t, err)

	id, err := codec.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", id.Username)

	other := NewJWTCodec("other-secret", time.Hour, "kentj", clock.Now)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock.Advance(time.Hour)
	_, err = codec.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestStaticCredentials(t *testing.T) {
	creds, err := NewStaticCredentials(DemoUsers, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, creds.Check("demo", "password123"))
	assert.True(t, creds.Check("kent", "advisor2024"))
	assert.False(t, creds.Check("demo", "wrong"))
	assert.False(t, creds.Check("nobody", "password123"))
	assert.False(t, creds.Check("", ""))
}
