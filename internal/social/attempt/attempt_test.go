package attempt

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/socialgate/internal/cache"
)

var (
	hex32 = regexp.MustCompile(`^[0-9a-f]{32}$`)
	b64u  = regexp.MustCompile(`^[A-Za-z0-9_-]{43}$`)
)

func TestStart_GeneratesMaterialPerProvider(t *testing.T) {
	g := NewGuard(cache.NewMemory(""), 0)
	ctx := context.Background()

	k, err := g.Start(ctx, "kakao", Options{})
	require.NoError(t, err)
	assert.Regexp(t, hex32, k.State)
	assert.Empty(t, k.CodeVerifier)
	assert.Empty(t, k.Nonce)
	assert.Regexp(t, b64u, k.ID)

	gg, err := g.Start(ctx, "google", Options{PKCE: true})
	require.NoError(t, err)
	assert.Regexp(t, b64u, gg.CodeVerifier)
	assert.Empty(t, gg.Nonce)

	a, err := g.Start(ctx, "apple", Options{Nonce: true})
	require.NoError(t, err)
	assert.Regexp(t, hex32, a.Nonce)
	assert.Empty(t, a.CodeVerifier)

	assert.NotEqual(t, k.State, gg.State)
	assert.Equal(t, DefaultTTL, g.TTL())
}

func TestValidate_RoundTripIsSingleUse(t *testing.T) {
	g := NewGuard(cache.NewMemory(""), time.Minute)
	ctx := context.Background()

	a, err := g.Start(ctx, "google", Options{PKCE: true})
	require.NoError(t, err)

	got, err := g.Validate(ctx, a.ID, "google", a.State, Options{PKCE: true})
	require.NoError(t, err)
	assert.Equal(t, a.CodeVerifier, got.CodeVerifier)
	assert.Equal(t, a.ID, got.ID)

	_, err = g.Validate(ctx, a.ID, "google", a.State, Options{PKCE: true})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestValidate_Failures(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(cache.NewMemory(""), time.Minute)

	a, err := g.Start(ctx, "apple", Options{Nonce: true})
	require.NoError(t, err)
	k, err := g.Start(ctx, "kakao", Options{})
	require.NoError(t, err)

	cases := []struct {
		name                string
		id, provider, state string
		opts                Options
	}{
		{"missing cookie", "", "apple", a.State, Options{Nonce: true}},
		{"unknown attempt", "nope", "apple", a.State, Options{Nonce: true}},
		{"missing state", a.ID, "apple", "", Options{Nonce: true}},
		{"state mismatch", a.ID, "apple", a.State + "x", Options{Nonce: true}},
		{"other provider", a.ID, "google", a.State, Options{}},
		{"verifier required but absent", k.ID, "kakao", k.State, Options{PKCE: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.Validate(ctx, tc.id, tc.provider, tc.state, tc.opts)
			assert.ErrorIs(t, err, ErrInvalidState)
		})
	}

	// Los fallos no consumen el intento.
	_, err = g.Validate(ctx, a.ID, "apple", a.State, Options{Nonce: true})
	assert.NoError(t, err)
}

func TestValidate_Expired(t *testing.T) {
	ctx := context.Background()
	g := NewGuard(cache.NewMemory(""), 20*time.Millisecond)
	a, err := g.Start(ctx, "kakao", Options{})
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = g.Validate(ctx, a.ID, "kakao", a.State, Options{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDiscard_InvalidatesAttempt(t *testing.T) {
	g := NewGuard(cache.NewMemory(""), time.Minute)
	ctx := context.Background()

	a, err := g.Start(ctx, "kakao", Options{})
	require.NoError(t, err)
	require.NoError(t, g.Discard(ctx, a.ID))
	require.NoError(t, g.Discard(ctx, ""))

	_, err = g.Validate(ctx, a.ID, "kakao", a.State, Options{})
	assert.ErrorIs(t, err, ErrInvalidState)
}
