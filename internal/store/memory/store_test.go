package memory

import (
	"context"
	"testing"

	"kentj-backend/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, s.Set(ctx, "k", []byte("v2")))
	got, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "k"))
}

func TestStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := New()

	buf := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", buf))
	buf[0] = 'x'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := New()

	type record struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	require.NoError(t, store.SetJSON(ctx, s, "rec", record{Name: "kent", Count: 3}))

	var out record
	require.NoError(t, store.GetJSON(ctx, s, "rec", &out))
	assert.Equal(t, record{Name: "kent", Count: 3}, out)

	require.NoError(t, s.Set(ctx, "bad", []byte("{")))
	assert.Error(t, store.GetJSON(ctx, s, "bad", &out))
}
