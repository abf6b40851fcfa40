package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lattice/pkg/adapters/memory"
	"github.com/aretw0/lattice/pkg/domain"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	mw, err := middleware.NewPIIMiddleware([]string{"password", "ssn"})
	require.NoError(t, err)
	store := mw(memory.NewStore())
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s", "username", domain.Str("jdoe")))
	require.NoError(t, store.Set(ctx, "s", "user_password", domain.Str("secret123")))
	require.NoError(t, store.Set(ctx, "s", "details", domain.MustFromAny(map[string]any{
		"address": "123 St",
		"ids":     map[string]any{"ssn_number": "999-99-9999"},
	})))

	v, err := store.Get(ctx, "s", "username")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", domain.AsString(v, ""))

	v, err = store.Get(ctx, "s", "user_password")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, domain.AsString(v, ""))

	v, err = store.Get(ctx, "s", "details")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"address": "123 St",
		"ids":     map[string]any{"ssn_number": middleware.Mask},
	}, domain.Raw(v))

	v, err = store.Update(ctx, "s", "password", func(domain.Value) (domain.Value, error) {
		return domain.Str("hunter2"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, domain.AsString(v, ""))
}

func TestPIIMiddleware_InvalidPattern(t *testing.T) {
	_, err := middleware.NewPIIMiddleware([]string{"("})
	assert.Error(t, err)
}

func TestChain(t *testing.T) {
	pii, err := middleware.NewPIIMiddleware([]string{"secret"})
	require.NoError(t, err)
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	underlying := memory.NewStore()
	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "s", "secret", domain.Str("x")))
	v, err := store.Get(ctx, "s", "secret")
	require.NoError(t, err)
	assert.Equal(t, middleware.Mask, domain.AsString(v, ""))

	raw, err := underlying.Get(ctx, "s", "secret")
	require.NoError(t, err)
	assert.NotEqual(t, middleware.Mask, domain.AsString(raw, ""))
}
