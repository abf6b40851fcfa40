package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreFactory builds a fresh store limited to maxEntries keys per script (0 means unlimited).
type StoreFactory func(t *testing.T, maxEntries int) StateStore

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, newStore StoreFactory) {
	ctx := context.Background()
	scriptID := "contract-" + time.Now().Format("20060102150405")

	t.Run("Set and Get", func(t *testing.T) {
		store := newStore(t, 0)
		require.NoError(t, store.Set(ctx, scriptID, "greeting", domain.Str("hi")))
		require.NoError(t, store.Set(ctx, scriptID, "pos", domain.Vector3(1, 2, 3)))

		got, err := store.Get(ctx, scriptID, "greeting")
		require.NoError(t, err)
		assert.Equal(t, "hi", domain.AsString(got, ""))

		got, err = store.Get(ctx, scriptID, "pos")
		require.NoError(t, err)
		assert.True(t, domain.Equal(domain.Vector3(1, 2, 3), got))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		store := newStore(t, 0)
		_, err := store.Get(ctx, scriptID, "missing")
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("Scripts Are Isolated", func(t *testing.T) {
		store := newStore(t, 0)
		require.NoError(t, store.Set(ctx, scriptID+"-a", "k", domain.Number(1)))
		_, err := store.Get(ctx, scriptID+"-b", "k")
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("GetOrCreate", func(t *testing.T) {
		store := newStore(t, 0)
		calls := 0
		create := func() domain.Value {
			calls++
			return domain.Number(7)
		}

		v, err := store.GetOrCreate(ctx, scriptID, "lazy", create)
		require.NoError(t, err)
		assert.Equal(t, 7.0, domain.AsNumber(v, 0))

		v, err = store.GetOrCreate(ctx, scriptID, "lazy", create)
		require.NoError(t, err)
		assert.Equal(t, 7.0, domain.AsNumber(v, 0))
		assert.Equal(t, 1, calls)
	})

	t.Run("GetOrCreate Is Atomic", func(t *testing.T) {
		store := newStore(t, 0)
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			results = map[float64]bool{}
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := store.GetOrCreate(ctx, scriptID, "race", func() domain.Value {
					return domain.Number(float64(i))
				})
				if assert.NoError(t, err) {
					mu.Lock()
					results[domain.AsNumber(v, -1)] = true
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()
		assert.Len(t, results, 1, "every caller must observe the same winner")
	})

	t.Run("Update Is Atomic", func(t *testing.T) {
		store := newStore(t, 0)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Update(ctx, scriptID, "counter", func(cur domain.Value) (domain.Value, error) {
					return domain.Number(domain.AsNumber(cur, 0) + 1), nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		v, err := store.Get(ctx, scriptID, "counter")
		require.NoError(t, err)
		assert.Equal(t, 20.0, domain.AsNumber(v, 0))
	})

	t.Run("Delete Keys Clear", func(t *testing.T) {
		store := newStore(t, 0)
		for _, k := range []string{"b", "a", "c"} {
			require.NoError(t, store.Set(ctx, scriptID, k, domain.Bool(true)))
		}

		keys, err := store.Keys(ctx, scriptID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, keys)

		require.NoError(t, store.Delete(ctx, scriptID, "b"))
		_, err = store.Get(ctx, scriptID, "b")
		assert.ErrorIs(t, err, domain.ErrStateNotFound)

		require.NoError(t, store.Clear(ctx, scriptID))
		keys, err = store.Keys(ctx, scriptID)
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("Entry Quota", func(t *testing.T) {
		store := newStore(t, 2)
		require.NoError(t, store.Set(ctx, scriptID, "one", domain.Number(1)))
		require.NoError(t, store.Set(ctx, scriptID, "two", domain.Number(2)))

		err := store.Set(ctx, scriptID, "three", domain.Number(3))
		assert.ErrorIs(t, err, domain.ErrStateQuotaExceeded)

		_, err = store.GetOrCreate(ctx, scriptID, "four", func() domain.Value { return domain.Number(4) })
		assert.ErrorIs(t, err, domain.ErrStateQuotaExceeded)

		// Overwriting an existing key stays within quota.
		assert.NoError(t, store.Set(ctx, scriptID, "one", domain.Number(10)))
	})
}

// RunScriptLoaderContract verifies a ScriptLoader serves exactly the documents in setupData.
func RunScriptLoaderContract(t *testing.T, loader ScriptLoader, setupData map[string][]byte) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load Success", func(t *testing.T) {
		for id, want := range setupData {
			content, err := loader.Load(ctx, id)
			require.NoError(t, err, "loading %s", id)
			assert.Equal(t, string(want), string(content))
		}
	})

	t.Run("Load Not Found", func(t *testing.T) {
		_, err := loader.Load(ctx, "non-existent-script")
		assert.ErrorIs(t, err, domain.ErrScriptNotFound)
	})

	t.Run("List", func(t *testing.T) {
		ids, err := loader.List(ctx)
		require.NoError(t, err)
		require.Len(t, ids, len(setupData))
		assert.IsIncreasing(t, ids)
		for id := range setupData {
			assert.Contains(t, ids, id)
		}
	})
}
