// Package storetest holds the conformance suite every storage backend runs.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/custodian/storage"
)

// NewStore constructs a fresh, empty Store for a test.
// The returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

var errAbort = errors.New("abort")

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGet", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			return tx.Put("a", []byte("one"))
		}))
		require.NoError(t, s.View(ctx, func(r storage.Reader) error {
			v, err := r.Get("a")
			require.NoError(t, err)
			assert.Equal(t, []byte("one"), v)
			_, err = r.Get("missing")
			assert.True(t, storage.IsNotFound(err))
			return nil
		}))
	})

	t.Run("ReadYourWrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			if err := tx.Put("k", []byte("v1")); err != nil {
				return err
			}
			v, err := tx.Get("k")
			if err != nil {
				return err
			}
			assert.Equal(t, []byte("v1"), v)
			return tx.Put("k", []byte("v2"))
		}))
		assertValue(t, s, "k", "v2")
	})

	t.Run("InsertIfAbsent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			return tx.Insert("serial", []byte{1})
		}))
		err := s.Update(ctx, func(tx storage.Tx) error {
			return tx.Insert("serial", []byte{2})
		})
		assert.ErrorIs(t, err, storage.ErrExists)
		assertValue(t, s, "serial", "\x01")

		// Insert sees writes made earlier in the same transaction.
		err = s.Update(ctx, func(tx storage.Tx) error {
			if err := tx.Put("fresh", []byte("x")); err != nil {
				return err
			}
			return tx.Insert("fresh", []byte("y"))
		})
		assert.ErrorIs(t, err, storage.ErrExists)
		assertMissing(t, s, "fresh")
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			return tx.Put("bal", []byte("10"))
		}))
		err := s.Update(ctx, func(tx storage.Tx) error {
			if err := tx.Put("bal", []byte("0")); err != nil {
				return err
			}
			if err := tx.Insert("record", []byte{1}); err != nil {
				return err
			}
			if _, err := tx.Append([]byte("event")); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)
		assertValue(t, s, "bal", "10")
		assertMissing(t, s, "record")

		entries, err := s.Entries(ctx, 0, 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("AppendOrdered", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 5; i++ {
			require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
				seq, err := tx.Append([]byte(fmt.Sprintf("e%d", i)))
				if err != nil {
					return err
				}
				assert.Equal(t, uint64(i+1), seq)
				return nil
			}))
		}
		all, err := s.Entries(ctx, 0, 100)
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i, e := range all {
			assert.Equal(t, uint64(i+1), e.Seq)
			assert.Equal(t, fmt.Sprintf("e%d", i), string(e.Value))
		}

		page, err := s.Entries(ctx, 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, uint64(3), page[0].Seq)
		assert.Equal(t, uint64(4), page[1].Seq)
	})

	t.Run("ConcurrentInsertSingleWinner", func(t *testing.T) {
		s := newStore(t)
		const n = 8
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = s.Update(ctx, func(tx storage.Tx) error {
					return tx.Insert("once", []byte{byte(i)})
				})
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, storage.ErrExists)
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("ConcurrentIncrementsSerialize", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
			return tx.Put("n", []byte{0})
		}))
		const n = 10
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Update(ctx, func(tx storage.Tx) error {
					v, err := tx.Get("n")
					if err != nil {
						return err
					}
					return tx.Put("n", []byte{v[0] + 1})
				}))
			}()
		}
		wg.Wait()
		assertValue(t, s, "n", string([]byte{n}))
	})

	t.Run("CanceledContext", func(t *testing.T) {
		s := newStore(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := s.Update(cctx, func(tx storage.Tx) error {
			return tx.Put("x", []byte("y"))
		})
		assert.ErrorIs(t, err, context.Canceled)
		assertMissing(t, s, "x")
	})
}

func assertValue(t *testing.T, s storage.Store, key, want string) {
	t.Helper()
	require.NoError(t, s.View(context.Background(), func(r storage.Reader) error {
		v, err := r.Get(key)
		require.NoError(t, err)
		assert.Equal(t, want, string(v))
		return nil
	}))
}

func assertMissing(t *testing.T, s storage.Store, key string) {
	t.Helper()
	require.NoError(t, s.View(context.Background(), func(r storage.Reader) error {
		_, err := r.Get(key)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	}))
}
