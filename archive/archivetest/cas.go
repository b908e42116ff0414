// Package archivetest holds a behavioural suite every archive.CAS must pass.
package archivetest

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/archive"
)

// NewCAS returns a fresh, empty CAS isolated from other tests.
type NewCAS func(t *testing.T) archive.CAS

func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		c := newCAS(t)
		want := []byte("settled event bytes")

		id, err := c.Put(want)
		require.NoError(t, err)
		wantID, err := addressing.CID(want)
		require.NoError(t, err)
		assert.Equal(t, wantID, id)

		got, err := c.Get(id)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		c := newCAS(t)
		id1, err := c.Put([]byte("same bytes"))
		require.NoError(t, err)
		id2, err := c.Put([]byte("same bytes"))
		require.NoError(t, err)
		assert.Equal(t, id1, id2)
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		c := newCAS(t)
		b := []byte("missing")
		id, err := addressing.CID(b)
		require.NoError(t, err)

		assert.False(t, c.Has(id))
		_, err = c.Get(id)
		assert.True(t, archive.IsNotFound(err), "got %v", err)

		_, err = c.Put(b)
		require.NoError(t, err)
		assert.True(t, c.Has(id))
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		c := newCAS(t)
		var undef cid.Cid
		assert.False(t, c.Has(undef))
		_, err := c.Get(undef)
		assert.Error(t, err)
	})
}
