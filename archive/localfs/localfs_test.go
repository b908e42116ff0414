package localfs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/custodian/archive"
	"xdao.co/custodian/archive/archivetest"
)

func TestConformance(t *testing.T) {
	archivetest.RunCASConformance(t, func(t *testing.T) archive.CAS {
		d, err := Open(t.TempDir())
		require.NoError(t, err)
		return d
	})
}

func TestOpenRequiresRoot(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestCorruptedObjectIsDetected(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	id, err := d.Put([]byte("original"))
	require.NoError(t, err)

	path := d.pathFor(id)
	require.NoError(t, os.Chmod(path, 0o644))
	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0o644))

	_, err = d.Get(id)
	assert.ErrorIs(t, err, archive.ErrCIDMismatch)

	_, err = d.Put([]byte("original"))
	assert.ErrorIs(t, err, archive.ErrImmutable)
}

func TestObjectsAreReadOnly(t *testing.T) {
	d, err := Open(t.TempDir())
	require.NoError(t, err)

	id, err := d.Put([]byte("frozen"))
	require.NoError(t, err)

	info, err := os.Stat(d.pathFor(id))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o444), info.Mode().Perm())
}
