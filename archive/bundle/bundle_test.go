package bundle_test

import (
	"archive/tar"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/custodian/addressing"
	"xdao.co/custodian/archive"
	"xdao.co/custodian/archive/bundle"
	"xdao.co/custodian/archive/localfs"
	"xdao.co/custodian/ledger"
)

func openDir(t *testing.T) *localfs.Dir {
	t.Helper()
	d, err := localfs.Open(t.TempDir())
	require.NoError(t, err)
	return d
}

func archived(t *testing.T, c archive.CAS, seq uint64, amount uint64) bundle.Ref {
	t.Helper()
	ev := ledger.Event{
		Seq:     seq,
		Op:      ledger.OpFreeze,
		Message: ledger.FreezeMessage(ledger.Serial{byte(seq)}, addressing.Derive("id", []byte("alice")), amount, 1_700_000_000),
		Asset:   addressing.Derive("asset", []byte("usdc")),
		Caller:  addressing.Derive("id", []byte("relayer")),
	}
	require.NoError(t, archive.Sink{CAS: c}.Publish(context.Background(), ev))
	id, err := ev.ID()
	require.NoError(t, err)
	return bundle.Ref{Seq: seq, CID: id}
}

func TestExportIsDeterministic(t *testing.T) {
	src := openDir(t)
	r1 := archived(t, src, 1, 10)
	r2 := archived(t, src, 2, 20)

	var a, b bytes.Buffer
	require.NoError(t, bundle.Export(&a, src, []bundle.Ref{r2, r1}))
	require.NoError(t, bundle.Export(&b, src, []bundle.Ref{r1, r2}))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestImportRoundTrip(t *testing.T) {
	src := openDir(t)
	refs := []bundle.Ref{archived(t, src, 1, 10), archived(t, src, 2, 20), archived(t, src, 3, 30)}

	var buf bytes.Buffer
	require.NoError(t, bundle.Export(&buf, src, refs))

	dst := openDir(t)
	got, err := bundle.Import(bytes.NewReader(buf.Bytes()), dst)
	require.NoError(t, err)
	assert.Equal(t, refs, got)
	for _, r := range refs {
		ev, err := archive.Load(dst, r.CID)
		require.NoError(t, err)
		assert.Equal(t, ledger.OpFreeze, ev.Op)
	}
}

func TestExportRejects(t *testing.T) {
	src := openDir(t)
	r := archived(t, src, 1, 10)

	err := bundle.Export(&bytes.Buffer{}, src, []bundle.Ref{r, {Seq: 1, CID: r.CID}})
	assert.ErrorContains(t, err, "duplicate seq")

	missing, err := addressing.CID([]byte("never archived"))
	require.NoError(t, err)
	err = bundle.Export(&bytes.Buffer{}, src, []bundle.Ref{{Seq: 2, CID: missing}})
	assert.ErrorIs(t, err, archive.ErrNotFound)

	bogus, err := src.Put([]byte("not an event"))
	require.NoError(t, err)
	err = bundle.Export(&bytes.Buffer{}, src, []bundle.Ref{{Seq: 3, CID: bogus}})
	assert.Error(t, err)
}

func tarOf(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for name, content := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(content)), Typeflag: tar.TypeReg}))
		_, err := tw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func TestImportRejectsCIDMismatch(t *testing.T) {
	other, err := addressing.CID([]byte("other"))
	require.NoError(t, err)
	raw := tarOf(t, map[string][]byte{"events/" + other.String(): []byte("good")})

	_, err = bundle.Import(bytes.NewReader(raw), openDir(t))
	assert.ErrorIs(t, err, archive.ErrCIDMismatch)
}

func TestImportRejectsUnknownAndMissingIndex(t *testing.T) {
	_, err := bundle.Import(bytes.NewReader(tarOf(t, map[string][]byte{"../escape": []byte("x")})), openDir(t))
	assert.ErrorContains(t, err, "unknown entry")

	_, err = bundle.Import(bytes.NewReader(tarOf(t, nil)), openDir(t))
	assert.ErrorContains(t, err, "missing index")

	_, err = bundle.Import(bytes.NewReader(tarOf(t, map[string][]byte{"index.json": []byte(`{"version":9,"events":[]}`)})), openDir(t))
	assert.ErrorContains(t, err, "unsupported version")
}
