package tau

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tau/internal/testutil"
)

func readAll(t *testing.T, archive []byte) map[string][]byte {
	t.Helper()
	r, err := NewReader(bytes.NewReader(archive))
	require.NoError(t, err)

	got := map[string][]byte{}
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			return got
		}
		require.NoError(t, err)
		payload, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Len(t, payload, int(hdr.Size)) //nolint:gosec // test sizes are small
		got[hdr.Path] = payload
	}
}

func TestReader_RoundTrip(t *testing.T) {
	t.Parallel()

	files := map[string][]byte{
		"a.txt":       []byte("alpha"),
		"empty":       {},
		"sub/b.bin":   testutil.RandomBytes(2*BufferSize+5, 4),
		"sub/x/y/z.c": []byte("int main;"),
	}
	dir := t.TempDir()
	testutil.CreateFiles(t, dir, files)

	archive, _ := compressToBuffer(t, dir)
	got := readAll(t, archive)

	assert.Equal(t, files, testutil.RecordMap(toRecords(got)))
}

func TestReader_SkipsUnreadPayloads(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.CreateFiles(t, dir, map[string][]byte{
		"a": bytes.Repeat([]byte("a"), 3*BufferSize),
		"b": []byte("b"),
		"c": []byte("c"),
	})
	archive, res := compressToBuffer(t, dir)

	r, err := NewReader(bytes.NewReader(archive))
	require.NoError(t, err)
	n := 0
	for {
		_, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, res.Records, n)
}

func TestReader_EmptyArchive(t *testing.T) {
	t.Parallel()

	archive, _ := compressToBuffer(t, t.TempDir())
	r, err := NewReader(bytes.NewReader(archive))
	require.NoError(t, err)

	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestNewReader_NotXZ(t *testing.T) {
	t.Parallel()

	_, err := NewReader(bytes.NewReader([]byte("definitely not xz")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open xz stream")
}

func toRecords(m map[string][]byte) []testutil.Record {
	out := make([]testutil.Record, 0, len(m))
	for path, payload := range m {
		out = append(out, testutil.Record{Path: path, Payload: payload})
	}
	return out
}
