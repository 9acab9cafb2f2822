// Package testutil holds helpers shared by the package tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math/rand" //nolint:gosec // deterministic test data
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"
)

// ErrSinkBroken is returned by FailingWriter once it starts failing.
var ErrSinkBroken = errors.New("testutil: sink broken")

// Record is one decoded archive record.
type Record struct {
	Path    string
	Payload []byte
}

// CreateFiles writes files (slash-separated relative paths) under dir.
func CreateFiles(t testing.TB, dir string, files map[string][]byte) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, content, 0o644))
	}
}

// RandomBytes returns n deterministic pseudo-random bytes.
func RandomBytes(n int, seed int64) []byte {
	buf := make([]byte, n)
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec // deterministic test data
	_, _ = rng.Read(buf)
	return buf
}

// DecodeXZ decompresses a complete xz stream and fails the test if it is
// not well formed.
func DecodeXZ(t testing.TB, data []byte) []byte {
	t.Helper()
	r, err := xz.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return out
}

// ParseRecords splits decompressed plaintext into records, checking every
// length field against the bytes that follow it. It does not share code
// with the archive reader.
func ParseRecords(t testing.TB, plain []byte) []Record {
	t.Helper()
	var out []Record
	for len(plain) > 0 {
		require.GreaterOrEqual(t, len(plain), 4, "truncated path length")
		pathLen := int(binary.NativeEndian.Uint32(plain))
		plain = plain[4:]
		require.GreaterOrEqual(t, len(plain), pathLen+8, "truncated path or size")
		path := string(plain[:pathLen])
		plain = plain[pathLen:]
		size := binary.NativeEndian.Uint64(plain)
		plain = plain[8:]
		require.GreaterOrEqual(t, uint64(len(plain)), size, "truncated payload for %q", path)
		out = append(out, Record{Path: path, Payload: bytes.Clone(plain[:size])})
		plain = plain[size:]
	}
	return out
}

// SortRecords orders records by path, canonicalizing traversal order.
func SortRecords(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		return strings.Compare(a.Path, b.Path)
	})
}

// RecordMap indexes records by slash-separated path.
func RecordMap(records []Record) map[string][]byte {
	m := make(map[string][]byte, len(records))
	for _, r := range records {
		m[filepath.ToSlash(r.Path)] = r.Payload
	}
	return m
}

// FailingWriter accepts OK successful writes, then fails every write.
type FailingWriter struct {
	OK     int
	Writes int
	N      int
}

// Write implements io.Writer.
func (w *FailingWriter) Write(p []byte) (int, error) {
	w.Writes++
	if w.Writes > w.OK {
		return 0, ErrSinkBroken
	}
	w.N += len(p)
	return len(p), nil
}
