//go:build integration

package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/tau"
)

// xzImage ships xz-utils in its base layer.
const xzImage = "debian:bookworm-slim"

const containerArchive = "/work/archive.xz"

// runXZ copies archive into a fresh container, runs script there with sh,
// and returns its exit code and combined output.
func runXZ(tb testing.TB, archive, script string) (int, string) {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image: xzImage,
		Cmd:   []string{"sh", "-c", script},
		Files: []testcontainers.ContainerFile{{
			HostFilePath:      archive,
			ContainerFilePath: containerArchive,
			FileMode:          0o644,
		}},
		WaitingFor: wait.ForExit(),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(tb, err, "start xz container")
	tb.Cleanup(func() { _ = container.Terminate(context.Background()) })

	state, err := container.State(ctx)
	require.NoError(tb, err, "container state")

	logs, err := container.Logs(ctx)
	require.NoError(tb, err, "container logs")
	defer logs.Close()
	out, err := io.ReadAll(logs)
	require.NoError(tb, err, "read container logs")

	return state.ExitCode, strings.TrimSpace(string(out))
}

// xzDecompress returns the plaintext of archive as decoded by the reference
// xz tool, hex-encoded by od to survive the log stream.
func xzDecompress(tb testing.TB, archive string) []byte {
	tb.Helper()

	code, out := runXZ(tb, archive, fmt.Sprintf("xz --decompress --stdout %s | od -An -v -tx1", containerArchive))
	require.Zero(tb, code, out)
	return decodeOD(tb, out)
}

func decodeOD(tb testing.TB, out string) []byte {
	tb.Helper()
	var buf bytes.Buffer
	for _, field := range strings.Fields(out) {
		var b byte
		_, err := fmt.Sscanf(field, "%02x", &b)
		require.NoError(tb, err, "parse od output %q", field)
		buf.WriteByte(b)
	}
	return buf.Bytes()
}

// --- Test Data Helpers ---

// createTestFiles writes test files to a directory.
func createTestFiles(tb testing.TB, dir string, files map[string][]byte) {
	tb.Helper()
	for path, content := range files {
		fullPath := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(tb, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(tb, os.WriteFile(fullPath, content, 0o644))
	}
}

// compressTree writes files under a fresh directory and archives it.
func compressTree(tb testing.TB, files map[string][]byte) string {
	tb.Helper()
	dir := tb.TempDir()
	createTestFiles(tb, dir, files)
	out := filepath.Join(tb.TempDir(), "archive"+tau.ArchiveExt)
	_, err := tau.CompressPath(context.Background(), dir, out)
	require.NoError(tb, err, "CompressPath")
	return out
}

// makeCompressibleContent creates content that benefits from compression.
func makeCompressibleContent(size int) []byte {
	pattern := []byte("This is a repeating pattern for compression testing. ")
	result := make([]byte, 0, size)
	for len(result) < size {
		result = append(result, pattern...)
	}
	return result[:size]
}

// makeRandomContent creates random binary content.
func makeRandomContent(size int) []byte {
	data := make([]byte, size)
	_, _ = rand.Read(data)
	return data
}

// --- Standard Test Fixtures ---

// smallArchive is a simple flat archive with 3 small files.
var smallArchive = map[string][]byte{
	"hello.txt":   []byte("Hello, World!"),
	"readme.md":   []byte("# Test Archive\n\nThis is a test."),
	"config.json": []byte(`{"version": 1, "name": "test"}`),
}

// nestedArchive contains nested directories.
var nestedArchive = map[string][]byte{
	"root.txt":          []byte("root file"),
	"dir1/a.txt":        []byte("file a in dir1"),
	"dir1/b.txt":        []byte("file b in dir1"),
	"dir1/sub/c.txt":    []byte("file c in dir1/sub"),
	"dir2/x.txt":        []byte("file x in dir2"),
	"dir2/deep/y.txt":   []byte("file y in dir2/deep"),
	"dir2/deep/z.txt":   []byte("file z in dir2/deep"),
	"empty/placeholder": []byte(""),
}

// compressibleArchive contains files that benefit significantly from compression.
var compressibleArchive = map[string][]byte{
	"large.txt":     makeCompressibleContent(100 * 1024), // 100KB
	"small.txt":     []byte("tiny"),
	"repeated.json": []byte(`{"data": "` + string(makeCompressibleContent(10*1024)) + `"}`),
}

// --- Assertion Helpers ---

// recordReader is satisfied by tau.Reader and frame.Reader.
type recordReader interface {
	Next() (*tau.Header, error)
	Read(p []byte) (int, error)
}

// readArchive decodes every record of a directory archive with tau.Reader.
func readArchive(tb testing.TB, compressed io.Reader) map[string][]byte {
	tb.Helper()

	r, err := tau.NewReader(compressed)
	require.NoError(tb, err, "NewReader")
	return collect(tb, r)
}

// collect drains r into a map keyed by slash-separated path.
func collect(tb testing.TB, r recordReader) map[string][]byte {
	tb.Helper()

	got := map[string][]byte{}
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			return got
		}
		require.NoError(tb, err, "Next")
		content, err := io.ReadAll(r)
		require.NoError(tb, err, "read payload of %q", hdr.Path)
		got[filepath.ToSlash(hdr.Path)] = content
	}
}

// assertFilesMatch verifies that decoded records match the expected files.
func assertFilesMatch(tb testing.TB, got, expected map[string][]byte) {
	tb.Helper()

	require.Len(tb, got, len(expected), "record count")
	for path, expectedContent := range expected {
		gotContent, ok := got[path]
		require.True(tb, ok, "missing record %q", path)
		require.Equal(tb, expectedContent, gotContent, "content mismatch for %q", path)
	}
}
