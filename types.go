package tau

import (
	"github.com/opencontainers/go-digest"

	"github.com/meigma/tau/internal/encoder"
	"github.com/meigma/tau/internal/walk"
)

// ArchiveExt is the conventional archive extension. The inner format is
// not POSIX tar.
const ArchiveExt = ".tar.xz"

// Fixed compression parameters.
const (
	// Level is the xz preset used for every archive.
	Level = encoder.DefaultLevel

	// BufferSize is the size of each encoder staging buffer.
	BufferSize = encoder.BufferSize
)

// InputKind classifies an input path.
type InputKind = walk.Kind

const (
	// KindFile is a regular file, archived in single-file mode.
	KindFile = walk.KindFile

	// KindDirectory is a directory, archived as a record stream.
	KindDirectory = walk.KindDir
)

// Result summarizes a finished archive.
type Result struct {
	// Mode is the kind of input that was archived.
	Mode InputKind

	// Records is the number of file records written. It is zero in
	// single-file mode, which writes no records.
	Records int

	// PayloadBytes is the number of file content bytes archived.
	PayloadBytes uint64

	// PlainBytes is the number of uncompressed bytes fed to the encoder,
	// including record headers.
	PlainBytes uint64

	// OutputBytes is the size of the compressed archive.
	OutputBytes uint64

	// Digest is the SHA-256 digest of the compressed archive. It is
	// informational; the archive itself carries only the xz CRC64.
	Digest digest.Digest
}
