package tau

// ProgressEvent represents a progress update during archive creation.
type ProgressEvent struct {
	// Stage identifies the current phase of the session.
	Stage ProgressStage

	// Path is the file just archived, if applicable.
	Path string

	// BytesDone is the number of payload bytes read so far.
	BytesDone uint64

	// BytesTotal is the total payload size found during enumeration.
	// Zero indicates the total is unknown.
	BytesTotal uint64

	// FilesDone is the number of files archived so far.
	FilesDone int

	// FilesTotal is the number of files found during enumeration.
	FilesTotal int
}

// ProgressStage identifies the current phase of a session.
type ProgressStage uint8

const (
	// StageEnumerating indicates the directory tree is being walked.
	StageEnumerating ProgressStage = iota

	// StageCompressing indicates file contents are being compressed.
	StageCompressing

	// StageFinishing indicates the stream is being terminated and flushed.
	StageFinishing
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageEnumerating:
		return "enumerating"
	case StageCompressing:
		return "compressing"
	case StageFinishing:
		return "finishing"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates.
type ProgressFunc func(ProgressEvent)
