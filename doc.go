// Package tau compresses a regular file or a directory tree into a single
// xz archive.
//
// A regular file is compressed as is: the archive decompresses to the
// file's bytes. A directory becomes a stream of records, one per regular
// file beneath it, which is then compressed as one xz stream:
//
//	path length  uint32, host byte order
//	path         relative to the directory, platform separator
//	size         uint64, host byte order
//	payload      size bytes
//
// Records are concatenated with no magic number, count, or trailer; the
// end of the xz stream marks the end of the archive. The container is not
// POSIX tar, despite the conventional ".tar.xz" extension, and it is only
// portable between hosts of the same byte order.
//
// Compression is fixed: xz preset 6 with a CRC64 check, streamed through
// two 8 KiB staging buffers.
//
// # Quick Start
//
//	res, err := tau.CompressPath(ctx, "./src", "src.tar.xz",
//	    tau.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Records, res.OutputBytes, res.Digest)
//
// Reading a directory archive back:
//
//	r, err := tau.NewReader(f)
//	hdr, err := r.Next()
//	payload, err := io.ReadAll(r)
package tau
