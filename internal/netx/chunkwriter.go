package netx

import (
	"io"
	"strconv"
)

// ChunkedWriter wraps a response output stream when the application
// requests Transfer-Encoding: chunked. Each Write is framed as
// "<hex-length>\r\n<bytes>\r\n"; Close emits the terminating "0\r\n\r\n".
//
// Adapted from the fixed/chunked response-body strategies this module
// inherited for request bodies — the writer side mirrors the same framing
// the reader side already understands.
type ChunkedWriter struct {
	w io.Writer
}

// NewChunkedWriter returns a chunked-encoding writer over w.
func NewChunkedWriter(w io.Writer) *ChunkedWriter {
	return &ChunkedWriter{w: w}
}

// Write emits one chunk for p. A zero-length write is a no-op; the final
// zero-sized chunk is written by Close, not by a zero-length Write.
func (cw *ChunkedWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if _, err := io.WriteString(cw.w, strconv.FormatInt(int64(len(p)), 16)+"\r\n"); err != nil {
		return 0, err
	}
	n, err := cw.w.Write(p)
	if err != nil {
		return n, err
	}
	if _, err := io.WriteString(cw.w, "\r\n"); err != nil {
		return n, err
	}
	return n, nil
}

// Close writes the terminating zero-sized chunk.
func (cw *ChunkedWriter) Close() error {
	_, err := io.WriteString(cw.w, "0\r\n\r\n")
	return err
}
