package httpx

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andycostintoma/httpcore/internal/netx"
)

// Response is a mutable record of status, headers, and a writable body
// stream. It transitions from unflushed to flushed on the first body write
// or an explicit FlushHeaders call; after that, status and header mutation
// attempts are silently ignored (a warning event fires through OnWarn).
type Response struct {
	w          io.Writer
	protoMinor int
	statusCode int
	statusText string
	header     Header
	flushed    bool
	bodyWriter io.Writer
	onWarn     func(format string, args ...any)
}

// NewResponse returns a Response writing to w, defaulting to 200 OK and an
// empty header set.
func NewResponse(w io.Writer, protoMinor int) *Response {
	return &Response{
		w:          w,
		protoMinor: protoMinor,
		statusCode: 200,
		statusText: StatusText(200),
	}
}

// OnWarn registers a sink for warning events emitted on post-flush mutation
// attempts. A nil fn (the default) drops these silently.
func (r *Response) OnWarn(fn func(format string, args ...any)) {
	r.onWarn = fn
}

func (r *Response) warn(format string, args ...any) {
	if r.onWarn != nil {
		r.onWarn(format, args...)
	}
}

// Flushed reports whether the status line and headers have been written.
func (r *Response) Flushed() bool { return r.flushed }

// Raw returns the underlying writable stream the response was
// constructed over. A WebSocket upgrade handler uses this to recover
// the net.Conn so it can hand the socket to the WebSocket registry
// after FlushHeaders writes the 101 response.
func (r *Response) Raw() io.Writer { return r.w }

// StatusCode returns the current (possibly default) status code.
func (r *Response) StatusCode() int { return r.statusCode }

// StatusText returns the reason phrase paired with StatusCode.
func (r *Response) StatusText() string { return r.statusText }

// SetStatus sets the response status, provided headers have not flushed
// yet. code must be one of the enumerated codes in the status table;
// otherwise it is coerced to 500.
func (r *Response) SetStatus(code int) {
	if r.flushed {
		r.warn("httpx: SetStatus(%d) ignored: headers already flushed", code)
		return
	}
	text := StatusText(code)
	if text == "" {
		code, text = 500, StatusText(500)
	}
	r.statusCode, r.statusText = code, text
}

// SetHeader replaces all values for key (case-insensitive), before flush.
func (r *Response) SetHeader(key, value string) {
	if r.flushed {
		r.warn("httpx: SetHeader(%q) ignored: headers already flushed", key)
		return
	}
	r.header.Set(key, value)
}

// AddHeader appends a value for key, before flush.
func (r *Response) AddHeader(key, value string) {
	if r.flushed {
		r.warn("httpx: AddHeader(%q) ignored: headers already flushed", key)
		return
	}
	r.header.Add(key, value)
}

// HeaderGet returns the first value for key (case-insensitive).
func (r *Response) HeaderGet(key string) string { return r.header.Get(key) }

// HeaderValues returns all values for key (case-insensitive).
func (r *Response) HeaderValues(key string) []string { return r.header.Values(key) }

// FlushHeaders writes the status line and header block if not already
// flushed. After this call, status and headers are immutable.
func (r *Response) FlushHeaders() error {
	if r.flushed {
		return nil
	}
	r.flushed = true

	statusLine := fmt.Sprintf("HTTP/1.%d %d %s\r\n", r.protoMinor, r.statusCode, r.statusText)
	if _, err := io.WriteString(r.w, statusLine); err != nil {
		return err
	}
	if err := r.header.Write(r.w); err != nil {
		return err
	}

	if strings.EqualFold(r.header.Get("Transfer-Encoding"), "chunked") {
		r.bodyWriter = netx.NewChunkedWriter(r.w)
	} else {
		r.bodyWriter = r.w
	}
	return nil
}

// bodyBufSize is the buffered-copy chunk size used by WriteBody.
const bodyBufSize = 8 * 1024

// WriteBodyBytes sets Content-Length and Content-Type (if unflushed),
// flushes, then writes b in full.
func (r *Response) WriteBodyBytes(b []byte, contentType string) error {
	if !r.flushed {
		r.SetHeader("Content-Length", strconv.Itoa(len(b)))
		if contentType != "" {
			r.SetHeader("Content-Type", contentType)
		}
		if err := r.FlushHeaders(); err != nil {
			return err
		}
	}
	_, err := r.bodyWriter.Write(b)
	return err
}

// WriteBodyString is the UTF-8 specialization of WriteBodyBytes. An empty
// contentType defaults to "text/plain; charset=utf-8".
func (r *Response) WriteBodyString(s string, contentType string) error {
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	return r.WriteBodyBytes([]byte(s), contentType)
}

// WriteBody streams a producer of known length, copying in 8 KiB chunks.
func (r *Response) WriteBody(body io.Reader, size int64, contentType string) error {
	if !r.flushed {
		r.SetHeader("Content-Length", strconv.FormatInt(size, 10))
		if contentType != "" {
			r.SetHeader("Content-Type", contentType)
		}
		if err := r.FlushHeaders(); err != nil {
			return err
		}
	}
	buf := make([]byte, bodyBufSize)
	_, err := io.CopyBuffer(r.bodyWriter, body, buf)
	return err
}

// Close finalizes a chunked body (emitting the terminating 0-sized chunk);
// it is a no-op for fixed-length or until-close bodies.
func (r *Response) Close() error {
	if cw, ok := r.bodyWriter.(*netx.ChunkedWriter); ok {
		return cw.Close()
	}
	return nil
}
