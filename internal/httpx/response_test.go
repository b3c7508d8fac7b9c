package httpx

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteFixedLengthResponse(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(&buf, 1)
	if err := resp.WriteBodyBytes([]byte("hello world"), "text/plain"); err != nil {
		t.Fatal(err)
	}

	got := buf.String()
	if !strings.HasPrefix(got, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("bad status line: %q", got)
	}
	if !strings.Contains(got, "Content-Type: text/plain\r\n") {
		t.Fatalf("missing Content-Type header in:\n%s", got)
	}
	if !strings.Contains(got, "Content-Length: 11\r\n") {
		t.Fatalf("missing Content-Length header in:\n%s", got)
	}
	if !strings.HasSuffix(got, "\r\n\r\nhello world") {
		t.Fatalf("body missing or malformed, got:\n%s", got)
	}
}

func TestWriteChunkedResponse(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(&buf, 1)
	resp.SetHeader("Transfer-Encoding", "chunked")
	if err := resp.FlushHeaders(); err != nil {
		t.Fatal(err)
	}
	body := resp.bodyWriter
	if _, err := body.Write([]byte("Wiki")); err != nil {
		t.Fatal(err)
	}
	if _, err := body.Write([]byte("pedia")); err != nil {
		t.Fatal(err)
	}
	if err := resp.Close(); err != nil {
		t.Fatal(err)
	}

	want := "" +
		"HTTP/1.1 200 OK\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"4\r\nWiki\r\n" +
		"5\r\npedia\r\n" +
		"0\r\n\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("mismatch:\n--- got ---\n%q\n--- want ---\n%q", got, want)
	}
}

func TestWriteBodyStringDefaultsContentType(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(&buf, 1)
	if err := resp.WriteBodyString("Hello world!", ""); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "Content-Type: text/plain; charset=utf-8\r\n") {
		t.Fatalf("missing default content type, got:\n%s", got)
	}
	if !strings.HasSuffix(got, "Hello world!") {
		t.Fatalf("body missing, got:\n%s", got)
	}
}

func TestWriteBodyStreams(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(&buf, 1)
	if err := resp.WriteBody(strings.NewReader("abc"), 3, "text/plain"); err != nil {
		t.Fatal(err)
	}
	want := "" +
		"HTTP/1.1 200 OK\r\n" +
		"Content-Length: 3\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"abc"
	if got := buf.String(); got != want {
		t.Fatalf("mismatch:\n--- got ---\n%q\n--- want ---\n%q", got, want)
	}
}

func TestResponseMutationIgnoredAfterFlush(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(&buf, 1)
	var warned string
	resp.OnWarn(func(format string, args ...any) { warned = format })

	if err := resp.FlushHeaders(); err != nil {
		t.Fatal(err)
	}
	resp.SetStatus(404)
	resp.SetHeader("X-Late", "nope")

	if resp.StatusCode() != 200 {
		t.Fatalf("status mutated after flush: %d", resp.StatusCode())
	}
	if resp.HeaderGet("X-Late") != "" {
		t.Fatalf("header mutated after flush")
	}
	if warned == "" {
		t.Fatalf("expected a warning event on post-flush mutation")
	}
}

func TestResponseInvalidStatusCoercesTo500(t *testing.T) {
	var buf bytes.Buffer
	resp := NewResponse(&buf, 1)
	resp.SetStatus(999)
	if resp.StatusCode() != 500 {
		t.Fatalf("expected coercion to 500, got %d", resp.StatusCode())
	}
}
