package httpx

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andycostintoma/httpcore/internal/netx"
	"github.com/andycostintoma/httpcore/internal/ordmap"
)

// requestLine models the first line of an HTTP/1.x request.
type requestLine struct {
	Method     Method
	RequestURI string
	ProtoMajor int
	ProtoMinor int
}

// Proto returns the serialized protocol token, e.g. "HTTP/1.1".
func (r requestLine) Proto() string {
	return fmt.Sprintf("HTTP/%d.%d", r.ProtoMajor, r.ProtoMinor)
}

// Request represents a parsed HTTP/1.x request, handed off to a handler.
//
// Per spec, URL never retains the query string (it is split into Query)
// and Method is always one of the nine enumerated methods.
type Request struct {
	requestLine
	URL           *URL
	Header        Header
	Query         *ordmap.Map
	PathParams    *ordmap.Map
	Host          string
	RemoteAddr    string
	ContentLength int64
	Body          io.ReadCloser
	ctx           context.Context
}

// ParseLimits controls how many bytes can be read from a request line,
// a single header line, and how many header lines are tolerated.
type ParseLimits struct {
	MaxLineBytes   int
	MaxHeaderLines int
}

func (l ParseLimits) lineLimit() int {
	if l.MaxLineBytes > 0 {
		return l.MaxLineBytes
	}
	return 8192
}

// ParseRequest reads and parses the request line and header block from r.
// The body is not consumed here — callers attach it separately (see the
// request assembler), since the parser only ever sees a buffered view of
// the message start.
func ParseRequest(r *netx.CRLFFastReader, limits ParseLimits) (*Request, error) {
	line, _, err := r.ReadLine(limits.lineLimit())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncomplete, err)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf("%w: empty request line", ErrMalformed)
	}

	rl, err := parseRequestLine(string(line))
	if err != nil {
		return nil, err
	}

	u, err := ParseRequestURI(rl.RequestURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var hdr Header
	maxLines := limits.MaxHeaderLines
	for i := 0; ; i++ {
		if maxLines > 0 && i >= maxLines {
			return nil, fmt.Errorf("%w: too many header lines", ErrMalformed)
		}
		hline, _, err := r.ReadLine(limits.lineLimit())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIncomplete, err)
		}
		if len(hline) == 0 {
			break // blank line terminates the header block
		}
		key, val, ok := splitHeaderLine(string(hline))
		if !ok {
			return nil, fmt.Errorf("%w: bad header line %q", ErrMalformed, hline)
		}
		hdr.Add(key, val)
	}

	query, err := ParseQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	req := &Request{
		requestLine: rl,
		URL:         u,
		Header:      hdr,
		Query:       query,
		PathParams:  ordmap.New(ordmap.Ordinal),
		ctx:         context.Background(),
	}

	if u.Host != "" {
		req.Host = strings.ToLower(u.Host)
	} else if h := hdr.Get("Host"); h != "" {
		req.Host = strings.ToLower(h)
	}

	if cl := hdr.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64); err == nil && n >= 0 {
			req.ContentLength = n
		}
	}

	return req, nil
}

// splitHeaderLine splits "Name: value" into its field name (verbatim
// casing) and trimmed value.
func splitHeaderLine(line string) (key, value string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i <= 0 {
		return "", "", false
	}
	key = line[:i]
	value = strings.TrimSpace(line[i+1:])
	if !isValidFieldName(key) {
		return "", "", false
	}
	return key, value, true
}

// parseRequestWithContext is the context-aware variant of ParseRequest: it
// fails with ctx.Err() if ctx is already done and attaches ctx to the
// parsed request.
func parseRequestWithContext(ctx context.Context, r *netx.CRLFFastReader, limits ParseLimits) (*Request, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	req, err := ParseRequest(r, limits)
	if err != nil {
		return nil, err
	}
	req.ctx = ctx
	return req, nil
}

// ParseRequestWithContext parses a request with an explicit cancellation
// context. The request assembler (C4) calls ParseRequest instead and does
// not use this variant.
func ParseRequestWithContext(ctx context.Context, r *netx.CRLFFastReader, limits ParseLimits) (*Request, error) {
	return parseRequestWithContext(ctx, r, limits)
}

// parseRequestLine parses "METHOD SP Request-URI SP HTTP/x.y".
func parseRequestLine(line string) (rl requestLine, err error) {
	// Be tolerant of multiple spaces or tabs.
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return rl, fmt.Errorf("%w: %q", ErrMalformed, line)
	}

	methodTok := parts[0]
	target := parts[1]
	proto := parts[2]

	method, ok := parseMethod(methodTok)
	if !ok {
		return rl, fmt.Errorf("%w: unsupported method %q", ErrMalformed, methodTok)
	}

	if !strings.HasPrefix(proto, "HTTP/") {
		return rl, fmt.Errorf("%w: invalid protocol %q", ErrMalformed, proto)
	}
	ver := strings.TrimPrefix(proto, "HTTP/")
	dot := strings.IndexByte(ver, '.')
	if dot < 0 {
		return rl, fmt.Errorf("%w: invalid HTTP version %q", ErrMalformed, proto)
	}
	major, err1 := strconv.Atoi(ver[:dot])
	minor, err2 := strconv.Atoi(ver[dot+1:])
	if err1 != nil || err2 != nil {
		return rl, fmt.Errorf("%w: invalid HTTP version numbers %q", ErrMalformed, proto)
	}
	if major != 1 {
		return rl, fmt.Errorf("%w: HTTP/%d.%d", ErrVersionUnsupported, major, minor)
	}

	rl = requestLine{
		Method:     method,
		RequestURI: target,
		ProtoMajor: major,
		ProtoMinor: minor,
	}
	return rl, nil
}

// Context returns the request's context.
func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context replaced by ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	if r == nil {
		return nil
	}
	cp := *r
	cp.ctx = ctx
	return &cp
}

// ReadBody copies the request body into w. If the request carries a
// Content-Length or chunked Transfer-Encoding, the appropriate amount is
// copied; if neither is present, ReadBody copies nothing unless
// allowUnbounded is true, in which case it reads until EOF.
func (r *Request) ReadBody(w io.Writer, allowUnbounded bool) (int64, error) {
	if r.Body == nil {
		return 0, nil
	}
	chunked := strings.EqualFold(r.Header.Get("Transfer-Encoding"), "chunked")
	hasLength := r.Header.Get("Content-Length") != ""
	if !chunked && !hasLength && !allowUnbounded {
		return 0, nil
	}
	return io.Copy(w, r.Body)
}

// String returns a human-readable representation of the request line.
func (r *Request) String() string {
	if r == nil {
		return "<nil request>"
	}
	return fmt.Sprintf("%s %s %s", r.Method, r.RequestURI, r.Proto())
}
