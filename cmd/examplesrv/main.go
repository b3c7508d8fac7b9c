// Command examplesrv wires a handler and a Config together, demonstrating
// that httpcore is meant to be embedded into a consuming application
// rather than run as a standalone server. It is not part of the library
// surface.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/andycostintoma/httpcore/internal/httpx"
	"github.com/andycostintoma/httpcore/internal/logging"
	"github.com/andycostintoma/httpcore/internal/ws"
	"github.com/andycostintoma/httpcore/server"
)

func main() {
	hostname := flag.String("hostname", "127.0.0.1", "bind address")
	port := flag.Int("port", 8080, "bind port")
	withWS := flag.Bool("websockets", false, "enable the /ws echo endpoint")
	flag.Parse()

	log := logging.New(os.Stderr)

	cfg := server.NewConfig(
		server.WithHostname(*hostname),
		server.WithPort(*port),
		server.WithDefaultHeader("Server", "httpcore/examplesrv"),
		server.WithWebSockets(*withWS),
	)

	app := &application{}
	srv := server.New(cfg, server.HandlerFunc(app.handle), nil, log)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "examplesrv: "+err.Error())
		os.Exit(1)
	}
}

// application holds no server state of its own; the /ws route recovers
// the WebSocket registry from the request's context instead of a
// package-level global or a back-reference to the server.
type application struct{}

func (a *application) handle(req *httpx.Request, resp *httpx.Response) {
	switch req.URL.Path {
	case "/":
		_ = resp.WriteBodyString("Testing server", "")
	case "/sqrt":
		handleSqrt(req, resp)
	case "/ws":
		a.handleUpgrade(req, resp)
	default:
		resp.SetStatus(404)
		_ = resp.WriteBodyString("not found", "")
	}
}

func handleSqrt(req *httpx.Request, resp *httpx.Response) {
	var body [32]byte
	n, err := req.ReadBody(sliceWriter{body[:]}, false)
	if err != nil || n == 0 {
		resp.SetStatus(400)
		_ = resp.WriteBodyString("missing body", "")
		return
	}
	var f float64
	if _, err := fmt.Sscanf(string(body[:n]), "%f", &f); err != nil || f < 0 {
		resp.SetStatus(400)
		_ = resp.WriteBodyString("bad input", "")
		return
	}
	_ = resp.WriteBodyString(fmt.Sprintf("%g", sqrt(f)), "")
}

func sqrt(x float64) float64 {
	if x == 0 {
		return 0
	}
	z := x
	for i := 0; i < 40; i++ {
		z -= (z*z - x) / (2 * z)
	}
	return z
}

// handleUpgrade demonstrates taking over a connection: it recovers the
// net.Conn from the response's raw stream and hands it to ws.Upgrade,
// registering an echo MessageHandler on the server's WebSocket registry.
func (a *application) handleUpgrade(req *httpx.Request, resp *httpx.Response) {
	reg, ok := ws.RegistryFromContext(req.Context())
	if !ok {
		resp.SetStatus(400)
		_ = resp.WriteBodyString("websockets not enabled", "")
		return
	}
	conn, ok := resp.Raw().(net.Conn)
	if !ok {
		resp.SetStatus(500)
		_ = resp.WriteBodyString("connection does not support upgrade", "")
		return
	}
	if _, err := ws.Upgrade(req, resp, conn, &echoHandler{}, reg); err != nil {
		resp.SetStatus(400)
		_ = resp.WriteBodyString(err.Error(), "")
	}
}

// echoHandler is a minimal ws.MessageHandler that sends every received
// text or binary message back to its sender.
type echoHandler struct{}

func (echoHandler) OnText(conn *ws.Connection, msg string) { _ = conn.SendText(msg) }
func (echoHandler) OnBinary(conn *ws.Connection, msg []byte) {
	_ = conn.SendBinary(msg)
}
func (echoHandler) OnClose(conn *ws.Connection, code int, reason string) {}
func (echoHandler) OnConnectionClosed(conn *ws.Connection)               {}

type sliceWriter struct{ buf []byte }

func (w sliceWriter) Write(p []byte) (int, error) {
	n := copy(w.buf, p)
	return n, nil
}
