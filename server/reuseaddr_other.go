//go:build !unix

package server

import (
	"context"
	"fmt"
	"net"
	"syscall"
)

// reuseAddrControl is a no-op on platforms without SO_REUSEADDR socket
// control plumbed through golang.org/x/sys/unix.
func reuseAddrControl(_, _ string, _ syscall.RawConn) error { return nil }

// listenTCP falls back to the portable net.ListenConfig, which does not
// expose listen(2)'s backlog argument; backlog is accepted for API
// parity but left to the runtime's default on non-unix platforms.
// net.ListenConfig.Control runs on the raw socket after it is created but
// before bind(2), the same point spec.md §4.7 steps 1-3 put pre-bind
// hooks and SO_REUSEADDR at, so both run from there.
func listenTCP(hostname string, port int, reuseAddress bool, _ int, preBind []func(ListenerHandle)) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			if reuseAddress {
				if err := reuseAddrControl(network, address, c); err != nil {
					return err
				}
			}
			if len(preBind) == 0 {
				return nil
			}
			return c.Control(func(fd uintptr) {
				for _, hook := range preBind {
					hook(fdHandle(fd))
				}
			})
		},
	}
	return lc.Listen(context.Background(), "tcp", fmt.Sprintf("%s:%d", hostname, port))
}
