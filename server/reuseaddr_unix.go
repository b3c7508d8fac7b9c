//go:build unix

package server

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listenTCP binds a TCP listener by hand through golang.org/x/sys/unix
// so the configured connection queue size reaches listen(2)'s backlog
// argument, which net.Listen does not expose portably. preBind hooks run
// between socket allocation and bind(2), per spec.md §4.7 steps 1-3.
func listenTCP(hostname string, port int, reuseAddress bool, backlog int, preBind []func(ListenerHandle)) (net.Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return nil, fmt.Errorf("server: socket: %w", err)
	}

	if reuseAddress {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("server: setsockopt SO_REUSEADDR: %w", err)
		}
	}

	for _, hook := range preBind {
		hook(fdHandle(fd))
	}

	ip := net.ParseIP(hostname)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip4", hostname)
		if err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("server: resolve %q: %w", hostname, err)
		}
		ip = resolved.IP
	}
	var addr [4]byte
	copy(addr[:], ip.To4())

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port, Addr: addr}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("server: bind: %w", err)
	}

	if backlog <= 0 {
		backlog = unix.SOMAXCONN
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("server: listen: %w", err)
	}

	f := os.NewFile(uintptr(fd), fmt.Sprintf("%s:%d", hostname, port))
	ln, err := net.FileListener(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("server: file listener: %w", err)
	}
	return ln, nil
}
