//go:build unix

package transport

import (
	"errors"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

var errSockoptUnsupported = errors.New("socket options not supported by this connection")

func setTOS(conn net.PacketConn, tos int) error {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return errSockoptUnsupported
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := raw.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, tos)
	}); err != nil {
		return err
	}
	return serr
}
