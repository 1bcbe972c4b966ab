//go:build !unix

package transport

import (
	"errors"
	"net"
)

var errSockoptUnsupported = errors.New("socket options not supported on this platform")

func setTOS(net.PacketConn, int) error {
	return errSockoptUnsupported
}
