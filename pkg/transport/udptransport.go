package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/pion/logging"
	ptransport "github.com/pion/transport/v4"
	"github.com/pion/transport/v4/stdnet"
)

const network = "udp4"

var (
	ErrResolve    = errors.New("cannot resolve destination")
	ErrSocket     = errors.New("cannot open socket")
	ErrShortWrite = errors.New("short datagram write")
	ErrClosed     = errors.New("transport closed")
)

type Options struct {
	// TOS IP 头 TOS/DSCP 字节，0 表示不设置
	TOS int
	// LoggerFactory nil 时使用默认工厂
	LoggerFactory logging.LoggerFactory
}

// UDPTransport 向单一目的地址发送数据报。socket 在 Dial 时获取，Close 时释放。
type UDPTransport struct {
	conn  net.PacketConn
	raddr *net.UDPAddr
	log   logging.LeveledLogger

	mu      sync.Mutex
	closed  bool
	packets uint64
	bytes   uint64
}

// NewStdNet 返回使用真实网络栈的 Net
func NewStdNet() (ptransport.Net, error) {
	nw, err := stdnet.NewNet()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocket, err)
	}
	return nw, nil
}

// Dial 解析目的地址并打开本地 UDP socket。
// 解析失败返回 ErrResolve，socket 失败返回 ErrSocket；两者都发生在任何发送之前。
func Dial(nw ptransport.Net, ep UDPEndpoint, opts *Options) (*UDPTransport, error) {
	if opts == nil {
		opts = &Options{}
	}
	lf := opts.LoggerFactory
	if lf == nil {
		lf = logging.NewDefaultLoggerFactory()
	}
	log := lf.NewLogger("transport")

	raddr, err := ep.ResolveDest(nw)
	if err != nil {
		return nil, fmt.Errorf("%w '%s': %v", ErrResolve, ep.DestinationHost, err)
	}
	log.Debugf("destination %s resolved to %s", ep.DestAddr(), raddr)

	conn, err := nw.ListenPacket(network, ep.BindAddr())
	if err != nil {
		return nil, fmt.Errorf("%w on %s: %v", ErrSocket, ep.BindAddr(), err)
	}

	if opts.TOS != 0 {
		if err := setTOS(conn, opts.TOS); err != nil {
			if !errors.Is(err, errSockoptUnsupported) {
				_ = conn.Close()
				return nil, fmt.Errorf("%w: set tos %#x: %v", ErrSocket, opts.TOS, err)
			}
			log.Warnf("tos %#x ignored: %v", opts.TOS, err)
		}
	}

	log.Infof("udp socket bound on %s, sending to %s", conn.LocalAddr(), raddr)
	return &UDPTransport{
		conn:  conn,
		raddr: raddr,
		log:   log,
	}, nil
}

// Send 发送一个数据报；失败不重试
func (t *UDPTransport) Send(payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}

	n, err := t.conn.WriteTo(payload, t.raddr)
	if err != nil {
		return fmt.Errorf("send %d bytes to %s: %w", len(payload), t.raddr, err)
	}
	if n != len(payload) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrShortWrite, n, len(payload))
	}
	t.packets++
	t.bytes += uint64(n)
	return nil
}

func (t *UDPTransport) RemoteAddr() *net.UDPAddr {
	return t.raddr
}

func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Stats 已成功发送的包数和字节数
func (t *UDPTransport) Stats() (packets, bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.packets, t.bytes
}

// Close 可重复调用
func (t *UDPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.log.Debugf("closing socket %s (%d packets, %d bytes)", t.conn.LocalAddr(), t.packets, t.bytes)
	return t.conn.Close()
}
