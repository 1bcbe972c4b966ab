package transport

import (
	"net"
	"strconv"

	ptransport "github.com/pion/transport/v4"
)

type UDPEndpoint struct {
	// 可选：本地绑定地址（如 "0.0.0.0" 或具体网卡 IP）。nil 表示让内核自行选择。
	SourceAddress *string

	// 本地端口，0 = 任意
	BindPort uint16

	// 目的主机名或地址字面量，只在建立时解析一次
	DestinationHost string

	// 目的端口
	Port uint16
}

func NewUDPEndpoint(src *string, dest string, port uint16) UDPEndpoint {
	return UDPEndpoint{
		SourceAddress:   src,
		DestinationHost: dest,
		Port:            port,
	}
}

// BindAddr 返回用于 ListenPacket("udp4", BindAddr()) 的地址字符串。
// 若未指定 SourceAddress，则返回 "0.0.0.0:<port>"，交给内核选择本地地址。
func (e UDPEndpoint) BindAddr() string {
	if e.SourceAddress == nil || *e.SourceAddress == "" {
		return net.JoinHostPort("0.0.0.0", strconv.Itoa(int(e.BindPort)))
	}
	return net.JoinHostPort(*e.SourceAddress, strconv.Itoa(int(e.BindPort)))
}

// DestAddr 返回 "host:port" 形式的目的地址，便于 ResolveUDPAddr 使用。
func (e UDPEndpoint) DestAddr() string {
	return net.JoinHostPort(e.DestinationHost, strconv.Itoa(int(e.Port)))
}

// ResolveDest 通过 nw 解析为 *net.UDPAddr（IPv4）
func (e UDPEndpoint) ResolveDest(nw ptransport.Net) (*net.UDPAddr, error) {
	return nw.ResolveUDPAddr(network, e.DestAddr())
}
