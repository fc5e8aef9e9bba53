package ports

import "net"

// PacketWriter writes one datagram to a peer.
// *net.UDPConn satisfies it.
type PacketWriter interface {
	WriteTo(p []byte, addr net.Addr) (int, error)
}
