package dialer

import (
	"context"
	"net"
)

// Dialer establishes outbound connections on behalf of SOCKS5 clients.
type Dialer interface {
	Dial(ctx context.Context, network, address string) (net.Conn, error)
}
