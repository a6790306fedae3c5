package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds the outbound TCP connect. Zero means no timeout.
	DialTimeout time.Duration

	// KeepAlive is applied to outbound TCP connections.
	KeepAlive net.KeepAliveConfig
}
