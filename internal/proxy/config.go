package proxy

import (
	"net"

	"github.com/chuangbo/socksd/internal/dialer"
	"github.com/chuangbo/socksd/internal/resolver"
)

type Config struct {
	// Dialer establishes outbound connections to requested destinations.
	Dialer dialer.Dialer

	// Resolver resolves domain-name destinations, once per connection.
	Resolver *resolver.Resolver

	// KeepAlive is applied to accepted TCP connections.
	KeepAlive net.KeepAliveConfig
}
