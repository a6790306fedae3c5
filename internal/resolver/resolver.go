package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// ErrNxdomain indicates that a domain name did not resolve to any usable
// IPv4 address.
var ErrNxdomain = errors.New("name resolution failed")

// Config controls how domain destinations are resolved.
type Config struct {
	// DNSServer is an explicit "host:port" DNS server to query for A
	// records. Empty means the host's system resolver is used.
	DNSServer string

	// Timeout bounds a single DNS exchange against an explicit server.
	// Zero means no timeout.
	Timeout time.Duration
}

// Resolver turns domain names from CONNECT requests into connectable IPv4
// addresses. Each lookup resolves independently; nothing is cached.
type Resolver struct {
	cfg Config
	sys *net.Resolver
	cli *dns.Client
}

// New constructs a Resolver for the given config.
func New(cfg Config) *Resolver {
	return &Resolver{
		cfg: cfg,
		sys: &net.Resolver{},
		cli: &dns.Client{Timeout: cfg.Timeout},
	}
}

// LookupIPv4 resolves host to an IPv4 address, failing with ErrNxdomain when
// no A record exists. Names resolving only to IPv6 addresses are treated as
// unresolvable since IPv6 destinations are not supported.
func (r *Resolver) LookupIPv4(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, fmt.Errorf("%w: %s is not ipv4", ErrNxdomain, host)
	}

	if r.cfg.DNSServer != "" {
		return r.lookupDNS(ctx, host)
	}
	return r.lookupSystem(ctx, host)
}

func (r *Resolver) lookupSystem(ctx context.Context, host string) (net.IP, error) {
	ips, err := r.sys.LookupIP(ctx, "ip4", host)
	if err != nil || len(ips) == 0 {
		return nil, fmt.Errorf("%w: %s: %v", ErrNxdomain, host, err)
	}
	return ips[0].To4(), nil
}

func (r *Resolver) lookupDNS(ctx context.Context, host string) (net.IP, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)
	m.RecursionDesired = true

	resp, _, err := r.cli.ExchangeContext(ctx, m, r.cfg.DNSServer)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNxdomain, host, err)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%w: %s: rcode %s", ErrNxdomain, host, dns.RcodeToString[resp.Rcode])
	}

	for _, ans := range resp.Answer {
		if a, ok := ans.(*dns.A); ok {
			if ip4 := a.A.To4(); ip4 != nil {
				return ip4, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s: no A records", ErrNxdomain, host)
}
