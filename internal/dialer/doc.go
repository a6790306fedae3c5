package dialer

// Package dialer provides outbound TCP dialing for socksd.
//
// The SOCKS5 server dials destinations through the small Dialer interface so
// tests can substitute their own implementation; the only production
// implementation connects directly over TCP.
