package proxy

// Package proxy implements the socksd SOCKS5 server.
//
// It contains the accept loop, the per-connection protocol state machine
// (greeting, method selection, CONNECT request, resolve/dial, reply), the
// bidirectional relay, and the keepalive listener wrapper.
