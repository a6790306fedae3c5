package socks5

import (
	"errors"
	"fmt"
	"io"
)

// Errors for SOCKS5 greetings.
var (
	ErrMalformedGreeting = errors.New("malformed greeting")
	ErrUnsupportedAuth   = errors.New("no acceptable authentication method")
)

// Greeting represents the initial SOCKS5 client message: the protocol version
// and the ordered list of authentication methods the client offers.
type Greeting struct {
	Version byte   // VER; must be 0x05
	Methods []byte // METHODS; NMETHODS is derived from len(Methods)
}

// HasNoAuth reports whether the client offered the no-authentication method.
func (g *Greeting) HasNoAuth() bool {
	for _, m := range g.Methods {
		if m == MethodNoAuth {
			return true
		}
	}
	return false
}

// ReadFrom reads a greeting from src. Implements io.ReaderFrom.
//
// It consumes exactly 2+NMETHODS bytes and fails with ErrMalformedGreeting on
// a bad version byte, an empty method list, or a short read.
func (g *Greeting) ReadFrom(src io.Reader) (int64, error) {
	var hdr [2]byte
	n, err := io.ReadFull(src, hdr[:])
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("%w: header: %w", ErrMalformedGreeting, err)
	}

	if hdr[0] != Version {
		return total, fmt.Errorf("%w: version %#02x", ErrMalformedGreeting, hdr[0])
	}
	if hdr[1] == 0 {
		return total, fmt.Errorf("%w: no methods offered", ErrMalformedGreeting)
	}

	methods := make([]byte, hdr[1])
	n, err = io.ReadFull(src, methods)
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("%w: methods: %w", ErrMalformedGreeting, err)
	}

	g.Version = hdr[0]
	g.Methods = methods
	return total, nil
}

// WriteTo writes the greeting to dst. Implements io.WriterTo.
func (g *Greeting) WriteTo(dst io.Writer) (int64, error) {
	buf := make([]byte, 0, 2+len(g.Methods))
	buf = append(buf, g.Version, byte(len(g.Methods)))
	buf = append(buf, g.Methods...)
	n, err := dst.Write(buf)
	return int64(n), err
}

// String returns a human-readable representation of the greeting.
func (g *Greeting) String() string {
	return fmt.Sprintf("SOCKS5 Greeting{Version=%d, Methods=%v}", g.Version, g.Methods)
}

// MethodReply is the server's answer to a greeting: the selected
// authentication method.
type MethodReply struct {
	Version byte // VER; always 0x05
	Method  byte // METHOD; selected method
}

// NewMethodReply returns a method-selection reply for the given method.
func NewMethodReply(method byte) *MethodReply {
	return &MethodReply{Version: Version, Method: method}
}

// ReadFrom reads a method-selection reply from src. Implements io.ReaderFrom.
func (m *MethodReply) ReadFrom(src io.Reader) (int64, error) {
	var buf [2]byte
	n, err := io.ReadFull(src, buf[:])
	if err != nil {
		return int64(n), fmt.Errorf("method reply: %w", err)
	}
	if buf[0] != Version {
		return int64(n), fmt.Errorf("%w: method reply version %#02x", ErrMalformedGreeting, buf[0])
	}
	m.Version = buf[0]
	m.Method = buf[1]
	return int64(n), nil
}

// WriteTo writes the method-selection reply to dst. Implements io.WriterTo.
func (m *MethodReply) WriteTo(dst io.Writer) (int64, error) {
	n, err := dst.Write([]byte{m.Version, m.Method})
	return int64(n), err
}
