package socks5

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

// Errors for SOCKS5 requests.
var (
	ErrMalformedRequest         = errors.New("malformed request")
	ErrUnsupportedCommand       = errors.New("unsupported command")
	ErrUnsupportedAddressFamily = errors.New("unsupported address family")
)

// Request represents a SOCKS5 CONNECT request for an IPv4 or domain-name
// destination.
type Request struct {
	Cmd      byte   // CMD; only CmdConnect decodes successfully
	AddrType byte   // ATYP; AddrTypeIPv4 or AddrTypeDomain
	IP       net.IP // DST.ADDR when AddrType is AddrTypeIPv4
	Domain   string // DST.ADDR when AddrType is AddrTypeDomain
	Port     uint16 // DST.PORT
}

// Host returns the destination host: the domain name or the dotted IPv4
// address.
func (r *Request) Host() string {
	if r.AddrType == AddrTypeDomain {
		return r.Domain
	}
	return r.IP.String()
}

// Addr returns the destination in "host:port" form.
func (r *Request) Addr() string {
	return net.JoinHostPort(r.Host(), fmt.Sprint(r.Port))
}

// ReadFrom reads a request from src. Implements io.ReaderFrom.
//
// Decoding stops at the first invalid field without consuming further bytes:
// a BIND or UDP ASSOCIATE command fails with ErrUnsupportedCommand and an
// IPv6 address type fails with ErrUnsupportedAddressFamily before any address
// bytes are read.
func (r *Request) ReadFrom(src io.Reader) (int64, error) {
	var hdr [4]byte
	n, err := io.ReadFull(src, hdr[:])
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("%w: header: %w", ErrMalformedRequest, err)
	}

	if hdr[0] != Version {
		return total, fmt.Errorf("%w: version %#02x", ErrMalformedRequest, hdr[0])
	}
	if hdr[2] != 0x00 {
		return total, fmt.Errorf("%w: reserved byte %#02x", ErrMalformedRequest, hdr[2])
	}
	if hdr[1] != CmdConnect {
		return total, fmt.Errorf("%w: command %#02x", ErrUnsupportedCommand, hdr[1])
	}

	r.Cmd = hdr[1]
	r.AddrType = hdr[3]

	switch r.AddrType {
	case AddrTypeIPv4:
		var buf [4]byte
		n, err = io.ReadFull(src, buf[:])
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("%w: ipv4 address: %w", ErrMalformedRequest, err)
		}
		r.IP = net.IP(buf[:])

	case AddrTypeDomain:
		var ln [1]byte
		n, err = io.ReadFull(src, ln[:])
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("%w: domain length: %w", ErrMalformedRequest, err)
		}
		if ln[0] == 0 {
			return total, fmt.Errorf("%w: empty domain", ErrMalformedRequest)
		}
		buf := make([]byte, ln[0])
		n, err = io.ReadFull(src, buf)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("%w: domain: %w", ErrMalformedRequest, err)
		}
		r.Domain = string(buf)

	case AddrTypeIPv6:
		return total, fmt.Errorf("%w: ipv6 destination", ErrUnsupportedAddressFamily)

	default:
		return total, fmt.Errorf("%w: address type %#02x", ErrMalformedRequest, r.AddrType)
	}

	var portBuf [2]byte
	n, err = io.ReadFull(src, portBuf[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("%w: port: %w", ErrMalformedRequest, err)
	}
	r.Port = binary.BigEndian.Uint16(portBuf[:])

	return total, nil
}

// WriteTo writes the request to dst. Implements io.WriterTo.
func (r *Request) WriteTo(dst io.Writer) (int64, error) {
	buf := make([]byte, 0, 4+1+255+2)
	buf = append(buf, Version, r.Cmd, 0x00, r.AddrType)

	switch r.AddrType {
	case AddrTypeIPv4:
		ip4 := r.IP.To4()
		if ip4 == nil {
			return 0, fmt.Errorf("%w: not an ipv4 address: %v", ErrMalformedRequest, r.IP)
		}
		buf = append(buf, ip4...)
	case AddrTypeDomain:
		if len(r.Domain) == 0 || len(r.Domain) > 255 {
			return 0, fmt.Errorf("%w: domain length %d", ErrMalformedRequest, len(r.Domain))
		}
		buf = append(buf, byte(len(r.Domain)))
		buf = append(buf, r.Domain...)
	default:
		return 0, fmt.Errorf("%w: address type %#02x", ErrUnsupportedAddressFamily, r.AddrType)
	}

	buf = binary.BigEndian.AppendUint16(buf, r.Port)
	n, err := dst.Write(buf)
	return int64(n), err
}

// String returns a human-readable representation of the request.
func (r *Request) String() string {
	atyp := "IPv4"
	if r.AddrType == AddrTypeDomain {
		atyp = "DOMAIN"
	}
	return fmt.Sprintf("SOCKS5 Request{Cmd=CONNECT, AddrType=%s, Host=%s, Port=%d}", atyp, r.Host(), r.Port)
}
