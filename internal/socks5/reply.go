package socks5

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
)

// ErrMalformedReply covers replies whose fields cannot be decoded.
var ErrMalformedReply = errors.New("malformed reply")

// Reply represents a SOCKS5 server reply: a status code plus the bound
// address and port echoed back to the client.
type Reply struct {
	Rep      byte   // REP; reply status code
	AddrType byte   // ATYP; AddrTypeIPv4 or AddrTypeDomain
	IP       net.IP // BND.ADDR when AddrType is AddrTypeIPv4
	Domain   string // BND.ADDR when AddrType is AddrTypeDomain
	Port     uint16 // BND.PORT
}

// NewSuccessReply returns a success reply echoing the request's address type,
// address value, and port. The echoed fields intentionally mirror the
// client's request rather than the proxy's actual local bind.
func NewSuccessReply(req *Request) *Reply {
	return &Reply{
		Rep:      RepSuccess,
		AddrType: req.AddrType,
		IP:       req.IP,
		Domain:   req.Domain,
		Port:     req.Port,
	}
}

// NewFailureReply returns a failure reply with the given status code and a
// zero IPv4 bound address.
func NewFailureReply(rep byte) *Reply {
	return &Reply{
		Rep:      rep,
		AddrType: AddrTypeIPv4,
		IP:       net.IPv4zero.To4(),
	}
}

// ReadFrom reads a reply from src. Implements io.ReaderFrom.
func (r *Reply) ReadFrom(src io.Reader) (int64, error) {
	var hdr [4]byte
	n, err := io.ReadFull(src, hdr[:])
	total := int64(n)
	if err != nil {
		return total, fmt.Errorf("%w: header: %w", ErrMalformedReply, err)
	}

	if hdr[0] != Version {
		return total, fmt.Errorf("%w: version %#02x", ErrMalformedReply, hdr[0])
	}
	if hdr[2] != 0x00 {
		return total, fmt.Errorf("%w: reserved byte %#02x", ErrMalformedReply, hdr[2])
	}

	r.Rep = hdr[1]
	r.AddrType = hdr[3]

	switch r.AddrType {
	case AddrTypeIPv4:
		var buf [4]byte
		n, err = io.ReadFull(src, buf[:])
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("%w: ipv4 address: %w", ErrMalformedReply, err)
		}
		r.IP = net.IP(buf[:])

	case AddrTypeDomain:
		var ln [1]byte
		n, err = io.ReadFull(src, ln[:])
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("%w: domain length: %w", ErrMalformedReply, err)
		}
		buf := make([]byte, ln[0])
		n, err = io.ReadFull(src, buf)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("%w: domain: %w", ErrMalformedReply, err)
		}
		r.Domain = string(buf)

	default:
		return total, fmt.Errorf("%w: address type %#02x", ErrMalformedReply, r.AddrType)
	}

	var portBuf [2]byte
	n, err = io.ReadFull(src, portBuf[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("%w: port: %w", ErrMalformedReply, err)
	}
	r.Port = binary.BigEndian.Uint16(portBuf[:])

	return total, nil
}

// WriteTo writes the reply to dst. Implements io.WriterTo.
//
// The whole frame is assembled and written with a single Write so a reply is
// never observed partially by the client.
func (r *Reply) WriteTo(dst io.Writer) (int64, error) {
	buf := make([]byte, 0, 4+1+255+2)
	buf = append(buf, Version, r.Rep, 0x00, r.AddrType)

	switch r.AddrType {
	case AddrTypeIPv4:
		ip4 := r.IP.To4()
		if ip4 == nil {
			return 0, fmt.Errorf("%w: not an ipv4 address: %v", ErrMalformedReply, r.IP)
		}
		buf = append(buf, ip4...)
	case AddrTypeDomain:
		if len(r.Domain) == 0 || len(r.Domain) > 255 {
			return 0, fmt.Errorf("%w: domain length %d", ErrMalformedReply, len(r.Domain))
		}
		buf = append(buf, byte(len(r.Domain)))
		buf = append(buf, r.Domain...)
	default:
		return 0, fmt.Errorf("%w: address type %#02x", ErrMalformedReply, r.AddrType)
	}

	buf = binary.BigEndian.AppendUint16(buf, r.Port)
	n, err := dst.Write(buf)
	return int64(n), err
}

// String returns a human-readable representation of the reply.
func (r *Reply) String() string {
	var rep string
	switch r.Rep {
	case RepSuccess:
		rep = "SUCCESS"
	case RepGeneralFailure:
		rep = "GENERAL_FAILURE"
	case RepHostUnreachable:
		rep = "HOST_UNREACHABLE"
	case RepConnectionRefused:
		rep = "CONNECTION_REFUSED"
	default:
		rep = fmt.Sprintf("UNKNOWN(%#02x)", r.Rep)
	}
	host := r.Domain
	if r.AddrType == AddrTypeIPv4 {
		host = r.IP.String()
	}
	return fmt.Sprintf("SOCKS5 Reply{Rep=%s, Host=%s, Port=%d}", rep, host, r.Port)
}
