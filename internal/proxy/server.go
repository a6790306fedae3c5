package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"

	"github.com/chuangbo/socksd/internal/socks5"
)

// Server is the SOCKS5 proxy server. One goroutine per accepted connection
// runs the handshake/request/dial/relay sequence; a failure in one
// connection never affects the acceptor or other connections.
type Server struct {
	ctx context.Context
	cfg Config
	log *slog.Logger
}

// NewServer constructs a SOCKS5 server. Canceling ctx force-closes in-flight
// relays.
func NewServer(ctx context.Context, cfg Config, log *slog.Logger) *Server {
	if ctx == nil {
		ctx = context.Background()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{ctx: ctx, cfg: cfg, log: log}
}

// Serve accepts connections from ln until it fails, dispatching each to its
// own handler goroutine.
func (s *Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(c)
	}
}

// handleConn owns one client connection and drives it through the protocol:
// greeting, method selection, CONNECT request, resolve/dial, reply, relay.
// Every exit path closes the client connection; the target connection, once
// opened, is closed by Relay or by the deferred close on reply failure.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	log := s.log.With("client", conn.RemoteAddr().String())

	if err := s.negotiate(conn); err != nil {
		log.Debug("handshake failed", "error", err)
		return
	}

	req, err := s.readRequest(conn)
	if err != nil {
		log.Debug("request rejected", "error", err)
		return
	}

	target, err := s.connect(conn, req)
	if err != nil {
		log.Debug("connect failed", "destination", req.Addr(), "error", err)
		return
	}

	log.Debug("relaying", "destination", req.Addr())
	if err := Relay(s.ctx, conn, target); err != nil {
		log.Debug("relay ended", "destination", req.Addr(), "error", err)
	}
}

// negotiate reads the client greeting and selects the no-authentication
// method. A greeting that does not offer no-auth fails the handshake; no
// reply frame is sent for any handshake failure.
func (s *Server) negotiate(conn net.Conn) error {
	var greeting socks5.Greeting
	if _, err := greeting.ReadFrom(conn); err != nil {
		return err
	}

	if !greeting.HasNoAuth() {
		return fmt.Errorf("%w: offered %v", socks5.ErrUnsupportedAuth, greeting.Methods)
	}

	if _, err := socks5.NewMethodReply(socks5.MethodNoAuth).WriteTo(conn); err != nil {
		return fmt.Errorf("method reply: %w", err)
	}
	return nil
}

// readRequest reads and decodes the CONNECT request. Unsupported commands
// and IPv6 destinations are rejected by the codec; the connection is closed
// with no reply frame for all of them.
func (s *Server) readRequest(conn net.Conn) (*socks5.Request, error) {
	var req socks5.Request
	if _, err := req.ReadFrom(conn); err != nil {
		return nil, err
	}
	return &req, nil
}

// connect resolves the request's destination, dials it, and writes the
// reply. On success the returned connection is open and the client has been
// told; on failure the client has received the matching failure status and
// no connection is returned.
func (s *Server) connect(conn net.Conn, req *socks5.Request) (net.Conn, error) {
	ip := req.IP
	if req.AddrType == socks5.AddrTypeDomain {
		var err error
		ip, err = s.cfg.Resolver.LookupIPv4(s.ctx, req.Domain)
		if err != nil {
			s.writeReply(conn, socks5.NewFailureReply(socks5.RepHostUnreachable))
			return nil, err
		}
	}

	addr := net.JoinHostPort(ip.String(), fmt.Sprint(req.Port))
	target, err := s.cfg.Dialer.Dial(s.ctx, "tcp", addr)
	if err != nil {
		rep := byte(socks5.RepGeneralFailure)
		if errors.Is(err, syscall.ECONNREFUSED) {
			rep = socks5.RepConnectionRefused
		}
		s.writeReply(conn, socks5.NewFailureReply(rep))
		return nil, err
	}

	if _, err := socks5.NewSuccessReply(req).WriteTo(conn); err != nil {
		_ = target.Close()
		return nil, fmt.Errorf("success reply: %w", err)
	}
	return target, nil
}

func (s *Server) writeReply(conn net.Conn, rep *socks5.Reply) {
	_, _ = rep.WriteTo(conn)
}
