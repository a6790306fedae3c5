package proxy

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/txthinking/socks5"
	xproxy "golang.org/x/net/proxy"

	"github.com/chuangbo/socksd/internal/dialer"
	"github.com/chuangbo/socksd/internal/resolver"
	"github.com/chuangbo/socksd/internal/testutil"
)

func startServer(t *testing.T, ctx context.Context, res *resolver.Resolver) net.Listener {
	t.Helper()

	if res == nil {
		res = resolver.New(resolver.Config{})
	}

	cfg := Config{
		Dialer:   dialer.NewDirectDialer(dialer.Config{DialTimeout: 2 * time.Second}),
		Resolver: res,
	}

	ln, err := ListenTCP("tcp", "127.0.0.1:0", net.KeepAliveConfig{Enable: false})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	srv := NewServer(ctx, cfg, nil)
	go func() { _ = srv.Serve(ln) }()

	return ln
}

// startNxdomainDNS answers every query with NXDOMAIN.
func startNxdomainDNS(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	srv := &dns.Server{PacketConn: pc, Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)
		m.SetRcode(req, dns.RcodeNameError)
		_ = w.WriteMsg(m)
	})}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestConnectIPv4Direct(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()

	ln := startServer(t, ctx, nil)

	client, err := socks5.NewClient(ln.Addr().String(), "", "", 2, 0)
	if err != nil {
		t.Fatal(err)
	}

	c, err := client.Dial("tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	testutil.AssertEcho(t, c, c, []byte("hello"))
}

func TestConnectViaXNetProxy(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()

	ln := startServer(t, ctx, nil)

	d, err := xproxy.SOCKS5("tcp", ln.Addr().String(), nil, xproxy.Direct)
	if err != nil {
		t.Fatal(err)
	}

	c, err := d.Dial("tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	testutil.AssertEcho(t, c, c, []byte("through x/net"))
}

// dialRaw connects to the proxy and returns a raw connection with a test
// deadline applied.
func dialRaw(t *testing.T, addr string) net.Conn {
	t.Helper()

	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	_ = c.SetDeadline(time.Now().Add(3 * time.Second))
	return c
}

// handshake performs the no-auth greeting and checks the 05 00 method reply.
func handshake(t *testing.T, c net.Conn) {
	t.Helper()

	if _, err := c.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		t.Fatal(err)
	}
	reply := make([]byte, 2)
	if _, err := io.ReadFull(c, reply); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(reply, []byte{0x05, 0x00}) {
		t.Fatalf("method reply %x, want 0500", reply)
	}
}

// expectClosedNoReply asserts that the proxy closes the connection without
// sending any further bytes.
func expectClosedNoReply(t *testing.T, c net.Conn) {
	t.Helper()

	buf := make([]byte, 1)
	n, err := c.Read(buf)
	if n != 0 || err == nil {
		t.Fatalf("expected closed connection with no reply, read %d bytes, err %v", n, err)
	}
}

func TestHandshakeRejectsWithoutNoAuth(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ln := startServer(t, ctx, nil)
	c := dialRaw(t, ln.Addr().String())

	// Offer only username/password.
	if _, err := c.Write([]byte{0x05, 0x01, 0x02}); err != nil {
		t.Fatal(err)
	}
	expectClosedNoReply(t, c)
}

func TestRejectsBindCommand(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ln := startServer(t, ctx, nil)
	c := dialRaw(t, ln.Addr().String())
	handshake(t, c)

	if _, err := c.Write([]byte{0x05, 0x02, 0x00, 0x01, 127, 0, 0, 1, 0x00, 0x50}); err != nil {
		t.Fatal(err)
	}
	expectClosedNoReply(t, c)
}

func TestRejectsIPv6Destination(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ln := startServer(t, ctx, nil)
	c := dialRaw(t, ln.Addr().String())
	handshake(t, c)

	req := append([]byte{0x05, 0x01, 0x00, 0x04}, make([]byte, 16)...)
	req = append(req, 0x00, 0x50)
	if _, err := c.Write(req); err != nil {
		t.Fatal(err)
	}
	expectClosedNoReply(t, c)
}

func readReply(t *testing.T, c net.Conn) []byte {
	t.Helper()

	// VER REP RSV ATYP + 4-byte IPv4 + 2-byte port.
	reply := make([]byte, 10)
	if _, err := io.ReadFull(c, reply); err != nil {
		t.Fatal(err)
	}
	return reply
}

func TestDomainResolutionFailureRepliesHostUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res := resolver.New(resolver.Config{DNSServer: startNxdomainDNS(t), Timeout: 2 * time.Second})
	ln := startServer(t, ctx, res)

	c := dialRaw(t, ln.Addr().String())
	handshake(t, c)

	req := []byte{0x05, 0x01, 0x00, 0x03, 12}
	req = append(req, []byte("nope.example")...)
	req = append(req, 0x00, 0x50)
	if _, err := c.Write(req); err != nil {
		t.Fatal(err)
	}

	reply := readReply(t, c)
	if reply[1] != 0x04 {
		t.Fatalf("reply status %#02x, want 0x04 host unreachable", reply[1])
	}
	expectClosedNoReply(t, c)
}

func TestConnectionRefusedReply(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// A port that was just released refuses connections.
	deadLn, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	deadAddr := deadLn.Addr().(*net.TCPAddr)
	_ = deadLn.Close()

	ln := startServer(t, ctx, nil)
	c := dialRaw(t, ln.Addr().String())
	handshake(t, c)

	req := []byte{0x05, 0x01, 0x00, 0x01}
	req = append(req, deadAddr.IP.To4()...)
	req = append(req, byte(deadAddr.Port>>8), byte(deadAddr.Port))
	if _, err := c.Write(req); err != nil {
		t.Fatal(err)
	}

	reply := readReply(t, c)
	if reply[1] != 0x05 {
		t.Fatalf("reply status %#02x, want 0x05 connection refused", reply[1])
	}
	expectClosedNoReply(t, c)
}

func TestConnectScenarioEchoesRequestAddress(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)
	defer echoLn.Close()
	echoAddr := echoLn.Addr().(*net.TCPAddr)

	ln := startServer(t, ctx, nil)
	c := dialRaw(t, ln.Addr().String())
	handshake(t, c)

	req := []byte{0x05, 0x01, 0x00, 0x01}
	req = append(req, echoAddr.IP.To4()...)
	req = append(req, byte(echoAddr.Port>>8), byte(echoAddr.Port))
	if _, err := c.Write(req); err != nil {
		t.Fatal(err)
	}

	// The success reply echoes the requested address and port verbatim.
	want := append([]byte{0x05, 0x00, 0x00, 0x01}, req[4:]...)
	reply := readReply(t, c)
	if !bytes.Equal(reply, want) {
		t.Fatalf("reply %x, want %x", reply, want)
	}

	testutil.AssertEcho(t, c, c, []byte("relayed verbatim"))
}
