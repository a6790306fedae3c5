package socks5

import (
	"bytes"
	"errors"
	"testing"
)

func TestGreetingReadFrom(t *testing.T) {
	var g Greeting
	n, err := g.ReadFrom(bytes.NewReader([]byte{0x05, 0x01, 0x00}))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("consumed %d bytes, want 3", n)
	}
	if g.Version != Version || len(g.Methods) != 1 || g.Methods[0] != MethodNoAuth {
		t.Fatalf("unexpected greeting: %v", g.String())
	}
	if !g.HasNoAuth() {
		t.Fatal("expected HasNoAuth")
	}
}

func TestGreetingReadFromConsumesExactly(t *testing.T) {
	// Trailing bytes (the beginning of the request) must be left unread.
	r := bytes.NewReader([]byte{0x05, 0x02, 0x00, 0x02, 0x05, 0x01})

	var g Greeting
	if _, err := g.ReadFrom(r); err != nil {
		t.Fatal(err)
	}
	if r.Len() != 2 {
		t.Fatalf("greeting over-read: %d bytes left, want 2", r.Len())
	}
}

func TestGreetingBadVersion(t *testing.T) {
	var g Greeting
	_, err := g.ReadFrom(bytes.NewReader([]byte{0x04, 0x01, 0x00}))
	if !errors.Is(err, ErrMalformedGreeting) {
		t.Fatalf("got %v, want ErrMalformedGreeting", err)
	}
}

func TestGreetingNoMethods(t *testing.T) {
	var g Greeting
	_, err := g.ReadFrom(bytes.NewReader([]byte{0x05, 0x00}))
	if !errors.Is(err, ErrMalformedGreeting) {
		t.Fatalf("got %v, want ErrMalformedGreeting", err)
	}
}

func TestGreetingShortRead(t *testing.T) {
	// Claims three methods, delivers one.
	var g Greeting
	_, err := g.ReadFrom(bytes.NewReader([]byte{0x05, 0x03, 0x00}))
	if !errors.Is(err, ErrMalformedGreeting) {
		t.Fatalf("got %v, want ErrMalformedGreeting", err)
	}
}

func TestGreetingWithoutNoAuth(t *testing.T) {
	var g Greeting
	if _, err := g.ReadFrom(bytes.NewReader([]byte{0x05, 0x02, 0x01, 0x02})); err != nil {
		t.Fatal(err)
	}
	if g.HasNoAuth() {
		t.Fatal("HasNoAuth true for GSSAPI+userpass greeting")
	}
}

func TestMethodReplyWire(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewMethodReply(MethodNoAuth).WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), []byte{0x05, 0x00}) {
		t.Fatalf("method reply bytes %x, want 0500", buf.Bytes())
	}

	var m MethodReply
	if _, err := m.ReadFrom(&buf); err != nil {
		t.Fatal(err)
	}
	if m.Method != MethodNoAuth {
		t.Fatalf("method %#02x, want no-auth", m.Method)
	}
}
