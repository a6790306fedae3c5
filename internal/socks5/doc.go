package socks5

// Package socks5 implements the wire codec for the restricted SOCKS5 subset
// socksd speaks: the client greeting, the method-selection reply, the CONNECT
// request, and the server reply.
//
// Message types carry no I/O state. They implement io.ReaderFrom and
// io.WriterTo, consume exactly the bytes their layout specifies, and fail
// decoding with named sentinel errors per malformed field. All multi-byte
// integers are big-endian per RFC 1928.
