package socks5

// Version is the only SOCKS protocol version this package accepts.
const Version = 5

// Command codes (CMD) for client requests.
const (
	CmdConnect      = 1 // Establish a TCP/IP stream connection
	CmdBind         = 2 // Establish a TCP/IP port binding (unsupported)
	CmdUDPAssociate = 3 // Associate UDP relay (unsupported)
)

// Address types (ATYP) used in requests and replies.
const (
	AddrTypeIPv4   = 1 // 4-byte IPv4 address
	AddrTypeDomain = 3 // 1 length byte + N-byte domain name
	AddrTypeIPv6   = 4 // 16-byte IPv6 address (unsupported)
)

// Authentication methods (METHOD) for the initial greeting.
const (
	MethodNoAuth       = 0x00 // No authentication required
	MethodNoAcceptable = 0xFF // No acceptable methods
)

// Reply codes (REP) for server replies.
const (
	RepSuccess           = 0x00 // Request granted
	RepGeneralFailure    = 0x01 // General SOCKS server failure
	RepHostUnreachable   = 0x04 // Host unreachable (name resolution failed)
	RepConnectionRefused = 0x05 // Connection refused by destination
)
