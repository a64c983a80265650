package common

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Wire Protocol Definition
// --------------------------------------------------------------------------

// Protocol identifies the wire codec spoken on a connection.
type Protocol uint8

const (
	ProtocolUnknown Protocol = iota

	ProtocolBinary // Compact binary framing
	ProtocolJSON   // JSON-encoded messages
	ProtocolGOB    // gob-encoded messages
)

// String returns the string representation of a Protocol.
func (p Protocol) String() string {
	switch p {
	case ProtocolBinary:
		return "binary"
	case ProtocolJSON:
		return "json"
	case ProtocolGOB:
		return "gob"
	default:
		return "unknown"
	}
}

// ParseProtocol converts a protocol name to a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(s) {
	case "binary":
		return ProtocolBinary, nil
	case "json":
		return ProtocolJSON, nil
	case "gob":
		return ProtocolGOB, nil
	default:
		return ProtocolUnknown, fmt.Errorf("unknown protocol %q (expected one of: binary, json, gob)", s)
	}
}

// --------------------------------------------------------------------------
// Connection configuration struct
// --------------------------------------------------------------------------

// DefaultTimeoutSecond is applied when ConnectionOptions.TimeoutSecond is
// left at zero. Every request carries this timeout, and the replication
// join barrier is bounded by it as well.
const DefaultTimeoutSecond = 5

// ConnectionOptions identifies one physical endpoint and the wire protocol
// to speak to it. A connection is bound to exactly one ConnectionOptions for
// its lifetime.
type ConnectionOptions struct {
	Host          string
	Port          int
	Protocol      Protocol
	TimeoutSecond int
}

// Validate checks the options at construction time. Connection
// establishment itself is deferred to first use, so this is the only place
// a malformed endpoint is reported synchronously.
func (o ConnectionOptions) Validate() error {
	if o.Host == "" {
		return fmt.Errorf("connection options: no host specified")
	}
	if o.Port < 0 || o.Port > 65535 {
		return fmt.Errorf("connection options: port %d out of range [0, 65535]", o.Port)
	}
	if o.Protocol.String() == "unknown" {
		return fmt.Errorf("connection options: no protocol specified")
	}
	return nil
}

// Endpoint returns the host:port address of the backend.
func (o ConnectionOptions) Endpoint() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
}

// Timeout returns the configured timeout in seconds, falling back to
// DefaultTimeoutSecond.
func (o ConnectionOptions) Timeout() int {
	if o.TimeoutSecond > 0 {
		return o.TimeoutSecond
	}
	return DefaultTimeoutSecond
}

// String returns a formatted string representation of the options
func (o ConnectionOptions) String() string {
	return fmt.Sprintf("%s (%s, timeout %ds)", o.Endpoint(), o.Protocol, o.Timeout())
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for a framed-protocol
// server (backend cache server or the proxy daemon).
type ServerConfig struct {
	// Endpoint is the host:port the server listens on
	Endpoint string

	// TimeoutSecond bounds single read/write operations on a connection
	TimeoutSecond int64

	// MaxWorkersPerConn limits concurrent in-flight requests per connection
	MaxWorkersPerConn int

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.MaxWorkersPerConn))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}
