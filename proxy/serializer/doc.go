// Package serializer provides the wire codecs for proxy messages. It defines
// a common interface and multiple implementations for serializing and
// deserializing messages between the proxy and its backends.
//
// Three codecs are available:
//
//   - binarySerializerImpl: Custom binary format optimized for the message
//     structure. Uses a flag-based approach to encode only present fields,
//     resulting in compact serialized data with minimal overhead. This is
//     the framed protocol spoken to cache backends by default.
//
//   - jsonSerializerImpl: JSON encoding, useful for debugging or
//     interoperability with other systems, but with lower performance.
//
//   - gobSerializerImpl: Go's built-in gob encoding.
//
// All serializer implementations are stateless and safe for concurrent use
// across multiple goroutines without additional synchronization. The codec
// for a connection is selected from ConnectionOptions.Protocol via
// ForProtocol; both sides of a connection must agree on the protocol, a
// mismatch surfaces as a deserialization error reply at request time.
package serializer
