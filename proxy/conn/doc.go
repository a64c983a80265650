// Package conn provides the connection abstraction of the proxy: the common
// capability of sending one request and receiving one reply asynchronously.
//
// Two implementations live here:
//
//   - externalConnection: binds directly to one backend endpoint and speaks
//     the wire protocol itself. Connection establishment is deferred to
//     first use, and connectivity failures are delivered as local-error
//     replies through the normal callback channel, never as out-of-band
//     faults.
//
//   - pooledConnection: a fixed set of interchangeable member connections
//     with an atomic round-robin cursor. A request is forwarded to exactly
//     one member.
//
// A third implementation, the internal connection that resolves requests
// through a routing tree, lives in the router package to keep the
// dependency direction conn <- route <- router acyclic.
//
// Exactly-once callback contract: for every SendRequestOne call the reply
// callback fires exactly once. Closing a connection completes all in-flight
// requests with a local-error reply before Close returns.
package conn
