// Package server implements the framed TCP server used by both backend
// cache nodes and the proxy daemon. Each connection multiplexes many
// requests: frames carry a request ID that the reply echoes, a bounded
// worker pool processes requests per connection, and replies are written
// back in completion order under a write mutex.
//
// The request semantics are supplied by a HandleFunc; NewCacheHandler
// provides the one used by backend nodes.
package server
