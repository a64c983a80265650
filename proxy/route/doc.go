// Package route implements the composable routing tree of the proxy. A
// Handle transforms and/or forwards requests; handles nest to form a tree
// that is built once from validated configuration and shared read-only by
// all in-flight requests.
//
// Handles provided here:
//
//   - destinationRoute: forwards to a single connection (the tree leaf).
//
//   - hashRoute: deterministic child selection by FNV-1a hash of the key.
//
//   - keySplitRoute: replicates one logical key over N replica keys
//     (key + "|#|" + index). Reads are served by one hash-selected replica;
//     mutations fan out to all N replicas either fully synchronously (the
//     reply is withheld until all replicas completed) or primary-only
//     synchronously (replica 0's reply is returned immediately, the rest
//     are best-effort). The caller always observes replica 0's result;
//     non-primary failures are swallowed by design and only visible through
//     metrics and logs.
package route
