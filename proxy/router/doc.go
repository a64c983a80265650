// Package router turns a declarative routing configuration into a live
// connection. A configuration names pools of backend servers and a route
// tree over them; NewInternalConnection validates the configuration,
// constructs the pooled connections and the route handles, and exposes the
// whole arrangement as one conn.Connection.
//
// The internal connection lives here rather than in package conn because it
// depends on package route, which in turn depends on conn.
package router
