// Package common provides the core data structures shared across the proxy:
// the Message protocol (requests and replies with result codes), connection
// and server configuration structures, and logging utilities.
package common
