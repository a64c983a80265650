// Package cache implements the in-memory key-value engine served by a
// backend node. It supports plain writes, writes with an expiry in seconds,
// reads and deletes. Expiry is lazy: entries past their expiry are treated
// as missing and collected when touched.
package cache
