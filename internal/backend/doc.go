// Package backend defines the common interface that all key-value backends
// (Redis, the in-process memory store) must implement, along with the tagged
// error set the dispatch loop classifies outcomes from.
package backend
