// Package conv collects tiny helper functions that are not part of the public API
// but aid internal conversions.
//
// At the moment it only exposes `AsKey`, which renders a JSON-RPC id as a
// comparable map key.
package conv
