// Package model defines stable boundary types for API layers.
//
// Canonical message bytes and event bytes are unaffected by any projection.
// These structs are the only types intended for direct JSON serialization by
// consumers: identities are base58 strings, serials are hex.
package model
