// Package keys is a local keyring for the Ed25519 seeds an off-ledger
// authorizer endorses requests with.
//
// Seeds live as hex files under <dir>/<name>/root.key, with optional
// role-derived seeds under <dir>/<name>/roles/<role>.key. Files are 0600.
package keys
