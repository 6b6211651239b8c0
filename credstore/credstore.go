// Package credstore persists the single opaque API credential that
// authenticates relay calls against the remote blog API.
//
// The credential has no local lifecycle beyond set/get/clear: it is set
// by an explicit user action, read before every relay call, and cleared
// by an explicit user action. Validity is decided remotely per call, so
// no rotation or expiry logic lives here. Reads and writes are atomic
// single-key operations with no cross-key invariants, which is why no
// locking appears above the backend level.
//
// Backends: OS keyring (default, the nearest analogue of an extension's
// private storage area), SQLite (headless hosts without a keyring), and
// in-memory (tests).
package credstore

import "context"

// Store holds one opaque credential. Get returns ("", nil) when no
// credential is set; absence is a normal state, not an error.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, credential string) error
	Clear(ctx context.Context) error
}
