// Package session models the proxy's two operating states and the one
// allowed transition between them.
//
// A Context is either Sealed or Unsealed. Both variants share the same
// persistent store, token guard, service handle, and keystore reference;
// the Unsealed variant additionally carries the peer runtime handles,
// which exist in no other way than as the result of a successful
// Unseal or CreateKey call followed by the supervisor promoting the
// Holder.
//
// Unseal and CreateKey run the passphrase-based key derivation off the
// calling goroutine, install the obtained key into the service
// configuration, and only then mint a bearer token through the
// TokenGuard. The ordering is observable: nobody can hold a valid token
// for a configuration that does not yet contain the key. Failures leave
// both the configuration and the token untouched.
//
// The TokenGuard replaces its token wholesale under a write lock.
// Concurrent transitions therefore end with exactly one winning token;
// callers must treat any previously issued token as invalidated.
package session
