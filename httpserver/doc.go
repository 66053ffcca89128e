// Package httpserver exposes the proxy API over HTTP.
//
// The server starts with only the keystore endpoints usable: POST
// /v1/keystore initializes a fresh keystore, POST /v1/keystore/unseal
// opens an existing one. Both respond with a bearer token, also set as
// the auth-token cookie, which authenticates all other endpoints via the
// RequireAuth middleware.
//
// Handlers never cache the session context; every request fetches the
// current variant from the session.Holder, so the first request after a
// successful unseal already sees the unsealed context.
//
// Keystore failures map onto HTTP statuses: wrong passphrase 403, no key
// 404, key already exists 409, backend unavailable 503.
//
// Operational endpoints follow the usual pattern: /livez, /readyz, and
// /drain and /undrain for load-balancer coordination, plus an optional pprof
// mount and a separate Prometheus metrics listener.
package httpserver
