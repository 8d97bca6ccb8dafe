// Package bridge implements the message correlator and the session that
// embedded apps use to talk to their host frame: correlated request/response
// calls with timeouts over a broadcast-style channel, fire-and-forget
// notifications, built-in handlers for host pushes, and deterministic
// fallbacks when the host does not answer.
package bridge
