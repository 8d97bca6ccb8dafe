// Package core defines the shared domain model and contracts for the
// go-hostbridge SDK: the message envelope exchanged with the host frame,
// the pending-call lifecycle, user/credit snapshots, and the interfaces
// the bridge, transport, auth, ratelimit, and store packages implement.
package core
