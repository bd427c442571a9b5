// Package session tracks the single user's authentication state.
//
// The Manager logs in through an IdentityProvider, persists every state
// change before exposing it, and lets the publish scheduler invalidate the
// session when the platform rejects the token mid-run.
package session
