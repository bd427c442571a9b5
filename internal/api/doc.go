// Package api defines the command surface and wire-format types shared by the
// IPC and HTTP layers. It translates queue, session, and publish models into
// transport-friendly DTOs so clients can render them without coupling to
// internal types.
//
// # Key Types
//
// Service: the command surface. Every command returns a Result envelope
// carrying either data or a classified error.
//
// Tweet: transport representation of a draft with its state, position, and
// failure details.
//
// SessionView, RunStatus, RunReport: session state and publish progress.
//
// # Converters
//
// FromQueueItem, FromSession, FromReport map internal models to DTOs.
//
// FromError classifies an error into kind, code, message, and the action the
// caller should take (fix_input, retry_later, reauthenticate).
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums are exposed as lowercase
// strings. Timestamps use RFC3339 with milliseconds. Queue commands require
// an Authenticated session; the session commands and publishStatus do not.
package api
