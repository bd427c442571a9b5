// Package services defines shared utilities consumed by the session, queue,
// and publish components and by the transports that front them.
//
// Key responsibilities:
//   - Context helpers that stamp draft IDs, publish run IDs, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper, and the classification
//     helpers that tell callers whether to fix their input, retry later, or
//     re-authenticate.
//
// Use these helpers when wiring new command handlers so operational behaviour
// (error reporting, observability) stays uniform across transports.
package services
