// Package preflight provides readiness checks for the directories and
// external services tweetqueue depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at startup and logs a warning for each failure.
//     Startup continues; a missing Redis or unreachable platform only fails
//     the publish attempts that need it.
//   - The CLI "tweetqueue status" command renders the results in its System
//     section.
//
// Each check is gated by its config toggle. Disabled features are skipped.
package preflight
