// Package identity verifies login credentials for the session manager.
//
// Two providers exist: the platform provider exchanges credentials at the
// platform's token endpoint, and the local provider checks a bcrypt hash
// from the config file and mints its own HS256 tokens. The local tokens are
// also what the sandbox platform accepts.
package identity
