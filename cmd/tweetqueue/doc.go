// Package main hosts the tweetqueue CLI entrypoint and command graph.
//
// The Cobra command tree translates terminal invocations into IPC calls against
// the daemon: session login, draft queue maintenance, publish runs, log
// tailing, and configuration scaffolding. Every queue command goes through the
// daemon's command surface, so the CLI holds no queue state of its own.
package main
