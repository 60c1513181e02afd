// Package main hosts the vidshelf CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into calls against the
// video-library backend, keeps a watcher connected to record notifications
// in the local journal, and renders that history. Configuration resolution,
// endpoint flags, and logging setup live in the command context so
// subcommands only deal with their own output.
package main
