// Package app wires application dependencies for the CLI.
//
// It opens the local store, builds the postal-box RPC client and the
// identity/contact/conversation services from Config, exposing them
// via the Wire struct for commands to use.
package app
