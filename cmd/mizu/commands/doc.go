// Package commands defines the mizu CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init       Create the local identity
//   - fingerprint Print the identity fingerprint
//   - publish    Publish your prekey bundle to the chain's postal box
//   - add        Fetch, verify and save a peer's bundle as a contact
//   - send       Encrypt and send a message to a contact
//   - sync       Poll every contact's postal box and decrypt anything new
//   - poke       Send a discovery poke to a contact
//   - pokes      Drain pokes addressed to you
//   - rotate     Rotate your signed prekey, keeping a grace window for the old one
//
// # Implementation
//
// The root command builds a dependency graph (local store, postal-box
// client, services) before any subcommand runs, so handlers share one
// app.Wire with pooled HTTP connections and a single open database
// handle, closed on exit.
package commands
