// Package sync periodically drives conversation.Service.Sync across
// every known contact, fanning the work out across a worker pool and
// stopping cleanly when its context is cancelled.
package sync
