package app

import (
	"mizu/internal/domain"
	"mizu/internal/services/contact"
	"mizu/internal/services/conversation"
	syncer "mizu/internal/sync"
)

// Wire gathers the services and local store a command needs, already
// bound to one local identity's address.
type Wire struct {
	Identity domain.IdentityService
	Contacts *contact.Service
	Conv     *conversation.Service
	Client   domain.PostalBoxClient

	// newSync lazily builds a Driver once the local identity has been
	// loaded; commands that only touch identity or contact state never
	// pay for it.
	newSync func(domain.Identity) *syncer.Driver

	closeDB func() error
}

// NewSyncDriver returns a Driver for the given identity, wired to this
// Wire's contact store and conversation service.
func (w *Wire) NewSyncDriver(id domain.Identity) *syncer.Driver {
	return w.newSync(id)
}

// Close releases the underlying store handle. Commands should defer
// it right after a successful NewWire call.
func (w *Wire) Close() error {
	if w.closeDB == nil {
		return nil
	}
	return w.closeDB()
}
