package app

import (
	"fmt"
	"net/http"

	"mizu/internal/domain"
	"mizu/internal/rpc"
	"mizu/internal/services/contact"
	"mizu/internal/services/conversation"
	"mizu/internal/services/identity"
	"mizu/internal/store/sqlstore"
	syncer "mizu/internal/sync"
)

// NewWire opens the local store under cfg.Home and builds the
// services a command needs, bound to cfg.Address and talking to
// cfg.PostalBoxURL.
func NewWire(cfg Config) (*Wire, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("app: address is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	db, err := sqlstore.Open(cfg.Home + "/mizu.db")
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	client := rpc.NewClient(cfg.PostalBoxURL, httpClient)

	idStore := sqlstore.NewIdentityStore(db, cfg.Address)
	contactStore := sqlstore.NewContactStore(db)
	sessionStore := sqlstore.NewSessionStore(db, cfg.Passphrase)
	messageStore := sqlstore.NewMessageStore(db)

	idSvc := identity.New(idStore)
	contactSvc := contact.New(client, contactStore)
	convSvc := conversation.New(client, sessionStore, messageStore)

	return &Wire{
		Identity: idSvc,
		Contacts: contactSvc,
		Conv:     convSvc,
		Client:   client,
		newSync: func(id domain.Identity) *syncer.Driver {
			return syncer.New(id, contactStore, convSvc)
		},
		closeDB: db.Close,
	}, nil
}
