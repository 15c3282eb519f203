package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mizu/internal/domain"
	"mizu/internal/services/conversation"
)

const (
	defaultInterval = 30 * time.Second
	defaultWorkers  = 4
)

// Driver polls every contact of a single identity for new postal box
// entries on a fixed interval, running up to Workers contacts
// concurrently per tick.
type Driver struct {
	Identity domain.Identity
	Contacts domain.ContactStore
	Conv     *conversation.Service
	Interval time.Duration
	Workers  int

	// OnMessage, if set, is called for each plaintext Sync decrypts,
	// in the order Sync returned them, after the tick's Save calls
	// have already completed.
	OnMessage func(contact domain.Contact, plaintext []byte)
}

// New constructs a Driver with sensible defaults for interval and
// worker count; override the fields directly before calling Run if
// different values are needed.
func New(identity domain.Identity, contacts domain.ContactStore, conv *conversation.Service) *Driver {
	return &Driver{
		Identity: identity,
		Contacts: contacts,
		Conv:     conv,
		Interval: defaultInterval,
		Workers:  defaultWorkers,
	}
}

// Run ticks every Interval until ctx is cancelled, syncing every
// contact on each tick. It blocks until ctx is done and the
// in-flight tick (if any) has finished.
func (d *Driver) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick syncs every contact once, Workers at a time.
func (d *Driver) tick(ctx context.Context) {
	contacts, err := d.Contacts.ListContacts(d.Identity.Address)
	if err != nil {
		slog.Error("sync: list contacts", "err", err)
		return
	}

	workers := d.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for _, c := range contacts {
		c := c
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			d.syncOne(ctx, c)
		}()
	}
	wg.Wait()
}

func (d *Driver) syncOne(ctx context.Context, c domain.Contact) {
	plaintexts, err := d.Conv.Sync(ctx, d.Identity, c)
	if err != nil {
		if domain.Kind(err) != "" {
			slog.Warn("sync: contact failed", "contact", c.Address, "kind", domain.Kind(err), "err", err)
		} else {
			slog.Error("sync: contact failed", "contact", c.Address, "err", err)
		}
		return
	}
	if d.OnMessage == nil {
		return
	}
	for _, pt := range plaintexts {
		d.OnMessage(c, pt)
	}
}

// RunOnce syncs every known contact exactly once and returns the
// first error encountered listing contacts, if any; per-contact sync
// failures are logged, not returned, matching Run's tick behaviour.
func (d *Driver) RunOnce(ctx context.Context) error {
	contacts, err := d.Contacts.ListContacts(d.Identity.Address)
	if err != nil {
		return fmt.Errorf("sync: list contacts: %w", err)
	}
	for _, c := range contacts {
		d.syncOne(ctx, c)
	}
	return nil
}
