package web

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"ai-collection/server/internal/collection"
	"ai-collection/server/internal/interfaces"
)

// SyncerFactory builds the syncer for a newly seen owner
type SyncerFactory func(owner string) (*collection.Syncer, error)

type registryEntry struct {
	syncer      *collection.Syncer
	unsubscribe func()
}

// Registry holds one Syncer per signed-in owner and forwards each
// syncer's notices to the hub
type Registry struct {
	factory SyncerFactory
	hub     *NoticeHub

	mu      sync.RWMutex
	entries map[string]*registryEntry
}

func NewRegistry(factory SyncerFactory, hub *NoticeHub) *Registry {
	return &Registry{
		factory: factory,
		hub:     hub,
		entries: make(map[string]*registryEntry),
	}
}

// Get returns the owner's syncer, creating it on first use
func (r *Registry) Get(owner string) (*collection.Syncer, error) {
	r.mu.RLock()
	entry, ok := r.entries[owner]
	r.mu.RUnlock()
	if ok {
		return entry.syncer, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.entries[owner]; ok {
		return entry.syncer, nil
	}

	syncer, err := r.factory(owner)
	if err != nil {
		return nil, err
	}
	entry = &registryEntry{syncer: syncer, unsubscribe: func() {}}
	if r.hub != nil {
		hub := r.hub
		entry.unsubscribe = syncer.State().Subscribe(func(n collection.Notice) {
			hub.Publish(owner, n)
		})
	}
	r.entries[owner] = entry
	return syncer, nil
}

// Drop discards the owner's syncer and its in-memory records
func (r *Registry) Drop(owner string) {
	r.mu.Lock()
	entry, ok := r.entries[owner]
	delete(r.entries, owner)
	r.mu.Unlock()

	if ok {
		entry.unsubscribe()
		log.WithField("owner", owner).Debug("Dropped collection state")
	}
}

// Len returns the number of owners with live state
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Watch drops an owner's state whenever the identity provider reports a
// sign-out. It returns the unsubscribe func.
func (r *Registry) Watch(provider interfaces.IdentityProvider) func() {
	return provider.Observe(func(change interfaces.IdentityChange) {
		if change.User == nil {
			r.Drop(change.UserID)
		}
	})
}
