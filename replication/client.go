package replication

import (
	"replicore/identity"
	"replicore/protocol"
	"replicore/registry"
)

// Client runs the client-side half of replication: applying a received
// UpdateMessage onto the host store via the descriptor Table, resolving
// StableIds to local handles through the identity Map as entities are
// first seen (spec.md §4.6).
type Client struct {
	Descriptors *registry.Table
	Identity    *identity.Map
}

// NewClient wires a Client from its collaborators.
func NewClient(descriptors *registry.Table, ident *identity.Map) *Client {
	return &Client{Descriptors: descriptors, Identity: ident}
}

// Apply writes msg onto the host store, skipping any component whose
// current value already equals the received one. cmd/client calls it from
// its apply-update-history phase, which the driver runs at a rewind target
// and on each resim tick; the rewind phase itself restores snapshots through
// Descriptor.Restore, not through Apply.
func (c *Client) Apply(msg *protocol.UpdateMessage) error {
	for entity, kinds := range msg.EntityUpdate {
		// Resolving before applying ensures the host has a handle to write
		// into even for an entity seen for the first time this tick.
		c.Identity.ResolveOrSpawn(entity)
		for kind, payload := range kinds {
			desc, ok := c.Descriptors.Get(kind)
			if !ok {
				continue
			}
			value, err := desc.Deserialize(payload)
			if err != nil {
				return err
			}
			if desc.Equal != nil && desc.Get != nil {
				if cur, ok := desc.Get(entity); ok && desc.Equal(cur, value) {
					continue
				}
			}
			if err := desc.Apply(entity, value); err != nil {
				return err
			}
		}
	}
	for _, d := range msg.ComponentDespawn {
		desc, ok := c.Descriptors.Get(d.Kind)
		if !ok {
			continue
		}
		desc.Apply(d.Entity, nil)
	}
	for _, entity := range msg.EntityDespawn {
		c.Identity.Despawn(entity)
	}
	return nil
}
