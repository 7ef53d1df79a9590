package replication

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replicore/ack"
	"replicore/dispatcher"
	"replicore/ids"
	"replicore/identity"
	"replicore/protocol"
	"replicore/registry"
)

type position struct{ X, Y int }

func positionDescriptor(store map[ids.StableId]position) registry.Descriptor {
	changed := map[ids.StableId]bool{}
	return registry.Descriptor{
		Kind: 1,
		Name: "position",
		Serialize: func(v any) ([]byte, error) {
			return json.Marshal(v.(position))
		},
		Deserialize: func(data []byte) (any, error) {
			var p position
			err := json.Unmarshal(data, &p)
			return p, err
		},
		Equal: func(a, b any) bool { return a.(position) == b.(position) },
		CollectChanged: func() []ids.StableId {
			var out []ids.StableId
			for id := range changed {
				out = append(out, id)
			}
			changed = map[ids.StableId]bool{}
			return out
		},
		Get: func(entity ids.StableId) (any, bool) {
			p, ok := store[entity]
			return p, ok
		},
		Apply: func(entity ids.StableId, value any) error {
			if value == nil {
				delete(store, entity)
				return nil
			}
			store[entity] = value.(position)
			changed[entity] = true
			return nil
		},
		Snapshot: func() map[ids.StableId]any {
			out := map[ids.StableId]any{}
			for id, p := range store {
				out[id] = p
			}
			return out
		},
		Restore: func(values map[ids.StableId]any) {
			for id, v := range values {
				store[id] = v.(position)
			}
		},
	}
}

func TestServerBuildUpdateSendsBaseloadThenClears(t *testing.T) {
	store := map[ids.StableId]position{10: {X: 1, Y: 2}}
	desc := positionDescriptor(store)
	table := registry.NewTable()
	table.Register(desc)

	clients := NewClients()
	clients.ConnectAt(1, ack.New(0), nil)
	disp := dispatcher.New(dispatcher.Requires{}, dispatcher.NewSizeEstimator(), dispatcher.NewLedger())
	server := NewServer(table, disp, clients)

	server.RunProducers(0)
	assert.False(t, clients.NeedsBaseload(1))

	msg, err := server.BuildUpdate(1, 0)
	require.NoError(t, err)
	require.Contains(t, msg.EntityUpdate, ids.StableId(10))
}

func TestClientApplyWritesThroughDescriptor(t *testing.T) {
	store := map[ids.StableId]position{}
	desc := positionDescriptor(store)
	table := registry.NewTable()
	table.Register(desc)

	spawned := map[ids.StableId]bool{}
	ident := identity.New(
		func(id ids.StableId) identity.Handle { spawned[id] = true; return id },
		func(h identity.Handle) {},
		func(h identity.Handle) bool { return true },
	)
	client := NewClient(table, ident)

	payload, err := json.Marshal(position{X: 5, Y: 6})
	require.NoError(t, err)
	msg := protocol.NewUpdateMessage(0)
	msg.Put(20, 1, payload)
	require.NoError(t, client.Apply(msg))

	assert.True(t, spawned[ids.StableId(20)])
	assert.Equal(t, position{X: 5, Y: 6}, store[20])
}
