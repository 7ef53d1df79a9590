package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replicore/ids"
)

type fakeHandle struct{ n int }

func TestResolveOrSpawnCreatesOnce(t *testing.T) {
	spawned := 0
	m := New(
		func(id ids.StableId) Handle { spawned++; return &fakeHandle{n: spawned} },
		func(h Handle) {},
		func(h Handle) bool { return true },
	)
	id := ids.StableId(7)
	h1 := m.ResolveOrSpawn(id)
	h2 := m.ResolveOrSpawn(id)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 1, spawned)
}

func TestStableIdAppearsAtMostOnce(t *testing.T) {
	m := New(
		func(id ids.StableId) Handle { return &fakeHandle{n: int(id)} },
		func(h Handle) {},
		func(h Handle) bool { return true },
	)
	m.ResolveOrSpawn(1)
	m.ResolveOrSpawn(2)
	assert.Equal(t, 2, m.Len())
	id, ok := m.StableIdOf(func() Handle { h, _ := m.Resolve(1); return h }())
	require.True(t, ok)
	assert.Equal(t, ids.StableId(1), id)
}

func TestCleanDropsDeadHandles(t *testing.T) {
	live := map[*fakeHandle]bool{}
	m := New(
		func(id ids.StableId) Handle {
			h := &fakeHandle{n: int(id)}
			live[h] = true
			return h
		},
		func(h Handle) {},
		func(h Handle) bool { return live[h.(*fakeHandle)] },
	)
	h := m.ResolveOrSpawn(5).(*fakeHandle)
	live[h] = false
	m.Clean()
	assert.Equal(t, 0, m.Len())
}

func TestDisconnectDespawnsAndEmpties(t *testing.T) {
	var despawned []ids.StableId
	m := New(
		func(id ids.StableId) Handle { return &fakeHandle{n: int(id)} },
		func(h Handle) { despawned = append(despawned, ids.StableId(h.(*fakeHandle).n)) },
		func(h Handle) bool { return true },
	)
	m.ResolveOrSpawn(1)
	m.ResolveOrSpawn(2)
	m.Disconnect()
	assert.Equal(t, 0, m.Len())
	assert.ElementsMatch(t, []ids.StableId{1, 2}, despawned)
}
