package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replicore/ack"
	"replicore/ids"
	"replicore/tick"
)

func TestUpdateMessageRoundTrip(t *testing.T) {
	codec := NewCodec(FlateCompressor{})
	m := NewUpdateMessage(42)
	m.ArrivalDeviation = ArrivalStats{Mean: 0.03, Stddev: 0.002}
	m.Put(1, 5, []byte("hello"))
	m.EntityDespawn = append(m.EntityDespawn, ids.StableId(9))

	data, err := codec.EncodeUpdate(m)
	require.NoError(t, err)

	got, err := codec.DecodeUpdate(data)
	require.NoError(t, err)
	assert.Equal(t, m.Tick, got.Tick)
	assert.Equal(t, m.ArrivalDeviation, got.ArrivalDeviation)
	assert.Equal(t, []byte("hello"), got.EntityUpdate[1][5])
	assert.Equal(t, []ids.StableId{9}, got.EntityDespawn)
}

func TestClientInputMessageRoundTrip(t *testing.T) {
	codec := NewCodec(nil)
	a := ack.New(10)
	a.Ack(9)
	m := &ClientInputMessage{
		Tick:   10,
		Ack:    a,
		Inputs: map[tick.Tick][]byte{9: []byte("jump")},
	}
	data, err := codec.EncodeInput(m)
	require.NoError(t, err)
	got, err := codec.DecodeInput(data)
	require.NoError(t, err)
	assert.Equal(t, m.Tick, got.Tick)
	assert.Equal(t, m.Ack.Base, got.Ack.Base)
	assert.Equal(t, m.Ack.Bits, got.Ack.Bits)
	assert.Equal(t, []byte("jump"), got.Inputs[9])
}

func TestProtocolIdStableUnderReordering(t *testing.T) {
	a := ComputeProtocolId([]string{"ServerMessage.v1", "EntityUpdate.v1"})
	b := ComputeProtocolId([]string{"EntityUpdate.v1", "ServerMessage.v1"})
	assert.Equal(t, a, b)

	c := ComputeProtocolId([]string{"ServerMessage.v2", "EntityUpdate.v1"})
	assert.NotEqual(t, a, c)
}
