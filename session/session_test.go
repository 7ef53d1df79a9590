package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replicore/ids"
	"replicore/protocol"
)

func TestAcceptRejectsProtocolMismatch(t *testing.T) {
	guard := NewGuard()
	msg := Accept(1, Connect{ProtocolId: 1}, protocol.ProtocolId(2), guard)
	require.NotNil(t, msg.Rejected)
	assert.Nil(t, msg.Accepted)
}

func TestAcceptGrantsOnMatch(t *testing.T) {
	guard := NewGuard()
	msg := Accept(42, Connect{ProtocolId: 5}, protocol.ProtocolId(5), guard)
	require.NotNil(t, msg.Accepted)
	assert.Equal(t, ids.ClientId(42), msg.Accepted.Client)
}

func TestGuardAdmitsOnceThenReplaysCached(t *testing.T) {
	guard := NewGuard()
	assert.True(t, guard.Admit(1, Accepted{Client: 1}))
	assert.False(t, guard.Admit(1, Accepted{Client: 1}))
	cached, ok := guard.Cached(1)
	assert.True(t, ok)
	assert.Equal(t, ids.ClientId(1), cached.Client)
}

func TestForgetAllowsFreshAdmit(t *testing.T) {
	guard := NewGuard()
	guard.Admit(1, Accepted{Client: 1})
	guard.Forget(1)
	assert.True(t, guard.Admit(1, Accepted{Client: 1}))
}
