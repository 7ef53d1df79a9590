package registry

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAllocatesNextFreeIdAndPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)

	k, err := Open(path)
	require.NoError(t, err)

	a := k.Resolve("game.Transform")
	b := k.Resolve("game.Health")
	c := k.Resolve("game.Transform") // same name, same id
	assert.Equal(t, a, c)
	assert.NotEqual(t, a, b)

	require.NoError(t, k.Save())

	reopened, err := Open(path)
	require.NoError(t, err)
	got, ok := reopened.Lookup("game.Transform")
	require.True(t, ok)
	assert.Equal(t, a, got)
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	k, err := Open(filepath.Join(dir, "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Empty(t, k.Names())
}

func TestDescriptorTableRoundTrip(t *testing.T) {
	tbl := NewTable()
	ser, de := JSONCodec[string]()
	tbl.Register(Descriptor{
		Kind:        1,
		Name:        "string",
		Serialize:   ser,
		Deserialize: de,
	})
	d, ok := tbl.Get(1)
	require.True(t, ok)
	data, err := d.Serialize("hi")
	require.NoError(t, err)
	got, err := d.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, "hi", got)
}
