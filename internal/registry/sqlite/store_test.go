// internal/registry/sqlite/store_test.go
package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/solaredge-bridge/internal/registry"
)

var (
	_ registry.Registry = (*Store)(nil)
	_ registry.Lister   = (*Store)(nil)
	_ registry.Deleter  = (*Store)(nil)
)

func open(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func custom(unit string) registry.Descriptor {
	return registry.Descriptor{Type: 0xF3, Subtype: 0x1F, Options: map[string]string{"Custom": "1;" + unit}}
}

func TestStore_CreateGetUpdate(t *testing.T) {
	s, _ := open(t)

	ok, err := s.Exists(14)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Create(14, "Inverter Frequency", custom("Hz")))

	ok, err = s.Exists(14)
	require.NoError(t, err)
	assert.True(t, ok)

	e, err := s.Get(14)
	require.NoError(t, err)
	assert.Equal(t, "Inverter Frequency", e.Name)
	assert.True(t, e.Descriptor.Equal(custom("Hz")))
	assert.Empty(t, e.Value)

	require.NoError(t, s.Update(14, custom("Hz"), "50.01"))
	e, err = s.Get(14)
	require.NoError(t, err)
	assert.Equal(t, "50.01", e.Value)
}

func TestStore_NotFound(t *testing.T) {
	s, _ := open(t)

	_, err := s.Get(1)
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.ErrorIs(t, s.Update(1, registry.Descriptor{}, "x"), registry.ErrNotFound)
	assert.ErrorIs(t, s.Delete(1), registry.ErrNotFound)
}

func TestStore_CreateDuplicateAndNegative(t *testing.T) {
	s, _ := open(t)

	require.NoError(t, s.Create(1, "Status", registry.Descriptor{Type: 0xF3, Subtype: 0x13}))
	assert.Error(t, s.Create(1, "Status", registry.Descriptor{}))
	assert.Error(t, s.Create(-1, "Bad", registry.Descriptor{}))
}

func TestStore_EmptyOptionsRoundTripAsNil(t *testing.T) {
	s, _ := open(t)

	require.NoError(t, s.Create(2, "Power", registry.Descriptor{Type: 0xF8, Subtype: 0x01, Options: map[string]string{}}))
	e, err := s.Get(2)
	require.NoError(t, err)
	assert.Nil(t, e.Descriptor.Options)
}

func TestStore_ListAndDelete(t *testing.T) {
	s, _ := open(t)

	for _, id := range []int{30, 1, 26} {
		require.NoError(t, s.Create(id, "e", registry.Descriptor{}))
	}

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int{1, 26, 30}, []int{list[0].ID, list[1].ID, list[2].ID})

	require.NoError(t, s.Delete(26))
	list, err = s.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	s, path := open(t)
	require.NoError(t, s.Create(5, "Meter1 Power", custom("W")))
	require.NoError(t, s.Update(5, custom("W"), "1200.00"))
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()

	e, err := again.Get(5)
	require.NoError(t, err)
	assert.Equal(t, "1200.00", e.Value)
	assert.Equal(t, "1;W", e.Descriptor.Options["Custom"])
}
