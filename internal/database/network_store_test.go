package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cluster-tour-router/internal/models"
)

func TestNetworkStoreDefault(t *testing.T) {
	store, err := NewNetworkStore("")
	require.NoError(t, err)

	net, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12, net.Size())
	assert.Equal(t, 0, net.Start)
	assert.Equal(t, []int{6, 11}, net.Hubs())
	assert.Len(t, net.Clusters(), 2)
	assert.True(t, net.SameCluster(0, 11))
	assert.False(t, net.SameCluster(0, 6))
}

func TestNetworkStoreLoadReturnsCopy(t *testing.T) {
	store, err := NewNetworkStore("")
	require.NoError(t, err)

	first, err := store.Load(context.Background())
	require.NoError(t, err)
	first.Locations[0].Name = "changed"

	second, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Berlin Residence, Berlin, Germany", second.Locations[0].Name)
}

func TestNetworkStoreFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "network.json")
	want := &models.Network{
		Name:  "small",
		Start: 0,
		Locations: []models.Location{
			{Name: "home", Cluster: "a"},
			{Name: "port-a", Cluster: "a", Hub: true},
			{Name: "port-b", Cluster: "b", Hub: true, Coords: &models.Coordinates{Lat: 1, Lng: 2}},
		},
	}
	require.NoError(t, SaveNetwork(path, want))

	store, err := NewNetworkStore(path)
	require.NoError(t, err)
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestNetworkStoreRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := NewNetworkStore(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{not json"), 0600))
	_, err = NewNetworkStore(garbage)
	assert.ErrorIs(t, err, ErrInvalidNetwork)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"locations":[]}`), 0600))
	_, err = NewNetworkStore(empty)
	assert.ErrorIs(t, err, ErrInvalidNetwork)

	for name, body := range map[string]string{
		"unnamed":      `{"locations":[{"cluster":"a"}]}`,
		"no cluster":   `{"locations":[{"name":"home"}]}`,
		"bad latitude": `{"locations":[{"name":"home","cluster":"a","coords":{"lat":91,"lng":0}}]}`,
		"bad start":    `{"start":-1,"locations":[{"name":"home","cluster":"a"}]}`,
	} {
		path := filepath.Join(dir, name+".json")
		require.NoError(t, os.WriteFile(path, []byte(body), 0600))
		_, err = NewNetworkStore(path)
		assert.ErrorIs(t, err, ErrInvalidNetwork, name)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, SaveConfig(path, &AppConfig{CacheDBPath: "/tmp/x.db", NetworkFile: "/tmp/net.json"}))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.CacheDBPath)
	assert.Equal(t, "/tmp/net.json", cfg.NetworkFile)
}
