package tour

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cluster-tour-router/internal/database"
	"cluster-tour-router/internal/models"
)

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"zero sentinel", func(p *Policy) { p.SentinelHigh = 0 }},
		{"zero inter-cluster penalty", func(p *Policy) { p.PenaltyInterCluster = 0 }},
		{"negative weight", func(p *Policy) { p.PenaltyWeight = -1 }},
		{"negative linking", func(p *Policy) { p.LinkingCost = -1 }},
		{"negative return linking", func(p *Policy) { p.ReturnLinkingCost = -5 }},
		{"negative fallback", func(p *Policy) { p.FallbackLocalMinutes = -1 }},
		{"no mode", func(p *Policy) { p.TravelMode = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			assert.Error(t, p.Validate())
		})
	}
}

func TestValidateNetworkReturnsLink(t *testing.T) {
	link, err := ValidateNetwork(fourNodes())
	require.NoError(t, err)
	assert.Equal(t, Link{From: 1, To: 2}, link)

	assert.True(t, link.IsLinking(1, 2))
	assert.True(t, link.IsLinking(2, 1))
	assert.False(t, link.IsLinking(0, 2))
}

func TestValidateNetworkDefault(t *testing.T) {
	link, err := ValidateNetwork(database.DefaultNetwork())
	require.NoError(t, err)
	assert.Equal(t, Link{From: 11, To: 6}, link)
}

func TestValidateNetworkRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Network) *models.Network
	}{
		{"nil", func(*models.Network) *models.Network { return nil }},
		{"single node", func(n *models.Network) *models.Network { n.Locations = n.Locations[:1]; return n }},
		{"start not zero", func(n *models.Network) *models.Network { n.Start = 3; return n }},
		{"empty name", func(n *models.Network) *models.Network { n.Locations[3].Name = ""; return n }},
		{"empty cluster", func(n *models.Network) *models.Network { n.Locations[3].Cluster = ""; return n }},
		{"one cluster", func(n *models.Network) *models.Network {
			for i := range n.Locations {
				n.Locations[i].Cluster = "a"
			}
			return n
		}},
		{"three clusters", func(n *models.Network) *models.Network { n.Locations[3].Cluster = "c"; return n }},
		{"two hubs in a cluster", func(n *models.Network) *models.Network { n.Locations[3].Hub = true; return n }},
		{"cluster without hub", func(n *models.Network) *models.Network { n.Locations[2].Hub = false; return n }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateNetwork(tt.mutate(fourNodes()))
			requireTourFailed(t, err, KindInvalidNetwork)
		})
	}
}
