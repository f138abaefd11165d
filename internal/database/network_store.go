package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"

	"cluster-tour-router/internal/models"
)

var validate = validator.New()

// DefaultNetwork returns the built-in San Francisco/Berlin network. The tour
// starts at the Berlin residence and crosses between the clusters through
// the SFO and BER airports.
func DefaultNetwork() *models.Network {
	const (
		sf     = "san-francisco"
		berlin = "berlin"
	)
	return &models.Network{
		Name:  "sf-berlin",
		Start: 0,
		Locations: []models.Location{
			{Name: "Berlin Residence, Berlin, Germany", Cluster: berlin},
			{Name: "Pier 39, San Francisco, CA", Cluster: sf},
			{Name: "Salesforce Park, San Francisco, CA", Cluster: sf},
			{Name: "Bob's Doughnuts, San Francisco, CA", Cluster: sf},
			{Name: "851 California St, San Francisco, CA", Cluster: sf},
			{Name: "Union Square, San Francisco, CA", Cluster: sf},
			{Name: "San Francisco International Airport (SFO)", Cluster: sf, Hub: true},
			{Name: "Berlin TV Tower, Berlin, Germany", Cluster: berlin},
			{Name: "Berlin Zoological Garden, Berlin, Germany", Cluster: berlin},
			{Name: "Tempelhofer Feld, Berlin, Germany", Cluster: berlin},
			{Name: "East Side Gallery, Berlin, Germany", Cluster: berlin},
			{Name: "Berlin Brandenburg Airport (BER)", Cluster: berlin, Hub: true},
		},
	}
}

// NetworkStore loads the node configuration from a JSON file. An empty path
// serves DefaultNetwork. The file is read once and kept until Reload.
type NetworkStore struct {
	filePath string
	network  *models.Network
	mu       sync.RWMutex
}

// NewNetworkStore creates a network store and performs the initial load
func NewNetworkStore(filePath string) (*NetworkStore, error) {
	s := &NetworkStore{filePath: filePath}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load returns a copy of the current network
func (s *NetworkStore) Load(ctx context.Context) (*models.Network, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.network == nil {
		return nil, ErrNotFound
	}
	out := *s.network
	out.Locations = append([]models.Location(nil), s.network.Locations...)
	return &out, nil
}

// Reload re-reads the network file
func (s *NetworkStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filePath == "" {
		s.network = DefaultNetwork()
		log.Printf("Using built-in network: name=%s locations=%d", s.network.Name, len(s.network.Locations))
		return nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return fmt.Errorf("failed to read network file: %w", err)
	}

	var network models.Network
	if err := json.Unmarshal(data, &network); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNetwork, err)
	}
	if len(network.Locations) == 0 {
		return fmt.Errorf("%w: no locations", ErrInvalidNetwork)
	}
	if err := validate.Struct(&network); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidNetwork, err)
	}
	if network.Name == "" {
		network.Name = s.filePath
	}

	s.network = &network
	log.Printf("Loaded network: file=%s name=%s locations=%d", s.filePath, network.Name, len(network.Locations))
	return nil
}

// SaveNetwork writes a network as indented JSON, atomically
func SaveNetwork(path string, network *models.Network) error {
	data, err := json.MarshalIndent(network, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal network: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
