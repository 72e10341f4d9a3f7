package memory

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/listingmap/pkg/errors"
	"github.com/agentstation/listingmap/pkg/listings"
)

// seedFile is the on-disk seed layout:
//
//	listings:
//	  - id: r1
//	    title: Sinza studio
//	    price: 500
//	    latitude: -6.77
//	    longitude: 39.22
//	    available: true
//
// Entries are stored as raw fields, so a malformed entry reaches
// subscribers unchanged.
type seedFile struct {
	Listings []map[string]any `yaml:"listings"`
}

// LoadSeed reads a YAML seed file into the store.
func (s *Store) LoadSeed(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.NewConfigError("store", fmt.Sprintf("cannot open seed %s", path), err)
	}
	defer f.Close() //nolint:errcheck

	n, err := s.Seed(f)
	if err != nil {
		return 0, errors.WrapParse("yaml", path, err)
	}
	return n, nil
}

// Seed reads YAML seed data and stores every entry. Entries without an id
// get a generated one. It returns the number of stored entries.
func (s *Store) Seed(r io.Reader) (int, error) {
	var seed seedFile
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range seed.Listings {
		id, _ := entry["id"].(string)
		delete(entry, "id")
		if id == "" {
			id = string(s.newID())
		}
		s.docs[listings.ID(id)] = entry
	}
	if len(seed.Listings) > 0 {
		s.publishLocked()
	}
	s.logger.Info().Int("listings", len(seed.Listings)).Msg("Seeded memory store")
	return len(seed.Listings), nil
}
