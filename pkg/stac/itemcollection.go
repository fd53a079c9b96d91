package stac

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ItemCollection is an ordered set of Items accumulated across search pages,
// together with the deduplicated collection metadata the items reference and
// the search document that produced them. Once handed to a caller it is
// treated as a finished, read-only value.
type ItemCollection struct {
	Type        string          `json:"type"`
	Features    []Item          `json:"features"`
	Collections []Collection    `json:"collections,omitempty"`
	Found       int             `json:"found"`
	Search      json.RawMessage `json:"search,omitempty"`
}

// NewItemCollection creates an empty ItemCollection
func NewItemCollection() *ItemCollection {
	return &ItemCollection{
		Type:     "FeatureCollection",
		Features: []Item{},
	}
}

// Len returns the number of items held
func (ic *ItemCollection) Len() int {
	return len(ic.Features)
}

// ItemIDs returns the IDs of all held items in order
func (ic *ItemCollection) ItemIDs() []string {
	ids := make([]string, len(ic.Features))
	for i, item := range ic.Features {
		ids[i] = item.ID
	}
	return ids
}

// Collection returns the referenced collection metadata by ID
func (ic *ItemCollection) Collection(id string) (Collection, bool) {
	for _, c := range ic.Collections {
		if c.ID == id {
			return c, true
		}
	}
	return Collection{}, false
}

// AddCollection records collection metadata, deduplicating by ID
func (ic *ItemCollection) AddCollection(c Collection) {
	if _, ok := ic.Collection(c.ID); ok {
		return
	}
	ic.Collections = append(ic.Collections, c)
}

// Save writes the ItemCollection to a JSON file atomically
func (ic *ItemCollection) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tempPath := path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(ic); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode item collection: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace file: %w", err)
	}

	return nil
}

// Load reads an ItemCollection from a JSON file
func Load(path string) (*ItemCollection, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open item collection file: %w", err)
	}
	defer file.Close()

	var ic ItemCollection
	if err := json.NewDecoder(file).Decode(&ic); err != nil {
		return nil, fmt.Errorf("failed to decode item collection: %w", err)
	}
	if ic.Type == "" {
		ic.Type = "FeatureCollection"
	}
	if ic.Features == nil {
		ic.Features = []Item{}
	}

	return &ic, nil
}
