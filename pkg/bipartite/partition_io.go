package bipartite

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LoadPartitionMap decodes a JSON object of community -> member ids.
// Community names may not contain ", "; Build rejects them.
func LoadPartitionMap(r io.Reader) (PartitionMap, error) {
	var pm PartitionMap
	if err := json.NewDecoder(r).Decode(&pm); err != nil {
		return nil, fmt.Errorf("failed to decode partition map: %w", err)
	}
	if pm == nil {
		pm = PartitionMap{}
	}
	return pm, nil
}

// SavePartitionMap encodes pm as indented JSON.
func SavePartitionMap(w io.Writer, pm PartitionMap) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pm); err != nil {
		return fmt.Errorf("failed to encode partition map: %w", err)
	}
	return nil
}

// ReadPartitionFile loads a partition map from a JSON file.
func ReadPartitionFile(path string) (PartitionMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open partition map: %w", err)
	}
	defer f.Close()
	return LoadPartitionMap(f)
}

// WritePartitionFile saves a partition map to a JSON file.
func WritePartitionFile(path string, pm PartitionMap) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create partition map: %w", err)
	}
	if err := SavePartitionMap(f, pm); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
