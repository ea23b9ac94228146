package storage

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"screedflow/models"
)

//go:embed seed.yaml
var seedYAML []byte

// DefaultSeed decodes the embedded seed data.
func DefaultSeed() (models.Snapshot, error) {
	return ParseSeed(seedYAML)
}

// ParseSeed decodes a YAML seed document. The document is re-encoded as JSON so the
// models' json tags and DateOnly decoding apply unchanged.
func ParseSeed(data []byte) (models.Snapshot, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return models.Snapshot{}, fmt.Errorf("parse seed: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("convert seed: %w", err)
	}
	var snap models.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode seed: %w", err)
	}
	return snap, nil
}
