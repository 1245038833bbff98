package plant

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPlant reads and parses a YAML plant definition.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadPlant(path string) (*Plant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plant definition: %w", err)
	}
	return ParsePlant(data)
}

// ParsePlant parses a YAML plant definition held in memory.
func ParsePlant(data []byte) (*Plant, error) {
	var p Plant
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&p); err != nil {
		return nil, fmt.Errorf("parsing plant definition: %w", err)
	}
	return &p, nil
}
