package geo

import (
	"encoding/json"
	"fmt"
)

// ParseGeoJSON checks that data is a JSON object carrying a "type" member
// and returns it untouched. Geometry is left to the map renderer.
func ParseGeoJSON(data []byte) (json.RawMessage, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("geojson: %w", err)
	}
	if head.Type == "" {
		return nil, fmt.Errorf("geojson: missing type")
	}
	return json.RawMessage(data), nil
}
