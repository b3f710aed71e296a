// CLAUDE:SUMMARY Closed set of messages exchanged with the embedded map document, JSON-tagged by a "type" discriminator.
package mapbridge

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/qoparu/qoparu/pkg/geo"
)

// Message type discriminators on the wire.
const (
	TypeDistrictSelected = "districtSelected"
	TypeSelectionChanged = "selectionChanged"
	TypeUpdateMap        = "updateMap"
)

// ErrUnknownMessage is returned by Decode for a missing or unrecognised type.
var ErrUnknownMessage = errors.New("mapbridge: unknown message type")

// Message is one of DistrictSelected, SelectionChanged or MapUpdate.
type Message interface {
	Type() string
	sealed()
}

// DistrictSelected is sent by the map when the user clicks a district.
type DistrictSelected struct {
	District string `json:"district"`
}

// SelectionChanged tells the map the selection moved. A nil District means
// the selection was cleared.
type SelectionChanged struct {
	District *string `json:"district"`
}

// MapUpdate pushes a full layer refresh to the map.
type MapUpdate struct {
	GeoData          json.RawMessage `json:"geoData,omitempty"`
	PointsData       []geo.Point     `json:"pointsData"`
	SelectedDistrict *string         `json:"selectedDistrict"`
}

func (DistrictSelected) Type() string { return TypeDistrictSelected }
func (SelectionChanged) Type() string { return TypeSelectionChanged }
func (MapUpdate) Type() string        { return TypeUpdateMap }

func (DistrictSelected) sealed() {}
func (SelectionChanged) sealed() {}
func (MapUpdate) sealed()        {}

// Encode marshals m with its type discriminator.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case DistrictSelected:
		return json.Marshal(struct {
			Type string `json:"type"`
			DistrictSelected
		}{v.Type(), v})
	case SelectionChanged:
		return json.Marshal(struct {
			Type string `json:"type"`
			SelectionChanged
		}{v.Type(), v})
	case MapUpdate:
		if v.PointsData == nil {
			v.PointsData = []geo.Point{}
		}
		return json.Marshal(struct {
			Type string `json:"type"`
			MapUpdate
		}{v.Type(), v})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, m)
	}
}

// Decode parses a wire message.
func Decode(data []byte) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("mapbridge: decode: %w", err)
	}

	switch head.Type {
	case TypeDistrictSelected:
		var m DistrictSelected
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("mapbridge: decode %s: %w", head.Type, err)
		}
		return m, nil
	case TypeSelectionChanged:
		var m SelectionChanged
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("mapbridge: decode %s: %w", head.Type, err)
		}
		return m, nil
	case TypeUpdateMap:
		var m MapUpdate
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("mapbridge: decode %s: %w", head.Type, err)
		}
		return m, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrUnknownMessage)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, head.Type)
	}
}
