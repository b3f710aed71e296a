package dashboard

import (
	"fmt"

	"github.com/qoparu/qoparu/pkg/geo"
	"github.com/qoparu/qoparu/pkg/mapbridge"
)

// SelectDistrict toggles the selection. The raw name goes through the
// district normalizer so that map labels such as "Медеуский район" resolve
// to the canonical name. An empty name clears the selection.
func (s *Service) SelectDistrict(raw string) (mapbridge.SelectionChanged, error) {
	name := ""
	if raw != "" {
		name = s.scheme.District.Normalize(raw)
		if !s.scheme.Allowed(name) {
			return mapbridge.SelectionChanged{}, fmt.Errorf("%w: %q", ErrUnknownDistrict, raw)
		}
	}
	msg := s.hub.Select(name)
	s.metrics.IncrementSelection()
	s.logger.Debug("district selection changed", "raw", raw, "district", msg.District)
	return msg, nil
}

// HandleMessage processes one inbound map message.
func (s *Service) HandleMessage(m mapbridge.Message) (mapbridge.SelectionChanged, error) {
	ds, ok := m.(mapbridge.DistrictSelected)
	if !ok {
		return s.hub.Handle(m)
	}
	return s.SelectDistrict(ds.District)
}

// Selection returns the selected district, if any.
func (s *Service) Selection() (string, bool) {
	return s.hub.Selection()
}

// MapUpdate builds the full map refresh for the current snapshot and
// selection.
func (s *Service) MapUpdate() mapbridge.MapUpdate {
	return s.mapUpdate(s.Snapshot())
}

func (s *Service) mapUpdate(snap *Snapshot) mapbridge.MapUpdate {
	msg := mapbridge.MapUpdate{
		GeoData:    snap.GeoJSON,
		PointsData: snap.Points,
	}
	if d, ok := s.hub.Selection(); ok {
		msg.SelectedDistrict = &d
	}
	return msg
}

// PointsIn returns the points of the selected district, or all points
// when nothing is selected.
func (s *Service) PointsIn(district string) []geo.Point {
	return geo.InDistrict(s.Snapshot().Points, district)
}
