// CLAUDE:SUMMARY Recommendation points CSV parsing (lat/lon or latitude/longitude, type, name, optional district) for the map layer.
package geo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Point is one recommended object on the map.
type Point struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	District string  `json:"district,omitempty"`
	Kind     Kind    `json:"kind"`
}

const (
	defaultType = "объект"
	defaultName = "Объект"
)

// DistrictFunc normalizes a raw district value. nil keeps values as written.
type DistrictFunc func(string) string

// ParsePoints reads a points CSV with a header row. Rows without finite
// coordinates are skipped.
func ParsePoints(r io.Reader, district DistrictFunc) ([]Point, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}

	get := func(record []string, names ...string) string {
		for _, n := range names {
			if i, ok := idx[n]; ok && i < len(record) {
				if v := strings.TrimSpace(record[i]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	var points []Point
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		lat, ok := parseCoord(get(record, "lat", "latitude"))
		if !ok {
			continue
		}
		lon, ok := parseCoord(get(record, "lon", "longitude"))
		if !ok {
			continue
		}

		p := Point{
			Lat:  lat,
			Lon:  lon,
			Type: get(record, "type"),
			Name: get(record, "name"),
		}
		if p.Type == "" {
			p.Type = defaultType
		}
		if p.Name == "" {
			p.Name = defaultName
		}
		if raw := get(record, "district"); raw != "" {
			p.District = raw
			if district != nil {
				p.District = district(raw)
			}
		}
		p.Kind = Classify(p.Type)
		points = append(points, p)
	}
	return points, nil
}

func parseCoord(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// InDistrict returns the points located in district. An empty district
// returns all points.
func InDistrict(points []Point, district string) []Point {
	if district == "" {
		return points
	}
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if p.District == district {
			out = append(out, p)
		}
	}
	return out
}
