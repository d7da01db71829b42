package boundary

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ErrNoPolygon is returned when a document carries no polygonal geometry
var ErrNoPolygon = errors.New("geometry contains no polygon")

// edgeTolerance absorbs float error when deciding whether a point sits on an edge
const edgeTolerance = 1e-12

// Region is a set of polygons, each an outer ring followed by optional holes.
// Coordinates follow GeoJSON order: X is longitude, Y is latitude.
type Region struct {
	polygons []orb.Polygon
	bound    orb.Bound
}

// NewRegion builds a region from polygons, ignoring empty ones
func NewRegion(polygons ...orb.Polygon) (*Region, error) {
	r := &Region{}
	for _, p := range polygons {
		if len(p) == 0 || len(p[0]) < 3 {
			continue
		}
		if len(r.polygons) == 0 {
			r.bound = p.Bound()
		} else {
			r.bound = r.bound.Union(p.Bound())
		}
		r.polygons = append(r.polygons, p)
	}
	if len(r.polygons) == 0 {
		return nil, ErrNoPolygon
	}
	return r, nil
}

// ParseGeoJSON decodes a Feature, FeatureCollection or bare geometry into a region
func ParseGeoJSON(data []byte) (*Region, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("invalid geojson: %w", err)
	}

	var geometries []orb.Geometry
	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("invalid feature collection: %w", err)
		}
		for _, f := range fc.Features {
			geometries = append(geometries, f.Geometry)
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("invalid feature: %w", err)
		}
		geometries = append(geometries, f.Geometry)
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("invalid geometry: %w", err)
		}
		geometries = append(geometries, g.Geometry())
	}

	var polygons []orb.Polygon
	for _, g := range geometries {
		switch geom := g.(type) {
		case orb.Polygon:
			polygons = append(polygons, geom)
		case orb.MultiPolygon:
			polygons = append(polygons, geom...)
		}
	}
	return NewRegion(polygons...)
}

// Contains reports whether the point lies inside the region.
// Points on an edge or vertex of any ring count as inside.
func (r *Region) Contains(lat, lng float64) bool {
	p := orb.Point{lng, lat}
	if !r.bound.Contains(p) {
		return false
	}
	for _, poly := range r.polygons {
		if polygonContains(poly, p) {
			return true
		}
	}
	return false
}

// Bound returns the bounding box of all polygons
func (r *Region) Bound() orb.Bound {
	return r.bound
}

// polygonContains defers the ray cast to planar. Hole edges belong to the
// region, which planar does not do, so edges are checked first.
func polygonContains(poly orb.Polygon, p orb.Point) bool {
	if onRing(poly[0], p) {
		return true
	}
	if !planar.RingContains(poly[0], p) {
		return false
	}
	for _, hole := range poly[1:] {
		if onRing(hole, p) {
			return true
		}
		if planar.RingContains(hole, p) {
			return false
		}
	}
	return true
}

// onRing reports whether p lies on any edge of the ring, open or closed
func onRing(ring orb.Ring, p orb.Point) bool {
	n := len(ring)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if onSegment(ring[j], ring[i], p) {
			return true
		}
	}
	return false
}

func onSegment(a, b, p orb.Point) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	scale := math.Max(1, math.Max(math.Abs(b[0]-a[0]), math.Abs(b[1]-a[1])))
	if math.Abs(cross) > edgeTolerance*scale {
		return false
	}
	return p[0] >= math.Min(a[0], b[0])-edgeTolerance && p[0] <= math.Max(a[0], b[0])+edgeTolerance &&
		p[1] >= math.Min(a[1], b[1])-edgeTolerance && p[1] <= math.Max(a[1], b[1])+edgeTolerance
}
