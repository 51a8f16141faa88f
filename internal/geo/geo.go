// Package geo projects geodetic positions into the web mercator plane used
// by the recorder's geometry columns.
package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// GEO POINTS
// Everything is stored as EPSG:3857 so SQLite, which has no spatial
// awareness, and PostGIS read the same WKB.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// MaxMercatorLatitude is the latitude limit of the web mercator projection.
const MaxMercatorLatitude = 85.05112878

var to3857 = wgs84.EPSG().Transform(4326, 3857)

// Project converts a longitude and latitude in degrees to 3857 metres.
func Project(longitude, latitude float64) (x, y float64, err error) {
	if math.IsNaN(longitude) || math.IsNaN(latitude) ||
		math.Abs(longitude) > 180 || math.Abs(latitude) > MaxMercatorLatitude {
		return 0, 0, fmt.Errorf("%w: lon %v lat %v", ErrInvalidCoordinates, longitude, latitude)
	}
	x, y, _ = to3857(longitude, latitude, 0)
	return x, y, nil
}

// Point3857 creates a 3857 point carrying the altitude as Z.
func Point3857(longitude, latitude, altitude float64) (geom.Point, error) {
	x, y, err := Project(longitude, latitude)
	if err != nil {
		return geom.NewEmptyPoint(geom.DimXYZ), err
	}
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Z:    altitude,
		Type: geom.DimXYZ,
	}), nil
}

// Track builds a 3857 line string from lon/lat/alt triples. At least two
// points are required.
func Track(points [][3]float64) (geom.LineString, error) {
	if len(points) < 2 {
		return geom.LineString{}, fmt.Errorf("%w: track needs at least 2 points, got %d", ErrInvalidCoordinates, len(points))
	}

	flat := make([]float64, 0, len(points)*3)
	for i, p := range points {
		x, y, err := Project(p[0], p[1])
		if err != nil {
			return geom.LineString{}, fmt.Errorf("point %d: %w", i, err)
		}
		flat = append(flat, x, y, p[2])
	}

	seq := geom.NewSequence(flat, geom.DimXYZ)
	return geom.NewLineString(seq), nil
}
