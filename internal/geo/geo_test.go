package geo

import (
	"errors"
	"math"
	"testing"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_Origin(t *testing.T) {
	x, y, err := Project(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, x, 1e-6)
	assert.InDelta(t, 0, y, 1e-6)
}

func TestProject_KnownPoint(t *testing.T) {
	// 3857 x is linear in longitude: R * lon in radians
	x, y, err := Project(-79.898025, 40.448985)
	require.NoError(t, err)
	assert.InDelta(t, 6378137*(-79.898025)*math.Pi/180, x, 0.5)

	wantY := 6378137 * math.Log(math.Tan(math.Pi/4+40.448985*math.Pi/360))
	assert.InDelta(t, wantY, y, 0.5)
}

func TestProject_Invalid(t *testing.T) {
	cases := []struct {
		name     string
		lon, lat float64
	}{
		{"lon too large", 181, 0},
		{"lat beyond mercator", 0, 89},
		{"nan lat", 0, math.NaN()},
		{"nan lon", math.NaN(), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Project(tc.lon, tc.lat)
			assert.True(t, errors.Is(err, ErrInvalidCoordinates))
		})
	}
}

func TestPoint3857_CarriesAltitude(t *testing.T) {
	pt, err := Point3857(10, 20, 372.5)
	require.NoError(t, err)

	coords, ok := pt.Coordinates()
	require.True(t, ok)
	assert.Equal(t, 372.5, coords.Z)
	assert.Equal(t, geom.DimXYZ, pt.CoordinatesType())

	x, y, err := Project(10, 20)
	require.NoError(t, err)
	assert.Equal(t, x, coords.X)
	assert.Equal(t, y, coords.Y)
}

func TestPoint3857_InvalidIsEmpty(t *testing.T) {
	pt, err := Point3857(0, 90, 0)
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.True(t, pt.IsEmpty())
}

func TestTrack(t *testing.T) {
	ls, err := Track([][3]float64{
		{-79.9, 40.4, 372},
		{-79.9, 40.5, 380},
		{-79.8, 40.5, 390},
	})
	require.NoError(t, err)

	seq := ls.Coordinates()
	require.Equal(t, 3, seq.Length())
	assert.Equal(t, 380.0, seq.Get(1).Z)

	x0, _, _ := Project(-79.9, 40.4)
	assert.Equal(t, x0, seq.GetXY(0).X)
}

func TestTrack_TooShort(t *testing.T) {
	_, err := Track([][3]float64{{0, 0, 0}})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
}

func TestTrack_InvalidPoint(t *testing.T) {
	_, err := Track([][3]float64{{0, 0, 0}, {0, 89, 0}})
	assert.ErrorIs(t, err, ErrInvalidCoordinates)
	assert.Contains(t, err.Error(), "point 1")
}
