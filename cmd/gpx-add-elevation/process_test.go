package main

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspoerri/gpxelevation/internal/elevation"
	"github.com/pspoerri/gpxelevation/internal/track"
)

const rideGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg>
    <trkpt lat="47.3769" lon="8.5417"></trkpt>
    <trkpt lat="47.3770" lon="8.5427"></trkpt>
  </trkseg></trk>
</gpx>
`

// flatSource is a dem.Source with the same height everywhere.
type flatSource float64

func (f flatSource) Elevation(lon, lat float64) (float64, error) { return float64(f), nil }
func (f flatSource) Close() error                                { return nil }

type failingProvider struct{ err error }

func (p failingProvider) Enrich(context.Context, elevation.Track) error { return p.err }

func writeGPX(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(rideGPX), 0o644))
	return path
}

func TestProcessFile_WritesOutput(t *testing.T) {
	dir := t.TempDir()
	in := writeGPX(t, dir, "ride.gpx")
	out := filepath.Join(dir, "ride-ele.gpx")

	raster := elevation.NewRasterProviderFromSource(flatSource(512), 0)
	c := elevation.NewCoordinator(raster, nil, nil)

	require.NoError(t, processFile(context.Background(), c, elevation.Raster, job{in, out}))

	doc, err := track.Load(out)
	require.NoError(t, err)
	require.Equal(t, 2, doc.Len())
	for i := 0; i < doc.Len(); i++ {
		e, ok := doc.Elevation(i)
		assert.True(t, ok)
		assert.Equal(t, 512.0, e)
	}

	// The input is untouched.
	orig, err := track.Load(in)
	require.NoError(t, err)
	_, ok := orig.Elevation(0)
	assert.False(t, ok)
}

func TestProcessFile_FallbackStillWrites(t *testing.T) {
	dir := t.TempDir()
	in := writeGPX(t, dir, "ride.gpx")

	raster := elevation.NewRasterProviderFromSource(flatSource(300), 0)
	down := failingProvider{assert.AnError}
	c := elevation.NewCoordinator(raster, down, down)

	require.NoError(t, processFile(context.Background(), c, elevation.PointAPI, job{in, in}))
	doc, err := track.Load(in)
	require.NoError(t, err)
	e, ok := doc.Elevation(1)
	assert.True(t, ok)
	assert.Equal(t, 300.0, e)
}

func TestProcessFile_FailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	in := writeGPX(t, dir, "ride.gpx")
	out := filepath.Join(dir, "out.gpx")

	raster := elevation.NewRasterProviderFromSource(flatSource(math.NaN()), 0)
	c := elevation.NewCoordinator(raster, failingProvider{assert.AnError}, nil)

	err := processFile(context.Background(), c, elevation.PointAPI, job{in, out})
	var fe *elevation.FallbackError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, elevation.ErrDataUnavailable)
	assert.NoFileExists(t, out)
}

func TestProcessFile_MissingInput(t *testing.T) {
	c := elevation.NewCoordinator(nil, nil, nil)
	dir := t.TempDir()

	err := processFile(context.Background(), c, elevation.Raster, job{filepath.Join(dir, "nope.gpx"), filepath.Join(dir, "x.gpx")})
	assert.ErrorIs(t, err, errMissingInput)

	err = processFile(context.Background(), c, elevation.Raster, job{dir, dir})
	assert.ErrorIs(t, err, errMissingInput)
}

func TestProcessFile_InvalidGPX(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.gpx")
	require.NoError(t, os.WriteFile(in, []byte(`<gpx version="1.1"><trk><trkseg>`), 0o644))

	c := elevation.NewCoordinator(elevation.NewRasterProviderFromSource(flatSource(1), 0), nil, nil)
	err := processFile(context.Background(), c, elevation.Raster, job{in, in})
	require.Error(t, err)
	assert.NotErrorIs(t, err, errMissingInput)
}
