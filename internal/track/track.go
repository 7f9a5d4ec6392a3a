// Package track wraps a parsed GPX document as an ordered, mutable sequence
// of track points.
package track

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tkrajina/gpxgo/gpx"
)

// Document is a GPX file plus an index over its track points. Points are the
// concatenation of every segment of every track, in document order. Waypoints
// and routes are carried through serialization untouched.
type Document struct {
	gpx    *gpx.GPX
	points []*gpx.GPXPoint
}

// Load parses the GPX file at path.
func Load(path string) (*Document, error) {
	g, err := gpx.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return newDocument(g), nil
}

// Parse parses an in-memory GPX document.
func Parse(data []byte) (*Document, error) {
	g, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parsing gpx: %w", err)
	}
	return newDocument(g), nil
}

func newDocument(g *gpx.GPX) *Document {
	d := &Document{gpx: g}
	for ti := range g.Tracks {
		for si := range g.Tracks[ti].Segments {
			seg := &g.Tracks[ti].Segments[si]
			for pi := range seg.Points {
				d.points = append(d.points, &seg.Points[pi])
			}
		}
	}
	return d
}

// Len returns the number of track points.
func (d *Document) Len() int { return len(d.points) }

// Point returns the WGS84 position of point i.
func (d *Document) Point(i int) (lon, lat float64) {
	p := d.points[i]
	return p.Longitude, p.Latitude
}

// SetElevation sets the elevation of point i in meters.
func (d *Document) SetElevation(i int, meters float64) {
	d.points[i].Elevation.SetValue(meters)
}

// Elevation returns the elevation of point i and whether it is set.
func (d *Document) Elevation(i int) (float64, bool) {
	e := d.points[i].Elevation
	if e.Null() {
		return 0, false
	}
	return e.Value(), true
}

// XML serializes the current state of the document. GPX 1.0 inputs stay 1.0;
// everything else is written as 1.1.
func (d *Document) XML() ([]byte, error) {
	version := "1.1"
	if d.gpx.Version == "1.0" {
		version = "1.0"
	}
	b, err := d.gpx.ToXml(gpx.ToXmlParams{Version: version, Indent: true})
	if err != nil {
		return nil, fmt.Errorf("serializing gpx: %w", err)
	}
	return b, nil
}

// Save writes the document to path. The data goes to a temporary file in the
// same directory first and is renamed over path, so an existing file is never
// left truncated.
func (d *Document) Save(path string) error {
	b, err := d.XML()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming to %s: %w", path, err)
	}
	return nil
}
