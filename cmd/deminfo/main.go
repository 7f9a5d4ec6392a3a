// Command deminfo prints what an elevation model file contains and
// optionally samples it at one WGS84 position.
package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pspoerri/gpxelevation/internal/cog"
	"github.com/pspoerri/gpxelevation/internal/coord"
	"github.com/pspoerri/gpxelevation/internal/dem"
	"github.com/pspoerri/gpxelevation/internal/geoadmin"
	"github.com/pspoerri/gpxelevation/internal/pmtiles"
)

type options struct {
	lon, lat float64
	zoom     int
	encoding string
	reframe  bool
	timeout  time.Duration
	endpoint string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "deminfo [flags] <file.tif|file.pmtiles|file.hgt>",
		Short: "Describe an elevation model and sample it",
		Long: `Describe a GeoTIFF/COG, terrarium PMTiles archive or SRTM .hgt tile.

With --lon and --lat the model is sampled there. --reframe also compares the
local LV95 approximation with the geo.admin.ch reframe service.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sample := cmd.Flags().Changed("lon") || cmd.Flags().Changed("lat")
			return o.run(cmd.Context(), cmd.OutOrStdout(), args[0], sample)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&o.lon, "lon", 0, "Longitude to sample (WGS84)")
	f.Float64Var(&o.lat, "lat", 0, "Latitude to sample (WGS84)")
	f.IntVar(&o.zoom, "zoom", 0, "PMTiles zoom to sample (0 = max zoom)")
	f.StringVar(&o.encoding, "encoding", "", "PMTiles elevation encoding (default: from metadata)")
	f.BoolVar(&o.reframe, "reframe", false, "Compare approximate and remote LV95 at --lon/--lat")
	f.DurationVar(&o.timeout, "timeout", 10*time.Second, "Timeout for --reframe")
	f.StringVar(&o.endpoint, "reframe-url", geoadmin.DefaultReframeURL, "Reframe service URL")
	return cmd
}

func (o *options) run(ctx context.Context, w io.Writer, path string, sample bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		src dem.Source
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".tif", ".tiff":
		err = describeTIFF(w, path)
		if err == nil && sample {
			src, err = dem.OpenGeoTIFF([]string{path})
		}
	case ".pmtiles":
		err = describePMTiles(w, path)
		if err == nil && sample {
			src, err = dem.OpenTerrarium(path, o.zoom, o.encoding)
		}
	case ".hgt":
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		fmt.Fprintf(w, "File: %s\nSRTM tile: %s\n", path, name)
		if sample {
			src, err = dem.OpenSRTM(filepath.Dir(path))
		}
	default:
		return fmt.Errorf("unsupported file type %q (want .tif, .pmtiles or .hgt)", ext)
	}
	if err != nil {
		return err
	}

	if sample {
		defer src.Close()
		v, err := src.Elevation(o.lon, o.lat)
		if err != nil {
			return err
		}
		if math.IsNaN(v) {
			fmt.Fprintf(w, "Elevation at %.6f, %.6f: no data\n", o.lon, o.lat)
		} else {
			fmt.Fprintf(w, "Elevation at %.6f, %.6f: %.2f m\n", o.lon, o.lat, v)
		}
	}

	if o.reframe {
		return o.compareReframe(ctx, w)
	}
	return nil
}

func describeTIFF(w io.Writer, path string) error {
	r, err := cog.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	ifd := r.IFD()
	geo := r.GeoInfo()
	fmt.Fprintf(w, "File: %s\n", path)
	fmt.Fprintf(w, "EPSG: %d\n", r.EPSG())
	fmt.Fprintf(w, "Size: %d x %d\n", r.Width(), r.Height())
	fmt.Fprintf(w, "Pixel size (CRS units): %f x %f\n", geo.PixelSizeX, geo.PixelSizeY)
	fmt.Fprintf(w, "Sample: %d-bit format %d, compression %d, predictor %d\n",
		ifd.BitsPerSample, ifd.SampleFormat, ifd.Compression, ifd.Predictor)
	bw, bh := ifd.BlockSize()
	layout := "strips"
	if ifd.Tiled() {
		layout = "tiles"
	}
	fmt.Fprintf(w, "Layout: %s of %d x %d (%d x %d blocks)\n", layout, bw, bh, ifd.BlocksAcross(), ifd.BlocksDown())
	fmt.Fprintf(w, "Overviews: %d\n", r.NumOverviews())
	if nd, ok := r.NoData(); ok {
		fmt.Fprintf(w, "NoData: %g\n", nd)
	}
	minX, minY, maxX, maxY := r.BoundsInCRS()
	fmt.Fprintf(w, "Bounds (CRS): X=[%f, %f], Y=[%f, %f]\n", minX, maxX, minY, maxY)
	b := r.BoundsWGS84()
	fmt.Fprintf(w, "Bounds (WGS84): lon [%.6f, %.6f], lat [%.6f, %.6f]\n", b.MinLon, b.MaxLon, b.MinLat, b.MaxLat)
	return nil
}

func describePMTiles(w io.Writer, path string) error {
	r, err := pmtiles.OpenReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	h := r.Header()
	fmt.Fprintf(w, "File: %s\n", path)
	fmt.Fprintf(w, "Tile type: %s\n", pmtiles.TileTypeName(h.TileType))
	fmt.Fprintf(w, "Zoom: %d-%d\n", h.MinZoom, h.MaxZoom)
	fmt.Fprintf(w, "Tiles: %d addressed, %d entries, %d contents\n", h.NumAddressedTiles, h.NumTileEntries, h.NumTileContents)
	fmt.Fprintf(w, "Bounds (WGS84): lon [%.6f, %.6f], lat [%.6f, %.6f]\n", h.MinLon, h.MaxLon, h.MinLat, h.MaxLat)

	meta, err := r.ReadMetadata()
	if err != nil {
		return err
	}
	if enc, ok := meta["encoding"].(string); ok {
		fmt.Fprintf(w, "Encoding: %s\n", enc)
	}
	return nil
}

func (o *options) compareReframe(ctx context.Context, w io.Writer) error {
	approx, err := coord.NewReprojector(nil).Reproject(ctx, o.lon, o.lat, coord.Approximate)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "LV95 (approximate): E=%.3f N=%.3f\n", approx.Easting, approx.Northing)

	client := geoadmin.NewClient(geoadmin.NewHTTPClient(o.timeout),
		geoadmin.WithEndpoints(geoadmin.Endpoints{Reframe: o.endpoint}))
	remote, err := coord.NewReprojector(client).Reproject(ctx, o.lon, o.lat, coord.RemoteAPI)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "LV95 (reframe):     E=%.3f N=%.3f\n", remote.Easting, remote.Northing)
	fmt.Fprintf(w, "Difference: %.3f m\n", math.Hypot(remote.Easting-approx.Easting, remote.Northing-approx.Northing))
	return nil
}
