package main

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pspoerri/gpxelevation/internal/config"
	"github.com/pspoerri/gpxelevation/internal/coord"
	"github.com/pspoerri/gpxelevation/internal/dem"
	"github.com/pspoerri/gpxelevation/internal/elevation"
	"github.com/pspoerri/gpxelevation/internal/geoadmin"
	"github.com/pspoerri/gpxelevation/internal/log"
	"github.com/pspoerri/gpxelevation/internal/metrics"
)

type options struct {
	output     string
	mode       string
	overwrite  bool
	verbose    bool
	configPath string
	jobs       int
	progress   bool
}

func newRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "gpx-add-elevation [flags] <file.gpx>...",
		Short: "Add elevation data to GPX files",
		Long: `Add elevation data to the track points of GPX files.

Modes:
  swisstopo  one request per point to the geo.admin.ch height service (default)
  polyline   one profile request per track to the geo.admin.ch profile service
  srtm       offline elevation model (SRTM tiles, GeoTIFF or terrarium PMTiles)

When swisstopo or polyline fails, the offline model is used instead.

Without -o the input files are rewritten in place.`,
		Args:         cobra.MinimumNArgs(1),
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage: true,
		RunE:         o.run,
	}

	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "", "Output file, or directory when processing several files")
	f.StringVar(&o.mode, "mode", elevation.PointAPI.String(), "Elevation source: srtm, swisstopo or polyline")
	f.BoolVar(&o.overwrite, "overwrite", false, "Write results back to the input files")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "Debug logging")
	f.StringVar(&o.configPath, "config", "", "Config file (default: gpx-elevation.yaml in . or ~/.config/gpx-elevation)")
	f.String("raster-source", "srtm", "Offline elevation model: srtm, geotiff or terrarium")
	f.IntVar(&o.jobs, "jobs", 1, "Number of files processed in parallel")
	f.BoolVar(&o.progress, "progress", false, "Show a progress bar on stderr")
	f.String("metrics-file", "", "Write Prometheus metrics to this file when done")
	return cmd
}

func (o *options) run(cmd *cobra.Command, args []string) error {
	if err := log.Init(o.verbose); err != nil {
		return err
	}
	defer log.Sync()

	mode, err := elevation.ParseMode(o.mode)
	if err != nil {
		return err
	}
	cfg, err := config.Load(o.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	jobs, err := planJobs(args, o.output, o.overwrite)
	if err != nil {
		log.Errorw("invalid output", "output", o.output, "err", err)
		return err
	}

	coordinator, raster, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := raster.Close(); err != nil {
			log.Warnw("closing elevation model", "err", err)
		}
	}()

	start := time.Now()
	var written, failed, skipped atomic.Int32
	var bar *progress
	if o.progress {
		bar = newProgress(cmd.ErrOrStderr(), len(jobs), 200*time.Millisecond)
	}

	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(o.jobs, 1))
	for _, j := range jobs {
		g.Go(func() error {
			err := processFile(ctx, coordinator, mode, j)
			switch {
			case err == nil:
				written.Add(1)
				metrics.Files.WithLabelValues("ok").Inc()
			case errors.Is(err, errMissingInput):
				skipped.Add(1)
				metrics.Files.WithLabelValues("skipped").Inc()
				log.Errorw("input file does not exist", "file", j.input)
			default:
				failed.Add(1)
				metrics.Files.WithLabelValues("failed").Inc()
				log.Errorw("failed to process file", "file", j.input, "err", err)
			}
			if bar != nil {
				bar.Done(err == nil)
			}
			// Files are independent: never cancel the others.
			return nil
		})
	}
	_ = g.Wait()
	if bar != nil {
		bar.Finish()
	}

	log.Infow("done",
		"written", written.Load(),
		"failed", failed.Load(),
		"skipped", skipped.Load(),
		"elapsed", time.Since(start).Round(time.Millisecond))

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			log.Warnw("writing metrics file", "path", cfg.MetricsFile, "err", err)
		}
	}
	return nil
}

// newPipeline wires the providers to one shared HTTP client. The raster
// provider is returned so its model can be closed at the end of the run.
func newPipeline(cfg *config.Config) (*elevation.Coordinator, *elevation.RasterProvider, error) {
	demOpts, err := cfg.DEMOptions()
	if err != nil {
		return nil, nil, err
	}

	client := geoadmin.NewClient(
		geoadmin.NewHTTPClient(cfg.HTTP.Timeout),
		geoadmin.WithEndpoints(cfg.Endpoints()),
		geoadmin.WithUserAgent(cfg.HTTP.UserAgent+"/"+version),
	)
	reprojector := coord.NewReprojector(client)

	raster := elevation.NewRasterProvider(func() (dem.Source, error) {
		log.Debugw("opening elevation model", "source", demOpts.Kind)
		return dem.Open(demOpts)
	}, cfg.Raster.SmoothRadius)

	return elevation.NewCoordinator(
		raster,
		elevation.NewPointProvider(client, reprojector),
		elevation.NewProfileProvider(client, reprojector),
	), raster, nil
}
