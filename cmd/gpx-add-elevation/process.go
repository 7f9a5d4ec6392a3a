package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/pspoerri/gpxelevation/internal/elevation"
	"github.com/pspoerri/gpxelevation/internal/log"
	"github.com/pspoerri/gpxelevation/internal/track"
)

var errMissingInput = errors.New("input file does not exist")

// processFile enriches one GPX file and writes it to j.output. Nothing is
// written when enrichment fails.
func processFile(ctx context.Context, c *elevation.Coordinator, mode elevation.Mode, j job) error {
	if fi, err := os.Stat(j.input); err != nil || !fi.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", errMissingInput, j.input)
	}

	log.Infow("processing file", "file", j.input, "mode", mode)
	doc, err := track.Load(j.input)
	if err != nil {
		return err
	}

	used, err := c.AddElevation(ctx, doc, mode)
	if err != nil {
		return fmt.Errorf("add elevation: %w", err)
	}
	if used != mode {
		log.Infow("used fallback data", "file", j.input, "requested", mode, "mode", used)
	} else {
		log.Infow("added elevation", "file", j.input, "mode", used, "points", doc.Len())
	}

	if err := doc.Save(j.output); err != nil {
		return err
	}
	log.Infow("wrote GPX", "file", j.output)
	return nil
}
