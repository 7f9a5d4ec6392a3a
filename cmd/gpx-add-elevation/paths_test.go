package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanJobs(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0o755))

	for _, tc := range []struct {
		name      string
		inputs    []string
		output    string
		overwrite bool
		want      []job
	}{
		{
			name:   "in place",
			inputs: []string{"a/ride.gpx"},
			want:   []job{{"a/ride.gpx", "a/ride.gpx"}},
		},
		{
			name:   "output file",
			inputs: []string{"a/ride.gpx"},
			output: filepath.Join(dir, "new.gpx"),
			want:   []job{{"a/ride.gpx", filepath.Join(dir, "new.gpx")}},
		},
		{
			name:   "output directory",
			inputs: []string{"a/ride.gpx", "b/hike.gpx"},
			output: outDir,
			want: []job{
				{"a/ride.gpx", filepath.Join(outDir, "ride.gpx")},
				{"b/hike.gpx", filepath.Join(outDir, "hike.gpx")},
			},
		},
		{
			name:      "overwrite wins over output",
			inputs:    []string{"a/ride.gpx"},
			output:    outDir,
			overwrite: true,
			want:      []job{{"a/ride.gpx", "a/ride.gpx"}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := planJobs(tc.inputs, tc.output, tc.overwrite)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestPlanJobs_MultipleInputsNeedDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "exists.gpx")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	for _, output := range []string{file, filepath.Join(dir, "missing")} {
		_, err := planJobs([]string{"a.gpx", "b.gpx"}, output, false)
		assert.ErrorIs(t, err, errOutputNotDir)

		// The check applies even with --overwrite.
		_, err = planJobs([]string{"a.gpx", "b.gpx"}, output, true)
		assert.ErrorIs(t, err, errOutputNotDir)
	}
}
