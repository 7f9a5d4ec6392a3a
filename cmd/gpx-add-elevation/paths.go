package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var errOutputNotDir = errors.New("output must be a directory when processing multiple files")

// job is one input file and where its result goes.
type job struct {
	input  string
	output string
}

// planJobs resolves the output path of every input:
//   - --overwrite writes back to the input;
//   - an existing directory as output receives <dir>/<basename>;
//   - any other output path is used as is, which needs a single input;
//   - without output the input is rewritten in place.
func planJobs(inputs []string, output string, overwrite bool) ([]job, error) {
	outIsDir := false
	if output != "" {
		if fi, err := os.Stat(output); err == nil && fi.IsDir() {
			outIsDir = true
		}
	}
	if output != "" && len(inputs) > 1 && !outIsDir {
		return nil, fmt.Errorf("%w: %s", errOutputNotDir, output)
	}

	jobs := make([]job, len(inputs))
	for i, in := range inputs {
		out := in
		switch {
		case overwrite:
		case outIsDir:
			out = filepath.Join(output, filepath.Base(in))
		case output != "":
			out = output
		}
		jobs[i] = job{input: in, output: out}
	}
	return jobs, nil
}
