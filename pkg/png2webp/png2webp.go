// Package png2webp converts PNG images to WebP in bulk, carrying over
// embedded text metadata and file timestamps.
package png2webp

import (
	"fmt"
	"os"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// Config holds configuration for a conversion run.
type Config struct {
	Root           string
	Quality        int
	Method         int
	Lossless       bool
	UseCurrentDate bool
	DeleteAfter    bool
	Watch          bool
}

// Validate rejects bad settings before any file is touched.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root directory is required")
	}

	if _, err := os.Stat(c.Root); err != nil {
		return fmt.Errorf("stat root: %w", err)
	}

	if c.Quality < 0 || c.Quality > 100 {
		return fmt.Errorf("quality %d out of range (0-100)", c.Quality)
	}

	if c.Method < 0 || c.Method > 6 {
		return fmt.Errorf("method %d out of range (0-6)", c.Method)
	}

	return nil
}

// Result describes the outcome of a single file conversion.
type Result struct {
	InPath   string
	OutPath  string
	Width    int
	Height   int
	Keys     []string
	BytesIn  int64
	BytesOut int64
	Warnings []string
	Err      error
}

// Summary tallies a whole run.
type Summary struct {
	Converted int
	Failed    int
	Results   []*Result
}

// Run converts every PNG found under c.Root, one file at a time.
// Per-file failures are logged and counted; they never stop the sweep.
func Run(c *Config) (*Summary, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}
	defer et.Close()

	paths, err := Find(c.Root)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	s := &Summary{}
	for _, p := range paths {
		r, err := Convert(c, et, p)
		if err != nil {
			klog.Errorf("converting %s: %v", p, err)
			s.Failed++
			s.Results = append(s.Results, &Result{InPath: p, Err: err})
			continue
		}

		s.Converted++
		s.Results = append(s.Results, r)
	}

	return s, nil
}
