package png2webp

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

var separator = strings.Repeat("-", 50)

// Convert runs one file through the pipeline: extract metadata, encode
// and write the WebP, stamp timestamps, optionally trash the source.
// Stamp and trash failures are warnings on an otherwise converted
// file; everything before that fails the file.
func Convert(c *Config, et *exiftool.Exiftool, path string) (*Result, error) {
	klog.Infof("  Converting: %s", path)

	r := &Result{InPath: path}

	md, err := ExtractMetadata(et, path)
	if err != nil {
		if md == nil {
			return nil, err
		}
		r.warn("metadata extraction: %v", err)
	}

	logText(md.Text)

	img, err := decode(path)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	r.Width = img.Bounds().Dx()
	r.Height = img.Bounds().Dy()

	data, err := encodeWebP(img, c)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	dst, err := writeWebP(path, data)
	if err != nil {
		return nil, err
	}
	r.OutPath = dst
	r.BytesOut = int64(len(data))

	if fi, err := os.Stat(path); err == nil {
		r.BytesIn = fi.Size()
	}

	r.Keys, err = InjectMetadata(et, dst, md)
	if err != nil {
		// The file is not complete without its metadata.
		os.Remove(dst)
		return nil, fmt.Errorf("inject: %w", err)
	}

	klog.Infof("      Output: %s", dst)
	logSettings(c)

	if !c.UseCurrentDate {
		if err := os.Chtimes(dst, md.ModTime, md.ModTime); err != nil {
			r.warn("stamp %s: %v", dst, err)
		}
	}

	if c.DeleteAfter {
		if err := Trash(path); err != nil {
			r.warn("trash %s: %v", path, err)
		}
	}

	klog.Infof("Width/Height: %d x %d pixels", r.Width, r.Height)
	klog.Info(separator)

	return r, nil
}

func (r *Result) warn(format string, args ...interface{}) {
	w := fmt.Sprintf(format, args...)
	klog.Warning(w)
	r.Warnings = append(r.Warnings, w)
}

func logText(text map[string]string) {
	keys := []string{}
	for k := range text {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		klog.Infof("Metadata %s: %s", k, truncate(text[k], 60))
	}
}

// logSettings mirrors the tool's settings summary: which flags the
// user set, which defaults applied, and which flags had no effect.
func logSettings(c *Config) {
	user := []string{}
	defaults := []string{}
	ignored := []string{}

	if c.Lossless {
		user = append(user, "--lossless")
	} else {
		ignored = append(ignored, "--lossless")
	}

	q := fmt.Sprintf("--quality %d", c.Quality)
	if c.Quality != 80 {
		user = append(user, q)
	} else {
		defaults = append(defaults, q)
	}

	m := fmt.Sprintf("--method %d", c.Method)
	if c.Method != 6 {
		user = append(user, m)
	} else {
		defaults = append(defaults, m)
	}

	if c.UseCurrentDate {
		user = append(user, "--use_current_date")
	} else {
		ignored = append(ignored, "--use_current_date")
	}

	if c.DeleteAfter {
		user = append(user, "--delete_after")
	} else {
		ignored = append(ignored, "--delete_after")
	}

	if len(user) > 0 {
		klog.Infof("    Settings: %s", strings.Join(user, ", "))
	}
	if len(defaults) > 0 {
		klog.Infof("    Defaults: %s", strings.Join(defaults, ", "))
	}
	if len(ignored) > 0 {
		klog.Infof("     Ignored: %s", strings.Join(ignored, ", "))
	}
}
