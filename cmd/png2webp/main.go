// png2webp converts a tree of PNG images to WebP, preserving ComfyUI
// metadata and file timestamps.
package main

import (
	"flag"
	"io"
	"os"

	"k8s.io/klog/v2"

	"github.com/tstromberg/png2webp/pkg/png2webp"
)

var logName = "png2webp_conversion.log"

var (
	path           = flag.String("path", "", "Path to the directory containing PNG images")
	quality        = flag.Int("quality", 80, "WebP quality (0-100)")
	method         = flag.Int("method", 6, "Compression method (0=fast, 6=better)")
	lossless       = flag.Bool("lossless", false, "Use lossless compression")
	useCurrentDate = flag.Bool("use_current_date", false, "Use current date instead of copying original file datetime")
	deleteAfter    = flag.Bool("delete_after", false, "Send the PNG images to the trash after converting to WebP")
	watchFlag      = flag.Bool("watch", false, "Keep watching the directory and convert PNG files as they appear")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *path == "" {
		klog.Exitf("--path is a required flag")
	}

	f, err := os.OpenFile(logName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		klog.Exitf("open log: %v", err)
	}
	defer f.Close()

	klog.LogToStderr(false)
	klog.SetOutput(io.MultiWriter(os.Stderr, f))
	defer klog.Flush()

	c := &png2webp.Config{
		Root:           *path,
		Quality:        *quality,
		Method:         *method,
		Lossless:       *lossless,
		UseCurrentDate: *useCurrentDate,
		DeleteAfter:    *deleteAfter,
		Watch:          *watchFlag,
	}

	if err := c.Validate(); err != nil {
		klog.Exitf("invalid settings: %v", err)
	}

	klog.Info("Starting PNG to WebP conversion process")
	klog.Info("--------------------------------------------------")

	s, err := png2webp.Run(c)
	if err != nil {
		klog.Exitf("run failed: %v", err)
	}

	klog.Infof("Conversion process completed: %d converted, %d failed", s.Converted, s.Failed)

	if c.Watch {
		if err := png2webp.Watch(c); err != nil {
			klog.Exitf("watch failed: %v", err)
		}
	}
}
