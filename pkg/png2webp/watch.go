package png2webp

import (
	"fmt"
	"os"

	"github.com/barasher/go-exiftool"
	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"
)

// Watch converts PNG files as they appear under c.Root. Directories
// created while watching are added to the watch set. Blocks until the
// watcher fails or the process is killed.
func Watch(c *Config) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	et, err := exiftool.NewExiftool()
	if err != nil {
		return fmt.Errorf("exiftool: %w", err)
	}
	defer et.Close()

	ds, err := dirs(c.Root)
	if err != nil {
		return fmt.Errorf("dirs: %w", err)
	}

	for _, d := range ds {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	klog.Infof("watching %d dirs ...", len(ds))

	done := map[string]bool{}

	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			fi, err := os.Stat(event.Name)
			if err != nil {
				continue
			}

			if fi.IsDir() {
				if err := w.Add(event.Name); err != nil {
					klog.Warningf("watch %s: %v", event.Name, err)
				}
				continue
			}

			convertEvent(c, et, done, event.Name)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}

// convertEvent converts the file behind a watch event once. A file
// being copied in emits several Create/Write events; only the first
// successful conversion counts, so partial copies get retried on the
// next event without stacking up _1 duplicates.
func convertEvent(c *Config, et *exiftool.Exiftool, done map[string]bool, path string) {
	if !isPNG(path) {
		return
	}

	if done[path] {
		klog.V(1).Infof("already converted %s", path)
		return
	}

	if _, err := Convert(c, et, path); err != nil {
		klog.Errorf("converting %s: %v", path, err)
		return
	}

	done[path] = true
}
