package png2webp

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// Find returns the PNG files under root in lexical order, recursing
// into subdirectories and skipping dot entries. A missing root or a
// tree without PNGs yields an empty slice, not an error.
func Find(root string) ([]string, error) {
	found := []string{}

	if _, err := os.Stat(root); err != nil {
		klog.Warningf("nothing to scan: %v", err)
		return found, nil
	}

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != root && filepath.Base(path)[0] == '.' {
				return godirwalk.SkipThis
			}

			if de.IsDir() {
				return nil
			}

			if isPNG(path) {
				klog.V(1).Infof("found %s", path)
				found = append(found, path)
			}

			return nil
		},
	})

	return found, err
}

func isPNG(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".png")
}

// dirs lists root and every subdirectory beneath it, for the watcher.
func dirs(root string) ([]string, error) {
	ds := []string{}

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if filepath.Base(path)[0] == '.' && path != root {
				return godirwalk.SkipThis
			}

			if de.IsDir() {
				ds = append(ds, path)
			}

			return nil
		},
	})

	return ds, err
}
