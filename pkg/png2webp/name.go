package png2webp

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// webpPath swaps the final extension of a source path for .webp,
// keeping everything before it.
func webpPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".webp"
}

// UniquePath returns path if nothing exists there, otherwise the first
// of name_1, name_2, ... that is free. Callers process files serially,
// so the probe result stays valid until the write.
func UniquePath(path string) string {
	if free(path) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)

	// Bounded so a directory that errors on every probe surfaces the
	// real failure at write time instead of spinning here.
	p := path
	for n := 1; n < 10000; n++ {
		p = fmt.Sprintf("%s_%d%s", stem, n, ext)
		if free(p) {
			return p
		}
	}
	return p
}

// free reports whether nothing occupies path. Only a definite
// not-exist counts; a transient stat error must not invite an
// overwrite.
func free(path string) bool {
	_, err := os.Lstat(path)
	return errors.Is(err, fs.ErrNotExist)
}
