package png2webp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"k8s.io/klog/v2"
)

// Metadata is the text metadata and original timestamp of a source image.
type Metadata struct {
	Text    map[string]string
	ModTime time.Time
}

// skipFields are exiftool fields that describe the file or the pixel
// structure rather than embedded text chunks.
var skipFields = map[string]bool{
	"SourceFile":          true,
	"ExifToolVersion":     true,
	"FileName":            true,
	"Directory":           true,
	"FileSize":            true,
	"FileModifyDate":      true,
	"FileAccessDate":      true,
	"FileInodeChangeDate": true,
	"FilePermissions":     true,
	"FileType":            true,
	"FileTypeExtension":   true,
	"MIMEType":            true,
	"ImageWidth":          true,
	"ImageHeight":         true,
	"ImageSize":           true,
	"Megapixels":          true,
	"BitDepth":            true,
	"ColorType":           true,
	"Compression":         true,
	"Filter":              true,
	"Interlace":           true,
	"SRGBRendering":       true,
	"Gamma":               true,
	"PixelUnits":          true,
	"PixelsPerUnitX":      true,
	"PixelsPerUnitY":      true,
	"Transparency":        true,
	"PaletteSize":         true,
	"BackgroundColor":     true,
}

// ExtractMetadata reads the text chunks and modification time of path.
// A file without any text chunks yields an empty map.
func ExtractMetadata(et *exiftool.Exiftool, path string) (*Metadata, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	m := &Metadata{Text: map[string]string{}, ModTime: fi.ModTime()}

	fms := et.ExtractMetadata(path)
	fm := fms[0]
	if fm.Err != nil {
		return m, fmt.Errorf("extract fail for %q: %w", path, fm.Err)
	}

	for k := range fm.Fields {
		if skipFields[k] {
			continue
		}

		v, err := fm.GetString(k)
		if err != nil {
			klog.V(2).Infof("skipping non-string field %q in %s: %v", k, path, err)
			continue
		}

		m.Text[k] = v
	}

	return m, nil
}

// carrierTags are EXIF string tags that hold text chunks in the output,
// assigned in order to every chunk other than the prompt.
var carrierTags = []string{
	"Make",
	"ImageDescription",
	"DocumentName",
	"PageName",
	"Software",
	"Artist",
	"Copyright",
}

// promptTag carries the prompt chunk.
var promptTag = "Model"

// carrierFields maps text chunks onto EXIF carrier tags as
// "key:value" strings, compacting JSON values along the way.
func carrierFields(text map[string]string) map[string]interface{} {
	fields := map[string]interface{}{}
	if len(text) == 0 {
		return fields
	}

	keys := []string{}
	for k := range text {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	free := carrierTags
	for _, k := range keys {
		v := fmt.Sprintf("%s:%s", k, compactJSON(text[k]))

		if strings.EqualFold(k, "prompt") {
			fields[promptTag] = v
			continue
		}

		if len(free) == 0 {
			klog.Warningf("out of carrier tags, dropping %q", k)
			continue
		}

		fields[free[0]] = v
		free = free[1:]
	}

	return fields
}

// InjectMetadata writes the text chunks of md into the WebP at path and
// returns the chunk keys that were carried over.
func InjectMetadata(et *exiftool.Exiftool, path string, md *Metadata) ([]string, error) {
	fields := carrierFields(md.Text)
	if len(fields) == 0 {
		return nil, nil
	}

	fms := []exiftool.FileMetadata{{File: path, Fields: fields}}
	et.WriteMetadata(fms)
	if fms[0].Err != nil {
		return nil, fmt.Errorf("write metadata: %w", fms[0].Err)
	}

	keys := []string{}
	for k := range md.Text {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return keys, nil
}

// compactJSON strips insignificant whitespace from a JSON value,
// returning non-JSON input verbatim.
func compactJSON(s string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}

// truncate shortens long metadata values for log lines.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
