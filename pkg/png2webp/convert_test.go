package png2webp

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/barasher/go-exiftool"
)

func needsExiftool(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("exiftool"); err != nil {
		t.Skipf("exiftool not installed: %v", err)
	}
}

func TestRunSingleFile(t *testing.T) {
	needsExiftool(t)

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "render.png"))

	s, err := Run(&Config{Root: dir, Quality: 80, Method: 6})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if s.Converted != 1 || s.Failed != 0 {
		t.Fatalf("Run = %d converted / %d failed, want 1/0", s.Converted, s.Failed)
	}

	r := s.Results[0]
	if r.OutPath != filepath.Join(dir, "render.webp") {
		t.Errorf("OutPath = %q", r.OutPath)
	}
	if r.Width != 100 || r.Height != 100 {
		t.Errorf("dimensions = %dx%d, want 100x100", r.Width, r.Height)
	}
	if _, err := os.Stat(r.OutPath); err != nil {
		t.Errorf("output missing: %v", err)
	}
	if _, err := os.Stat(r.InPath); err != nil {
		t.Errorf("source should be untouched: %v", err)
	}
}

func TestRunTwiceSuffixes(t *testing.T) {
	needsExiftool(t)

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "render.png"))

	c := &Config{Root: dir, Quality: 80, Method: 6}
	for i := 0; i < 2; i++ {
		if _, err := Run(c); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}

	for _, name := range []string{"render.webp", "render_1.webp"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestRunCorruptAmongValid(t *testing.T) {
	needsExiftool(t)

	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"))
	writePNG(t, filepath.Join(dir, "b.png"))
	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not a png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	writePNG(t, filepath.Join(dir, "c.png"))

	s, err := Run(&Config{Root: dir, Quality: 80, Method: 6})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if s.Converted != 3 || s.Failed != 1 {
		t.Fatalf("Run = %d converted / %d failed, want 3/1", s.Converted, s.Failed)
	}
}

func TestRunPreservesModTime(t *testing.T) {
	needsExiftool(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "render.png")
	writePNG(t, src)

	then := time.Date(2021, 3, 14, 15, 9, 26, 0, time.Local)
	if err := os.Chtimes(src, then, then); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if _, err := Run(&Config{Root: dir, Quality: 80, Method: 6}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	fi, err := os.Stat(filepath.Join(dir, "render.webp"))
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}

	if !fi.ModTime().Equal(then) {
		t.Errorf("output mtime = %v, want %v", fi.ModTime(), then)
	}
}

func TestRunUseCurrentDate(t *testing.T) {
	needsExiftool(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "render.png")
	writePNG(t, src)

	then := time.Date(2021, 3, 14, 15, 9, 26, 0, time.Local)
	if err := os.Chtimes(src, then, then); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	start := time.Now().Add(-time.Minute)
	if _, err := Run(&Config{Root: dir, Quality: 80, Method: 6, UseCurrentDate: true}); err != nil {
		t.Fatalf("Run: %v", err)
	}

	fi, err := os.Stat(filepath.Join(dir, "render.webp"))
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}

	if fi.ModTime().Before(start) {
		t.Errorf("output mtime = %v, want current time", fi.ModTime())
	}
}

func TestRunDeleteAfter(t *testing.T) {
	needsExiftool(t)
	if runtime.GOOS != "linux" {
		t.Skipf("trash layout test is linux-only")
	}

	dir := t.TempDir()
	trashHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", trashHome)

	writePNG(t, filepath.Join(dir, "render.png"))

	s, err := Run(&Config{Root: dir, Quality: 80, Method: 6, DeleteAfter: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Converted != 1 {
		t.Fatalf("converted = %d, want 1", s.Converted)
	}

	if _, err := os.Stat(filepath.Join(dir, "render.png")); !os.IsNotExist(err) {
		t.Errorf("source still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(trashHome, "Trash", "files", "render.png")); err != nil {
		t.Errorf("source not in trash: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "render.webp")); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestRunDeleteAfterTrashUnavailable(t *testing.T) {
	needsExiftool(t)
	if runtime.GOOS != "linux" {
		t.Skipf("trash layout test is linux-only")
	}

	dir := t.TempDir()

	// Point the trash at a regular file so it cannot be created.
	bogus := filepath.Join(t.TempDir(), "file")
	touch(t, bogus)
	t.Setenv("XDG_DATA_HOME", bogus)

	writePNG(t, filepath.Join(dir, "render.png"))

	s, err := Run(&Config{Root: dir, Quality: 80, Method: 6, DeleteAfter: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if s.Converted != 1 || s.Failed != 0 {
		t.Fatalf("Run = %d converted / %d failed, want 1/0", s.Converted, s.Failed)
	}

	r := s.Results[0]
	if len(r.Warnings) == 0 {
		t.Error("expected a trash warning")
	}
	if _, err := os.Stat(filepath.Join(dir, "render.png")); err != nil {
		t.Errorf("source should be untouched: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "render.webp")); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestRunCarriesMetadata(t *testing.T) {
	needsExiftool(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "render.png")
	writePNG(t, src)

	et, err := exiftool.NewExiftool()
	if err != nil {
		t.Fatalf("exiftool: %v", err)
	}
	defer et.Close()

	// Plant a text chunk the way ComfyUI output carries one.
	fms := []exiftool.FileMetadata{{File: src, Fields: map[string]interface{}{
		"Comment": `{ "seed": 42 }`,
	}}}
	et.WriteMetadata(fms)
	if fms[0].Err != nil {
		t.Fatalf("write metadata: %v", fms[0].Err)
	}

	s, err := Run(&Config{Root: dir, Quality: 80, Method: 6})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Converted != 1 || s.Failed != 0 {
		t.Fatalf("Run = %d converted / %d failed, want 1/0", s.Converted, s.Failed)
	}

	r := s.Results[0]
	found := false
	for _, k := range r.Keys {
		if k == "Comment" {
			found = true
		}
	}
	if !found {
		t.Errorf("Keys = %v, want Comment", r.Keys)
	}

	if _, err := os.Stat(r.OutPath); err != nil {
		t.Fatalf("output missing: %v", err)
	}

	md, err := ExtractMetadata(et, r.OutPath)
	if err != nil {
		t.Fatalf("extract from webp: %v", err)
	}

	// The chunk rides the first carrier tag, JSON compacted.
	if got, want := md.Text["Make"], `Comment:{"seed":42}`; got != want {
		t.Errorf("webp carrier Make = %q, want %q", got, want)
	}
}

func TestExtractMetadataRoundTrip(t *testing.T) {
	needsExiftool(t)

	dir := t.TempDir()
	src := filepath.Join(dir, "render.png")
	writePNG(t, src)

	et, err := exiftool.NewExiftool()
	if err != nil {
		t.Fatalf("exiftool: %v", err)
	}
	defer et.Close()

	md, err := ExtractMetadata(et, src)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(md.Text) != 0 {
		t.Errorf("plain PNG text = %v, want none", md.Text)
	}

	// Plant a text chunk the way ComfyUI output carries one.
	fms := []exiftool.FileMetadata{{File: src, Fields: map[string]interface{}{
		"Comment": "hello world",
	}}}
	et.WriteMetadata(fms)
	if fms[0].Err != nil {
		t.Fatalf("write metadata: %v", fms[0].Err)
	}

	md, err = ExtractMetadata(et, src)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if md.Text["Comment"] != "hello world" {
		t.Errorf("text = %v, want Comment=hello world", md.Text)
	}
}
