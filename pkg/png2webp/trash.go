package png2webp

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// Trash moves path into the platform trash so the file stays
// recoverable. On Linux this follows the freedesktop.org Trash layout
// (files/ plus a .trashinfo record); on macOS files land in ~/.Trash.
func Trash(path string) error {
	switch runtime.GOOS {
	case "linux":
		return trashXDG(path)
	case "darwin":
		return trashDarwin(path)
	default:
		return fmt.Errorf("no trash facility on %s", runtime.GOOS)
	}
}

func trashXDG(path string) error {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	filesDir := filepath.Join(dataHome, "Trash", "files")
	infoDir := filepath.Join(dataHome, "Trash", "info")
	for _, d := range []string{filesDir, infoDir} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("abs: %w", err)
	}

	dst := UniquePath(filepath.Join(filesDir, filepath.Base(path)))

	info := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		(&url.URL{Path: abs}).EscapedPath(), time.Now().Format("2006-01-02T15:04:05"))
	infoPath := filepath.Join(infoDir, filepath.Base(dst)+".trashinfo")
	if err := os.WriteFile(infoPath, []byte(info), 0o600); err != nil {
		return fmt.Errorf("write trashinfo: %w", err)
	}

	if err := move(path, dst); err != nil {
		os.Remove(infoPath)
		return err
	}

	klog.V(1).Infof("trashed %s -> %s", path, dst)
	return nil
}

func trashDarwin(path string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("home dir: %w", err)
	}

	dst := UniquePath(filepath.Join(home, ".Trash", filepath.Base(path)))
	return move(path, dst)
}

// move renames src to dst, falling back to copy and remove when the
// two sit on different filesystems.
func move(src string, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copy.Copy(src, dst, copy.Options{PreserveTimes: true}); err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	return nil
}
