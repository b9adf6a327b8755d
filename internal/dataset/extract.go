package dataset

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/banshee-data/voeval/internal/fsutil"
	"github.com/banshee-data/voeval/internal/monitoring"
	"github.com/banshee-data/voeval/internal/security"
)

var (
	// ErrArchiveMissing is returned when the archive to extract is absent.
	ErrArchiveMissing = errors.New("archive not found")
	// ErrUnsafePath is returned for entries that would land outside the
	// destination directory.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

// Extract unpacks the gzipped tarball archive on fsys into destDir and
// returns the number of regular files written. The archive is removed
// afterwards, also when extraction fails.
func Extract(fsys fsutil.FileSystem, archive, destDir string) (int, error) {
	if _, err := fsys.Stat(archive); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrArchiveMissing, archive)
		}
		return 0, err
	}
	defer func() {
		if err := fsys.Remove(archive); err == nil {
			monitoring.Logf("Cleanup: Removed %s.", archive)
		}
	}()

	monitoring.Logf("--- Extracting %s to %s ---", archive, destDir)
	f, err := fsys.Open(archive)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := extractTarGz(fsys, f, destDir)
	if err != nil {
		return n, fmt.Errorf("could not extract %s: %w", archive, err)
	}
	monitoring.Logf("Extraction complete.")
	return n, nil
}

func extractTarGz(fsys fsutil.FileSystem, r io.Reader, destDir string) (int, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return 0, err
	}
	defer gz.Close()

	if err := fsys.MkdirAll(destDir, 0755); err != nil {
		return 0, err
	}
	// only the host filesystem has symlinks to resolve
	_, onDisk := fsys.(fsutil.OSFileSystem)

	tr := tar.NewReader(gz)
	n := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return n, nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return n, fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		if err != nil {
			return n, err
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return n, err
		}
		// a symlink already inside destDir could still redirect the write
		if onDisk {
			if err := security.ValidatePathWithinDirectory(target, destDir); err != nil {
				return n, fmt.Errorf("%w: %v", ErrUnsafePath, err)
			}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fsys.MkdirAll(target, 0755); err != nil {
				return n, err
			}
		case tar.TypeReg:
			if err := writeEntry(fsys, tr, target); err != nil {
				return n, err
			}
			n++
		default:
			monitoring.Logf("Skipping %s: unsupported entry type %c", hdr.Name, hdr.Typeflag)
		}
	}
}

func safeJoin(destDir, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	target := filepath.Join(destDir, name)
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func writeEntry(fsys fsutil.FileSystem, r io.Reader, target string) error {
	if err := fsys.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	out, err := fsys.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
