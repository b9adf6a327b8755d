// Package dataset fetches and unpacks TUM RGB-D benchmark sequences.
package dataset

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/schollz/progressbar/v3"

	"github.com/banshee-data/voeval/internal/fsutil"
	"github.com/banshee-data/voeval/internal/httputil"
	"github.com/banshee-data/voeval/internal/monitoring"
)

// Downloader streams archives to disk with a byte progress bar.
type Downloader struct {
	// Client defaults to http.DefaultClient.
	Client httputil.HTTPClient
	// FS defaults to the host filesystem.
	FS fsutil.FileSystem
	// Progress receives the progress bar; nil discards it.
	Progress io.Writer
}

func (d *Downloader) fs() fsutil.FileSystem {
	if d.FS == nil {
		return fsutil.OSFileSystem{}
	}
	return d.FS
}

// Download fetches url into dest. It does nothing and reports skipped when
// dest already exists. A failed transfer leaves no file at dest.
func (d *Downloader) Download(ctx context.Context, url, dest string) (skipped bool, err error) {
	fsys := d.fs()
	if fsys.Exists(dest) {
		monitoring.Logf("Skipping download: %s already exists.", dest)
		return true, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	var client httputil.HTTPClient = http.DefaultClient
	if d.Client != nil {
		client = d.Client
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("could not download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, fmt.Errorf("could not download %s: %s", url, resp.Status)
	}

	if err := fsys.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, err
	}
	f, err := fsys.Create(dest)
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer func() {
		if err != nil {
			fsys.Remove(dest)
		}
	}()

	progress := d.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription(filepath.Base(dest)),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(progress) }),
	)

	if _, err = io.Copy(io.MultiWriter(f, bar), resp.Body); err != nil {
		f.Close()
		return false, fmt.Errorf("download of %s interrupted: %w", url, err)
	}
	if err = f.Close(); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", dest, err)
	}
	_ = bar.Finish()

	monitoring.Logf("Downloaded %s.", dest)
	return false, nil
}
