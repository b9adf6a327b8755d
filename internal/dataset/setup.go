package dataset

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/voeval/internal/config"
)

// Options names the sequence to fetch and where to put it.
type Options struct {
	Name string
	URL  string
	Root string
}

// OptionsFromConfig resolves the dataset settings of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Name: cfg.GetDatasetName(),
		URL:  cfg.GetDatasetURL(),
		Root: cfg.GetDatasetRoot(),
	}
}

// ArchivePath is where the downloaded tarball is stored before extraction.
func (o Options) ArchivePath() string {
	return filepath.Join(o.Root, o.Name+".tgz")
}

// SequenceDir is the directory the sequence unpacks into.
func (o Options) SequenceDir() string {
	return filepath.Join(o.Root, o.Name)
}

// Setup downloads the archive unless present and extracts it into
// opts.Root, both through d's filesystem. It returns the sequence directory.
func Setup(ctx context.Context, d *Downloader, opts Options) (string, error) {
	if err := d.fs().MkdirAll(opts.Root, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", opts.Root, err)
	}
	if _, err := d.Download(ctx, opts.URL, opts.ArchivePath()); err != nil {
		return "", err
	}
	if _, err := Extract(d.fs(), opts.ArchivePath(), opts.Root); err != nil {
		return "", err
	}
	return opts.SequenceDir(), nil
}
