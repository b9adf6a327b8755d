// Command fetch-dataset downloads a TUM RGB-D sequence archive and unpacks
// it into the dataset root.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/voeval/internal/config"
	"github.com/banshee-data/voeval/internal/dataset"
	"github.com/banshee-data/voeval/internal/fsutil"
	"github.com/banshee-data/voeval/internal/version"
)

// Config holds the command-line options.
type Config struct {
	ConfigFile  string
	Name        string
	URL         string
	Root        string
	Timeout     time.Duration
	NoProgress  bool
	ShowVersion bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (Config, error) {
	cfg := Config{set: map[string]bool{}}
	fs := flag.NewFlagSet("fetch-dataset", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.ConfigFile, "config", "", "JSON configuration file (optional)")
	fs.StringVar(&cfg.Name, "name", config.DefaultDatasetName, "Sequence name")
	fs.StringVar(&cfg.URL, "url", "", "Archive URL (default: derived from -name)")
	fs.StringVar(&cfg.Root, "root", config.DefaultDatasetRoot, "Directory the sequence is unpacked into")
	fs.DurationVar(&cfg.Timeout, "timeout", 30*time.Minute, "Overall download timeout")
	fs.BoolVar(&cfg.NoProgress, "no-progress", false, "Do not draw the progress bar")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: fetch-dataset [options]\n\n")
		fmt.Fprintf(stderr, "Downloads <root>/<name>.tgz unless present, extracts it into <root>\n")
		fmt.Fprintf(stderr, "and removes the archive.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  fetch-dataset\n")
		fmt.Fprintf(stderr, "  fetch-dataset -name rgbd_dataset_freiburg1_desk -root data\n")
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })
	return cfg, nil
}

// datasetOptions merges the optional config file with explicit flags.
func (c Config) datasetOptions() (dataset.Options, error) {
	file := config.EmptyConfig()
	if c.ConfigFile != "" {
		loaded, err := config.LoadConfig(c.ConfigFile)
		if err != nil {
			return dataset.Options{}, err
		}
		file = loaded
	}
	if c.set["name"] {
		file.DatasetName = &c.Name
	}
	if c.set["url"] {
		file.DatasetURL = &c.URL
	}
	if c.set["root"] {
		file.DatasetRoot = &c.Root
	}
	return dataset.OptionsFromConfig(file), nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(1)
	}
	if cfg.ShowVersion {
		fmt.Println(version.String("fetch-dataset"))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := &dataset.Downloader{
		Client: &http.Client{Timeout: cfg.Timeout},
		FS:     fsutil.OSFileSystem{},
	}
	if !cfg.NoProgress {
		d.Progress = os.Stderr
	}
	if err := run(ctx, d, os.Stdout, cfg); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, d *dataset.Downloader, stdout io.Writer, cfg Config) error {
	opts, err := cfg.datasetOptions()
	if err != nil {
		return err
	}
	dir, err := dataset.Setup(ctx, d, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Dataset ready in %s\n", dir)
	return nil
}
