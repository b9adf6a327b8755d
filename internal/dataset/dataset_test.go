package dataset

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/voeval/internal/config"
	"github.com/banshee-data/voeval/internal/fsutil"
	"github.com/banshee-data/voeval/internal/httputil"
	"github.com/banshee-data/voeval/internal/monitoring"
	"github.com/banshee-data/voeval/internal/testutil"
)

func muteLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

type entry struct {
	name string
	body string
	dir  bool
}

// buildTgz returns a gzipped tarball holding entries.
func buildTgz(t *testing.T, entries []entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0644, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.dir {
			hdr = &tar.Header{Name: e.name, Mode: 0755, Typeflag: tar.TypeDir}
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if !e.dir {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

var sequence = []entry{
	{name: "rgbd_dataset_freiburg1_xyz/", dir: true},
	{name: "rgbd_dataset_freiburg1_xyz/rgb.txt", body: "# color images\n1305031102.175304 rgb/1305031102.175304.png\n"},
	{name: "rgbd_dataset_freiburg1_xyz/depth.txt", body: "# depth maps\n1305031102.160407 depth/1305031102.160407.png\n"},
	{name: "rgbd_dataset_freiburg1_xyz/rgb/1305031102.175304.png", body: "png"},
}

func TestDownload(t *testing.T) {
	muteLogs(t)
	payload := []byte("archive bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "seq.tgz")
	var progress bytes.Buffer
	d := &Downloader{Client: srv.Client(), Progress: &progress}

	skipped, err := d.Download(context.Background(), srv.URL+"/seq.tgz", dest)
	require.NoError(t, err)
	assert.False(t, skipped)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Contains(t, progress.String(), "seq.tgz")
}

func TestDownload_SkipsExisting(t *testing.T) {
	muteLogs(t)
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	dest := testutil.WriteTempFile(t, t.TempDir(), "seq.tgz", "already here")
	d := &Downloader{Client: srv.Client()}

	skipped, err := d.Download(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Zero(t, hits)
}

func TestDownload_HTTPErrorLeavesNoFile(t *testing.T) {
	muteLogs(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "seq.tgz")
	d := &Downloader{Client: srv.Client()}

	_, err := d.Download(context.Background(), srv.URL, dest)
	assert.ErrorContains(t, err, "404")
	assert.NoFileExists(t, dest)
}

func TestDownload_TransportError(t *testing.T) {
	muteLogs(t)
	refused := errors.New("connection refused")
	client := httputil.NewMockHTTPClient().AddErrorResponse(refused)

	dest := filepath.Join(t.TempDir(), "seq.tgz")
	d := &Downloader{Client: client}

	_, err := d.Download(context.Background(), "http://mirror.invalid/seq.tgz", dest)
	assert.ErrorIs(t, err, refused)
	assert.NoFileExists(t, dest)
	require.Equal(t, 1, client.RequestCount())
	assert.Equal(t, "/seq.tgz", client.Requests()[0].URL.Path)
}

func TestDownload_MockedBody(t *testing.T) {
	muteLogs(t)
	client := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, "archive bytes")

	dest := filepath.Join(t.TempDir(), "nested", "seq.tgz")
	skipped, err := (&Downloader{Client: client}).Download(context.Background(), "http://mirror.invalid/seq.tgz", dest)
	require.NoError(t, err)
	assert.False(t, skipped)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(data))
}

func TestDownload_TruncatedBodyRemovesPartialFile(t *testing.T) {
	muteLogs(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("short"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "seq.tgz")
	d := &Downloader{Client: srv.Client()}

	_, err := d.Download(context.Background(), srv.URL, dest)
	require.Error(t, err)
	assert.NoFileExists(t, dest)
}

func TestExtract(t *testing.T) {
	muteLogs(t)
	dir := t.TempDir()
	archive := filepath.Join(dir, "seq.tgz")
	require.NoError(t, os.WriteFile(archive, buildTgz(t, sequence), 0644))

	n, err := Extract(fsutil.OSFileSystem{}, archive, filepath.Join(dir, "tum_data"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.FileExists(t, filepath.Join(dir, "tum_data", "rgbd_dataset_freiburg1_xyz", "rgb.txt"))
	assert.FileExists(t, filepath.Join(dir, "tum_data", "rgbd_dataset_freiburg1_xyz", "rgb", "1305031102.175304.png"))
	assert.NoFileExists(t, archive)
}

func TestExtract_MissingArchive(t *testing.T) {
	muteLogs(t)
	_, err := Extract(fsutil.OSFileSystem{}, filepath.Join(t.TempDir(), "nope.tgz"), t.TempDir())
	assert.ErrorIs(t, err, ErrArchiveMissing)
}

func TestExtract_RejectsEscapingEntries(t *testing.T) {
	muteLogs(t)
	for _, name := range []string{"../evil.txt", "a/../../evil.txt", "/etc/evil.txt"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			archive := filepath.Join(dir, "bad.tgz")
			require.NoError(t, os.WriteFile(archive, buildTgz(t, []entry{{name: name, body: "x"}}), 0644))

			_, err := Extract(fsutil.OSFileSystem{}, archive, filepath.Join(dir, "out"))
			assert.ErrorIs(t, err, ErrUnsafePath)
			assert.NoFileExists(t, filepath.Join(dir, "evil.txt"))
			// cleanup happens on failure too
			assert.NoFileExists(t, archive)
		})
	}
}

func TestExtract_RejectsWritesThroughSymlinks(t *testing.T) {
	muteLogs(t)
	dir := t.TempDir()
	outside := filepath.Join(dir, "outside")
	dest := filepath.Join(dir, "tum_data")
	require.NoError(t, os.MkdirAll(outside, 0755))
	require.NoError(t, os.MkdirAll(dest, 0755))
	require.NoError(t, os.Symlink(outside, filepath.Join(dest, "rgbd_dataset_freiburg1_xyz")))

	archive := filepath.Join(dir, "seq.tgz")
	require.NoError(t, os.WriteFile(archive, buildTgz(t, sequence[1:2]), 0644))

	_, err := Extract(fsutil.OSFileSystem{}, archive, dest)
	assert.ErrorIs(t, err, ErrUnsafePath)
	assert.NoFileExists(t, filepath.Join(outside, "rgb.txt"))
}

func TestExtract_CorruptArchiveIsRemoved(t *testing.T) {
	muteLogs(t)
	dir := t.TempDir()
	archive := testutil.WriteTempFile(t, dir, "corrupt.tgz", "not gzip at all")

	_, err := Extract(fsutil.OSFileSystem{}, archive, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.NoFileExists(t, archive)
}

func TestSetup(t *testing.T) {
	muteLogs(t)
	tgz := buildTgz(t, sequence)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rgbd/dataset/freiburg1/rgbd_dataset_freiburg1_xyz.tgz", r.URL.Path)
		_, _ = w.Write(tgz)
	}))
	defer srv.Close()

	root := filepath.Join(t.TempDir(), "tum_data")
	opts := Options{
		Name: config.DefaultDatasetName,
		URL:  srv.URL + "/rgbd/dataset/freiburg1/rgbd_dataset_freiburg1_xyz.tgz",
		Root: root,
	}

	dir, err := Setup(context.Background(), &Downloader{Client: srv.Client()}, opts)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "rgbd_dataset_freiburg1_xyz"), dir)
	assert.FileExists(t, filepath.Join(dir, "depth.txt"))
	assert.NoFileExists(t, opts.ArchivePath())
}

func TestDownload_MemoryFileSystem(t *testing.T) {
	muteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	client := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, "archive bytes")
	d := &Downloader{Client: client, FS: mfs}

	skipped, err := d.Download(context.Background(), "http://mirror.invalid/seq.tgz", "/tum_data/seq.tgz")
	require.NoError(t, err)
	assert.False(t, skipped)
	assert.True(t, mfs.IsDir("/tum_data"))

	data, err := mfs.ReadFile("/tum_data/seq.tgz")
	require.NoError(t, err)
	assert.Equal(t, "archive bytes", string(data))

	// second call finds the file and never reaches the network
	skipped, err = d.Download(context.Background(), "http://mirror.invalid/seq.tgz", "/tum_data/seq.tgz")
	require.NoError(t, err)
	assert.True(t, skipped)
	assert.Equal(t, 1, client.RequestCount())
}

func TestDownload_FailurePartwayLeavesNothingAtDest(t *testing.T) {
	muteLogs(t)
	reset := errors.New("connection reset by peer")
	mfs := fsutil.NewMemoryFileSystem()
	client := httputil.NewMockHTTPClient().Add(httputil.MockResponse{
		StatusCode:    http.StatusOK,
		Body:          "first half of the archive",
		ContentLength: 1 << 20,
		ReadErr:       reset,
	})
	d := &Downloader{Client: client, FS: mfs}

	dest := "/tum_data/seq.tgz"
	_, err := d.Download(context.Background(), "http://mirror.invalid/seq.tgz", dest)
	require.ErrorIs(t, err, reset)
	assert.ErrorContains(t, err, "interrupted")
	assert.False(t, mfs.Exists(dest))
	assert.Empty(t, mfs.Files())
}

func TestExtract_MemoryFileSystem(t *testing.T) {
	muteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("/tum_data/seq.tgz", buildTgz(t, sequence), 0644))

	n, err := Extract(mfs, "/tum_data/seq.tgz", "/tum_data")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{
		"/tum_data/rgbd_dataset_freiburg1_xyz/depth.txt",
		"/tum_data/rgbd_dataset_freiburg1_xyz/rgb.txt",
		"/tum_data/rgbd_dataset_freiburg1_xyz/rgb/1305031102.175304.png",
	}, mfs.Files())
	assert.True(t, mfs.IsDir("/tum_data/rgbd_dataset_freiburg1_xyz/rgb"))

	data, err := mfs.ReadFile("/tum_data/rgbd_dataset_freiburg1_xyz/rgb.txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), "1305031102.175304 rgb/1305031102.175304.png")
}

func TestExtract_MemoryFileSystemErrors(t *testing.T) {
	muteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()

	_, err := Extract(mfs, "/tum_data/missing.tgz", "/tum_data")
	assert.ErrorIs(t, err, ErrArchiveMissing)

	require.NoError(t, mfs.WriteFile("/tum_data/bad.tgz", buildTgz(t, []entry{{name: "../evil.txt", body: "x"}}), 0644))
	_, err = Extract(mfs, "/tum_data/bad.tgz", "/tum_data/out")
	assert.ErrorIs(t, err, ErrUnsafePath)
	assert.Empty(t, mfs.Files())
}

func TestSetup_MemoryFileSystem(t *testing.T) {
	muteLogs(t)
	mfs := fsutil.NewMemoryFileSystem()
	client := httputil.NewMockHTTPClient().AddResponse(http.StatusOK, string(buildTgz(t, sequence)))
	opts := Options{
		Name: config.DefaultDatasetName,
		URL:  "http://mirror.invalid/rgbd_dataset_freiburg1_xyz.tgz",
		Root: "/tum_data",
	}

	dir, err := Setup(context.Background(), &Downloader{Client: client, FS: mfs}, opts)
	require.NoError(t, err)
	assert.Equal(t, "/tum_data/rgbd_dataset_freiburg1_xyz", dir)
	assert.True(t, mfs.Exists(dir+"/depth.txt"))
	assert.False(t, mfs.Exists(opts.ArchivePath()))
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.DefaultConfig())
	assert.Equal(t, "rgbd_dataset_freiburg1_xyz", opts.Name)
	assert.Equal(t, "https://cvg.cit.tum.de/rgbd/dataset/freiburg1/rgbd_dataset_freiburg1_xyz.tgz", opts.URL)
	assert.Equal(t, filepath.Join("tum_data", "rgbd_dataset_freiburg1_xyz.tgz"), opts.ArchivePath())
}
