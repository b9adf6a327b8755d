package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/voeval/internal/associate"
	"github.com/banshee-data/voeval/internal/config"
	"github.com/banshee-data/voeval/internal/db"
	"github.com/banshee-data/voeval/internal/fsutil"
	"github.com/banshee-data/voeval/internal/monitoring"
	"github.com/banshee-data/voeval/internal/testutil"
	"github.com/banshee-data/voeval/internal/timestamps"
)

func muteLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

func stageSequence(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTempFile(t, dir, "rgb.txt", "# color images\n1000.000000 rgb1.png\n1000.500000 rgb2.png\n")
	testutil.WriteTempFile(t, dir, "depth.txt", "# depth maps\n999.990000 d1.png\n1000.520000 d2.png\n")
	return dir
}

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := parseFlags(nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultDataDir, cfg.DataDir)
	assert.Equal(t, "rgb.txt", cfg.FirstFile)
	assert.Equal(t, "depth.txt", cfg.SecondFile)
	assert.Equal(t, "associations.txt", cfg.OutputFile)
	assert.Equal(t, 0.02, cfg.MaxDifference)
	assert.Equal(t, "brute", cfg.Strategy)
	assert.Empty(t, cfg.set)
}

func TestParseFlags_Errors(t *testing.T) {
	var stderr bytes.Buffer
	_, err := parseFlags([]string{"-max-diff", "abc"}, &stderr)
	assert.Error(t, err)
	assert.Contains(t, stderr.String(), "Usage: associate")

	_, err = parseFlags([]string{"-h"}, io.Discard)
	assert.True(t, errors.Is(err, flag.ErrHelp))

	_, err = parseFlags([]string{"extra"}, io.Discard)
	assert.ErrorContains(t, err, "unexpected arguments")
}

func TestResolve_FlagsOverrideConfigFile(t *testing.T) {
	path := testutil.WriteTempFile(t, t.TempDir(), "cfg.json",
		`{"data_dir": "/from/file", "max_difference": 0.05, "strategy": "auto"}`)

	cfg, err := parseFlags([]string{"-config", path, "-max-diff", "0.01"}, io.Discard)
	require.NoError(t, err)

	resolved, err := cfg.resolve()
	require.NoError(t, err)
	assert.Equal(t, "/from/file", resolved.GetDataDir())
	assert.Equal(t, 0.01, resolved.GetMaxDifference())
	assert.Equal(t, "auto", resolved.GetStrategy())
	assert.Equal(t, "rgb.txt", resolved.GetFirstFile())
}

func TestResolve_InvalidConfiguration(t *testing.T) {
	for _, args := range [][]string{
		{"-max-diff", "0"},
		{"-max-diff", "-1"},
		{"-strategy", "fastest"},
		{"-output", "../escape.txt"},
		{"-workers", "-2"},
	} {
		t.Run(args[0]+"="+args[1], func(t *testing.T) {
			cfg, err := parseFlags(args, io.Discard)
			require.NoError(t, err)
			_, err = cfg.resolve()
			assert.ErrorContains(t, err, "invalid configuration")
		})
	}
}

func TestRun_WritesAssociationsAndReport(t *testing.T) {
	muteLogs(t)
	dir := stageSequence(t)

	cfg, err := parseFlags([]string{"-data", dir}, io.Discard)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), fsutil.OSFileSystem{}, &stdout, cfg))

	data, err := os.ReadFile(filepath.Join(dir, "associations.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1000.000000 rgb1.png 999.990000 d1.png\n1000.500000 rgb2.png 1000.520000 d2.png\n", string(data))

	assert.Contains(t, stdout.String(), "Success! Wrote 2 associations to "+filepath.Join(dir, "associations.txt"))
	assert.Contains(t, stdout.String(), "(0 unmatched)")
}

func TestRun_Failures(t *testing.T) {
	muteLogs(t)
	tests := []struct {
		name    string
		files   map[string]string
		wantErr error
	}{
		{
			name:    "missing data directory",
			files:   map[string]string{},
			wantErr: associate.ErrMissingDataDirectory,
		},
		{
			name:    "missing input file",
			files:   map[string]string{"/seq/rgb.txt": "1 a\n"},
			wantErr: timestamps.ErrMissingInputFile,
		},
		{
			name:    "empty record list",
			files:   map[string]string{"/seq/rgb.txt": "# only comments\n", "/seq/depth.txt": "1 d\n"},
			wantErr: associate.ErrEmptyRecordList,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfs := testutil.NewMemFS(t, tt.files)
			cfg, err := parseFlags([]string{"-data", "/seq"}, io.Discard)
			require.NoError(t, err)

			var stdout bytes.Buffer
			err = run(context.Background(), mfs, &stdout, cfg)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, mfs.Exists("/seq/associations.txt"))
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_RecordsInLedger(t *testing.T) {
	muteLogs(t)
	dir := stageSequence(t)
	ledgerPath := filepath.Join(t.TempDir(), "runs.db")

	cfg, err := parseFlags([]string{"-data", dir, "-ledger", ledgerPath}, io.Discard)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), fsutil.OSFileSystem{}, &stdout, cfg))
	assert.Contains(t, stdout.String(), "Recorded run ")

	ledger, err := db.NewDB(ledgerPath)
	require.NoError(t, err)
	defer ledger.Close()

	runs, err := ledger.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, dir, runs[0].DataDir)
	assert.Equal(t, 2, runs[0].AssociationCount)

	pairs, err := ledger.RunPairs(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, 1000.52, pairs[1].SecondTimestamp)
}

func TestLedgerEntry(t *testing.T) {
	res := &associate.Result{
		First:        timestamps.RecordList{{Timestamp: 1, Payload: "a"}, {Timestamp: 2, Payload: "b"}},
		Second:       timestamps.RecordList{{Timestamp: 1.25, Payload: "x"}},
		Associations: []associate.Association{{First: 0, Second: 0}},
	}
	res.Gaps = associate.SummarizeGaps(associate.Gaps(res.First, res.Second, res.Associations), len(res.First))

	run, pairs := ledgerEntry(associate.Options{DataDir: "/d", MaxDifference: 0.5}, res)

	assert.Equal(t, "/d", run.DataDir)
	assert.Equal(t, 2, run.FirstCount)
	assert.Equal(t, 1, run.SecondCount)
	assert.Equal(t, 1, run.AssociationCount)
	assert.Equal(t, 0.25, run.MaxGap)
	assert.Empty(t, run.ID)
	assert.Equal(t, []db.Pair{{FirstIndex: 0, SecondIndex: 0, FirstTimestamp: 1, SecondTimestamp: 1.25, Gap: 0.25}}, pairs)
}
