package timestamps

import (
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/voeval/internal/testutil"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   TimestampedRecord
		wantOK bool
	}{
		{"simple", "1305031102.175304 rgb/1305031102.175304.png", TimestampedRecord{1305031102.175304, "rgb/1305031102.175304.png"}, true},
		{"collapses whitespace", "1.5\t a   b \t c  ", TimestampedRecord{1.5, "a b c"}, true},
		{"pose payload", "1.0 0.1 0.2 0.3 0 0 0 1", TimestampedRecord{1.0, "0.1 0.2 0.3 0 0 0 1"}, true},
		{"timestamp only", "42", TimestampedRecord{42, ""}, true},
		{"leading whitespace", "   3.25 x.png", TimestampedRecord{3.25, "x.png"}, true},
		{"blank", "", TimestampedRecord{}, false},
		{"whitespace only", " \t ", TimestampedRecord{}, false},
		{"comment", "# timestamp filename", TimestampedRecord{}, false},
		{"indented comment token", "  # not numeric", TimestampedRecord{}, false},
		{"non numeric", "badline", TimestampedRecord{}, false},
		{"numeric suffix", "12abc file.png", TimestampedRecord{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLine_NonFiniteTimestampsAreKept(t *testing.T) {
	rec, ok := ParseLine("nan x.png")
	require.True(t, ok)
	assert.True(t, math.IsNaN(rec.Timestamp))

	rec, ok = ParseLine("inf x.png")
	require.True(t, ok)
	assert.True(t, math.IsInf(rec.Timestamp, 1))
}

func TestParseRecords_LenientPolicy(t *testing.T) {
	input := "# comment\n\n1.234 foo.png\nbadline\n5.678 bar.png\n"

	got, err := ParseRecords(strings.NewReader(input))
	require.NoError(t, err)

	want := RecordList{
		{Timestamp: 1.234, Payload: "foo.png"},
		{Timestamp: 5.678, Payload: "bar.png"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseRecords mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRecords_PreservesFileOrder(t *testing.T) {
	input := "3.0 c\n1.0 a\n2.0 b\n"

	got, err := ParseRecords(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []float64{3.0, 1.0, 2.0}, got.Timestamps())
}

func TestParseRecords_EmptyIsNotAnError(t *testing.T) {
	got, err := ParseRecords(strings.NewReader("# only comments\n\n"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseRecords_CRLF(t *testing.T) {
	got, err := ParseRecords(strings.NewReader("1.0 a.png\r\n2.0 b.png\r\n"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.png", got[0].Payload)
	assert.Equal(t, "b.png", got[1].Payload)
}

func TestReadRecordFile(t *testing.T) {
	mfs := testutil.NewMemFS(t, map[string]string{
		"/data/rgb.txt": "# color images\n1.0 rgb/1.png\n2.0 rgb/2.png\n",
	})

	got, err := ReadRecordFile(mfs, "/data/rgb.txt")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "rgb/2.png", got[1].Payload)
}

func TestReadRecordFile_Missing(t *testing.T) {
	mfs := testutil.NewMemFS(t, nil)

	_, err := ReadRecordFile(mfs, "/data/depth.txt")
	testutil.AssertErrorIs(t, err, ErrMissingInputFile)
	assert.Contains(t, err.Error(), "/data/depth.txt")
}

func TestReadRecordFile_VeryLongLine(t *testing.T) {
	payload := strings.Repeat("x", 2*1024*1024)
	content := "1.0 " + payload + "\n2.0 short.png\r\n3.0 last.png"
	mfs := testutil.NewMemFS(t, map[string]string{"/big.txt": content})

	got, err := ReadRecordFile(mfs, "/big.txt")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, len(payload), len(got[0].Payload))
	assert.Equal(t, "short.png", got[1].Payload)
	assert.Equal(t, TimestampedRecord{3.0, "last.png"}, got[2])
}

func TestParseRecords_ReadError(t *testing.T) {
	r := io.MultiReader(strings.NewReader("1.0 a.png\n"), iotest.ErrReader(errors.New("disk gone")))

	_, err := ParseRecords(r)
	assert.ErrorContains(t, err, "disk gone")
}
