// Package timestamps reads timestamped record listings such as the rgb.txt
// and depth.txt indices shipped with TUM RGB-D sequences.
//
// Each meaningful line is "<timestamp> <payload...>". Blank lines and lines
// starting with '#' are ignored, and lines whose first token is not a number
// are dropped without error.
package timestamps

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"github.com/banshee-data/voeval/internal/fsutil"
)

// ErrMissingInputFile is returned when a record listing does not exist.
var ErrMissingInputFile = errors.New("input file not found")

// TimestampedRecord is one parsed line: a time in seconds and the rest of
// the line verbatim (tokens rejoined with single spaces).
type TimestampedRecord struct {
	Timestamp float64
	Payload   string
}

// RecordList holds records in source file order.
type RecordList []TimestampedRecord

// Timestamps returns the timestamps in list order.
func (l RecordList) Timestamps() []float64 {
	ts := make([]float64, len(l))
	for i, r := range l {
		ts[i] = r.Timestamp
	}
	return ts
}

// ParseLine parses a single line. ok is false when the line is blank, a
// comment, or has no numeric leading token.
func ParseLine(line string) (rec TimestampedRecord, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(line, "#") {
		return TimestampedRecord{}, false
	}

	fields := strings.Fields(trimmed)
	ts, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return TimestampedRecord{}, false
	}
	return TimestampedRecord{
		Timestamp: ts,
		Payload:   strings.Join(fields[1:], " "),
	}, true
}

// ParseRecords reads every line from r and keeps the ones ParseLine accepts.
// An empty list is a valid result.
func ParseRecords(r io.Reader) (RecordList, error) {
	var records RecordList

	// no line length limit: an oversized line is just another line
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			if rec, ok := ParseLine(strings.TrimRight(line, "\r\n")); ok {
				records = append(records, rec)
			}
		}
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read records: %w", err)
		}
	}
}

// ReadRecordFile opens path on fsys and parses it. A missing file yields an
// error wrapping ErrMissingInputFile that names the path.
func ReadRecordFile(fsys fsutil.FileSystem, path string) (RecordList, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingInputFile, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ParseRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
