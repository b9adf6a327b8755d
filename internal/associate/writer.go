package associate

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/banshee-data/voeval/internal/fsutil"
	"github.com/banshee-data/voeval/internal/timestamps"
)

// WriteAssociations writes one "ts_a payload_a ts_b payload_b" line per
// association, timestamps with six decimals, in the given order. It returns
// the number of lines written.
func WriteAssociations(w io.Writer, first, second timestamps.RecordList, assoc []Association) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0
	for _, a := range assoc {
		if a.First < 0 || a.First >= len(first) || a.Second < 0 || a.Second >= len(second) {
			return n, fmt.Errorf("association (%d, %d) out of range for lists of %d and %d records",
				a.First, a.Second, len(first), len(second))
		}
		r1, r2 := first[a.First], second[a.Second]
		if _, err := fmt.Fprintf(bw, "%.6f %s %.6f %s\n", r1.Timestamp, r1.Payload, r2.Timestamp, r2.Payload); err != nil {
			return n, err
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

// WriteAssociationFile renders the associations in memory and then
// replaces path in one write, so a formatting error leaves no file behind.
func WriteAssociationFile(fsys fsutil.FileSystem, path string, first, second timestamps.RecordList, assoc []Association) (int, error) {
	var buf bytes.Buffer
	n, err := WriteAssociations(&buf, first, second, assoc)
	if err != nil {
		return 0, err
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return n, nil
}
