package trajerr

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/banshee-data/voeval/internal/fsutil"
)

// CSVName is the file name of the combined data export for kind.
func CSVName(kind Kind) string {
	return fmt.Sprintf("%s_data_full.csv", kind)
}

// WriteCSV writes distance, error and seconds columns, one row per pose.
func WriteCSV(w io.Writer, r *Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Distance_from_Start_m", r.Kind.Column(), "Seconds_from_Start"}); err != nil {
		return err
	}
	for i := range r.Errors {
		row := []string{
			formatFloat(r.Distances[i]),
			formatFloat(r.Errors[i]),
			formatFloat(r.Seconds[i]),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the combined data to path.
func ExportCSV(fsys fsutil.FileSystem, path string, r *Result) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, r); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return fsys.WriteFile(path, buf.Bytes(), 0644)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
