// Package export converts a RecordSet into the canonical delimited-text
// artifact published by the pipeline.
//
// The artifact is UTF-8 CSV with a header row of column names followed by
// one row per record. Temporal columns are rendered in a fixed
// "YYYY-MM-DD HH:MM:SS" layout so no binary temporal encoding leaks into
// the output; null values render as empty fields.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/blobcast/pkg/recordset"
	"github.com/ajitpratap0/blobcast/pkg/xerrors"
)

// timestampLayout is the fixed textual format for temporal columns.
const timestampLayout = "2006-01-02 15:04:05"

// isoLayout renders stray temporal values in mixed columns, mirroring an
// isoformat-style conversion.
const isoLayout = "2006-01-02T15:04:05"

// Artifact is the serialized export: a byte sequence paired with the fixed
// blob name it will be published under.
type Artifact struct {
	Name string
	Data []byte
}

// WriteFile materializes the artifact at the given local path. The caller
// owns removal of the file after the publish attempt.
func (a *Artifact) WriteFile(path string) error {
	if err := os.WriteFile(path, a.Data, 0o644); err != nil {
		return xerrors.Wrap(err, xerrors.ErrorTypeFile, "failed to write local artifact")
	}
	return nil
}

// Writer serializes RecordSets into CSV artifacts.
type Writer struct {
	blobName string
	logger   *zap.Logger
}

// NewWriter creates a Writer producing artifacts under the given name.
func NewWriter(blobName string, logger *zap.Logger) *Writer {
	return &Writer{
		blobName: blobName,
		logger:   logger.With(zap.String("component", "export")),
	}
}

// Marshal converts the record set into a CSV artifact.
//
// An empty record set is a defined refusal, not a generic error: Marshal
// returns an error satisfying xerrors.IsNoData and the pipeline records
// the run as "export skipped, no data". A zero-row file is never produced.
func (w *Writer) Marshal(rs *recordset.RecordSet) (*Artifact, error) {
	if rs == nil || rs.Empty() {
		return nil, xerrors.Wrap(xerrors.ErrNoData, xerrors.ErrorTypeData, "refusing to serialize empty record set")
	}

	columns := rs.Columns()
	temporal := temporalColumns(rs)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	if err := cw.Write(columns); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeData, "failed to write header row")
	}

	row := make([]string, len(columns))
	for _, r := range rs.Rows() {
		for i, col := range columns {
			v, _ := r.Get(col)
			row[i] = renderValue(v, temporal[col])
		}
		if err := cw.Write(row); err != nil {
			return nil, xerrors.Wrap(err, xerrors.ErrorTypeData, "failed to write record row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeData, "csv serialization failed")
	}

	w.logger.Info("record set serialized",
		zap.Int("rows", rs.Len()),
		zap.Int("columns", len(columns)),
		zap.Int("bytes", buf.Len()))

	return &Artifact{Name: w.blobName, Data: buf.Bytes()}, nil
}

// temporalColumns reports, per column, whether every present non-null
// value is a temporal instant. Such columns get the fixed timestamp
// layout; any other column renders values individually.
func temporalColumns(rs *recordset.RecordSet) map[string]bool {
	out := make(map[string]bool, len(rs.Columns()))
	for _, col := range rs.Columns() {
		out[col] = true
	}

	counts := make(map[string]int, len(out))
	for _, r := range rs.Rows() {
		for _, col := range rs.Columns() {
			v, ok := r.Get(col)
			if !ok || v == nil {
				continue
			}
			if _, isTime := v.(time.Time); isTime {
				counts[col]++
			} else {
				out[col] = false
			}
		}
	}

	// A column with no temporal values at all is not a temporal column.
	for col := range out {
		if counts[col] == 0 {
			out[col] = false
		}
	}
	return out
}

// renderValue converts one value to its textual form. Nulls render as
// empty fields.
func renderValue(v interface{}, temporalColumn bool) string {
	if v == nil {
		return ""
	}

	switch val := v.(type) {
	case time.Time:
		if temporalColumn {
			return val.Format(timestampLayout)
		}
		return val.Format(isoLayout)
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}
