// Package ingest normalizes uploaded traffic files into URL records and
// runs the per-file detection pipeline over them.
package ingest

import "errors"

// Record is the normalized currency between ingestion and
// classification: one URL with whatever context the source carried.
// Records are transient; only detections are persisted.
type Record struct {
	URL       string
	SourceIP  string
	Timestamp string
}

// NormalizeResult is the output of one adapter pass. Processed counts
// every row the adapter looked at (tabular) or every request it could
// parse (capture); Records holds only the classifiable ones, in stable
// file order.
type NormalizeResult struct {
	Records   []Record
	Processed int
}

// Ingestion error kinds. Any of these means the file was rejected
// wholesale and nothing was persisted.
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoURLColumn     = errors.New("no URL column found")
	ErrUnparseable     = errors.New("unparseable file content")
	ErrNoRecords       = errors.New("no URLs found")
)

// IsIngestionError reports whether err is a file-rejection error (as
// opposed to a persistence failure), so callers can map it to a client
// error rather than a server one.
func IsIngestionError(err error) bool {
	return errors.Is(err, ErrUnsupportedType) ||
		errors.Is(err, ErrNoURLColumn) ||
		errors.Is(err, ErrUnparseable) ||
		errors.Is(err, ErrNoRecords)
}
