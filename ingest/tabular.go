package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Column alias tables, resolved once per file against the header row.
// Matching is case-insensitive; the first header matching an alias wins.
var (
	urlAliases  = []string{"url", "request", "uri", "path"}
	ipAliases   = []string{"source_ip", "ip", "client_ip", "src_ip"}
	timeAliases = []string{"timestamp", "time", "date"}
)

// NormalizeTabular converts a delimited log file into URL records. The
// URL column is required (the whole file is rejected without one); the
// source IP and timestamp columns are optional and resolved
// independently. Rows whose URL value is empty count as processed but
// yield no record. Gzip-compressed input is detected by magic bytes and
// decompressed transparently.
func NormalizeTabular(r io.Reader) (*NormalizeResult, error) {
	br := bufio.NewReader(r)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %v", ErrUnparseable, err)
		}
		defer gz.Close()
		return normalizeCSV(gz)
	}
	return normalizeCSV(br)
}

func normalizeCSV(r io.Reader) (*NormalizeResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // ragged rows are a per-row problem, not a file problem
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrUnparseable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrUnparseable, err)
	}

	urlCol := resolveColumn(header, urlAliases)
	if urlCol < 0 {
		return nil, fmt.Errorf("%w (have: %s)", ErrNoURLColumn, strings.Join(header, ", "))
	}
	ipCol := resolveColumn(header, ipAliases)
	timeCol := resolveColumn(header, timeAliases)

	res := &NormalizeResult{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrUnparseable, res.Processed+1, err)
		}

		res.Processed++
		if urlCol >= len(row) {
			continue // short row: no URL cell to read
		}
		url := strings.TrimSpace(row[urlCol])
		if url == "" {
			continue
		}

		rec := Record{URL: url}
		if ipCol >= 0 && ipCol < len(row) {
			rec.SourceIP = strings.TrimSpace(row[ipCol])
		}
		if timeCol >= 0 && timeCol < len(row) {
			rec.Timestamp = strings.TrimSpace(row[timeCol])
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

// resolveColumn returns the index of the first header cell matching any
// alias, or -1. Alias order sets precedence, not header order, so
// "source_ip" beats a column that merely matches "ip".
func resolveColumn(header []string, aliases []string) int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
	}
	for _, alias := range aliases {
		for i, h := range normalized {
			if h == alias {
				return i
			}
		}
	}
	return -1
}
