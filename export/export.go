// Package export renders detection sets into downloadable CSV and JSON
// reports.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/hazyhaar/urlsentry/stats"
	"github.com/hazyhaar/urlsentry/store"
)

var csvHeader = []string{"url", "source_ip", "attack_type", "severity", "confidence_score", "timestamp"}

// WriteCSV streams a detection set as CSV, header first, preserving
// input order.
func WriteCSV(w io.Writer, dets []store.Detection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, d := range dets {
		row := []string{
			d.URL,
			d.SourceIP,
			string(d.AttackType),
			string(d.Severity),
			strconv.Itoa(d.ConfidenceScore),
			d.Timestamp,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Report is the JSON export envelope: the full detection set plus the
// statistics computed over that same set.
type Report struct {
	ExportedAt string            `json:"exported_at"`
	Statistics stats.Statistics  `json:"statistics"`
	Detections []store.Detection `json:"detections"`
}

// WriteJSON streams a detection set as a JSON report. The detections
// slice is never null in the output, even when empty.
func WriteJSON(w io.Writer, exportedAt string, dets []store.Detection) error {
	if dets == nil {
		dets = []store.Detection{}
	}
	report := Report{
		ExportedAt: exportedAt,
		Statistics: stats.Aggregate(dets),
		Detections: dets,
	}
	enc := gojson.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}
