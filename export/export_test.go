package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	gojson "github.com/goccy/go-json"

	"github.com/hazyhaar/urlsentry/detect"
	"github.com/hazyhaar/urlsentry/store"
)

func sampleDetections() []store.Detection {
	return []store.Detection{
		{
			ID: "det_1", FileID: "fil_1",
			URL: "/products?id=1' OR '1'='1", SourceIP: "192.168.1.10",
			AttackType: detect.SQLInjection, Severity: detect.SeverityHigh,
			ConfidenceScore: 85, Timestamp: "2026-08-15T10:00:00Z",
			DetectedAt: "2026-08-15T12:00:00Z",
		},
		{
			ID: "det_2", FileID: "fil_1",
			URL: "/download?file=../../etc/passwd", SourceIP: "192.168.1.12",
			AttackType: detect.DirectoryTraversal, Severity: detect.SeverityMedium,
			ConfidenceScore: 75, Timestamp: "2026-08-15T10:00:02Z",
			DetectedAt: "2026-08-15T12:00:00Z",
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleDetections()); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if strings.Join(rows[0], ",") != "url,source_ip,attack_type,severity,confidence_score,timestamp" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "/products?id=1' OR '1'='1" || rows[1][2] != "SQL Injection" || rows[1][4] != "85" {
		t.Errorf("row 1 = %v", rows[1])
	}
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1 {
		t.Errorf("expected header only, got %q", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, "2026-08-15T12:30:00Z", sampleDetections()); err != nil {
		t.Fatal(err)
	}

	var report Report
	if err := gojson.Unmarshal(buf.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.ExportedAt != "2026-08-15T12:30:00Z" {
		t.Errorf("exported_at = %q", report.ExportedAt)
	}
	if len(report.Detections) != 2 {
		t.Errorf("detections = %d, want 2", len(report.Detections))
	}
	if report.Statistics.TotalDetections != 2 {
		t.Errorf("statistics total = %d, want 2", report.Statistics.TotalDetections)
	}
	if report.Statistics.BySeverity["High"] != 1 || report.Statistics.BySeverity["Medium"] != 1 {
		t.Errorf("by_severity = %v", report.Statistics.BySeverity)
	}
}

func TestWriteJSON_EmptySetNotNull(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, "2026-08-15T12:30:00Z", nil); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "\"detections\": null") {
		t.Errorf("detections rendered as null:\n%s", buf.String())
	}
}
