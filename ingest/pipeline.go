package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/hazyhaar/urlsentry/detect"
	"github.com/hazyhaar/urlsentry/idgen"
	"github.com/hazyhaar/urlsentry/metrics"
	"github.com/hazyhaar/urlsentry/store"
)

// Processor runs one uploaded file through normalization,
// classification and persistence.
type Processor struct {
	store          *store.Store
	metrics        *metrics.Metrics
	newFileID      idgen.Generator
	newDetectionID idgen.Generator
	now            func() time.Time
}

// Option customizes a Processor.
type Option func(*Processor)

// WithFileIDGenerator overrides the file-entry ID generator.
func WithFileIDGenerator(gen idgen.Generator) Option {
	return func(p *Processor) { p.newFileID = gen }
}

// WithDetectionIDGenerator overrides the detection ID generator.
func WithDetectionIDGenerator(gen idgen.Generator) Option {
	return func(p *Processor) { p.newDetectionID = gen }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor wires a Processor to its store and metrics.
func NewProcessor(s *store.Store, m *metrics.Metrics, opts ...Option) *Processor {
	p := &Processor{
		store:          s,
		metrics:        m,
		newFileID:      idgen.Prefixed("fil_", idgen.UUIDv7()),
		newDetectionID: idgen.Prefixed("det_", idgen.UUIDv7()),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProcessResult summarizes one completed pipeline run.
type ProcessResult struct {
	FileID               string `json:"file_id"`
	FileName             string `json:"file_name"`
	FileType             string `json:"file_type"`
	TotalURLsProcessed   int    `json:"total_urls_processed"`
	TotalAttacksDetected int    `json:"total_attacks_detected"`
}

// Process ingests one uploaded file end to end: infer the adapter from
// fileName (or declaredType when set), normalize, classify every
// record, and persist the run atomically. A file from which no records
// could be normalized is rejected with ErrNoRecords and leaves no
// trace in the store.
func (p *Processor) Process(ctx context.Context, r io.Reader, fileName, declaredType string) (*ProcessResult, error) {
	fileType := declaredType
	if fileType == "" {
		fileType = inferFileType(fileName)
	}

	var (
		norm *NormalizeResult
		err  error
	)
	switch fileType {
	case "csv":
		norm, err = NormalizeTabular(r)
	case "pcap":
		norm, err = NormalizeCapture(r)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedType, fileName)
	}
	if err != nil {
		p.metrics.IngestErrorsTotal.Inc()
		return nil, err
	}
	if norm.Processed == 0 {
		p.metrics.IngestErrorsTotal.Inc()
		return nil, fmt.Errorf("%w in %q", ErrNoRecords, fileName)
	}

	now := p.now().UTC().Format(time.RFC3339)
	fileID := p.newFileID()

	var dets []store.Detection
	for _, rec := range norm.Records {
		result, ok := detect.Classify(rec.URL)
		if !ok {
			continue
		}
		ts := rec.Timestamp
		if ts == "" {
			ts = now
		}
		dets = append(dets, store.Detection{
			ID:              p.newDetectionID(),
			FileID:          fileID,
			URL:             rec.URL,
			SourceIP:        rec.SourceIP,
			AttackType:      result.Type,
			Severity:        result.Severity,
			ConfidenceScore: result.Confidence,
			Timestamp:       ts,
			DetectedAt:      now,
		})
	}

	entry := &store.FileEntry{
		ID:                   fileID,
		FileName:             fileName,
		FileType:             fileType,
		UploadTime:           now,
		TotalURLsProcessed:   norm.Processed,
		TotalAttacksDetected: len(dets),
	}
	if err := p.store.SaveRun(ctx, entry, dets); err != nil {
		return nil, fmt.Errorf("persist run for %q: %w", fileName, err)
	}

	p.metrics.FilesProcessedTotal.Inc()
	p.metrics.URLsProcessedTotal.Add(float64(norm.Processed))
	for _, d := range dets {
		p.metrics.DetectionsTotal.WithLabelValues(string(d.AttackType)).Inc()
	}

	slog.Info("file processed",
		"file_id", fileID,
		"file_name", fileName,
		"file_type", fileType,
		"urls_processed", norm.Processed,
		"attacks_detected", len(dets))

	return &ProcessResult{
		FileID:               fileID,
		FileName:             fileName,
		FileType:             fileType,
		TotalURLsProcessed:   norm.Processed,
		TotalAttacksDetected: len(dets),
	}, nil
}

// inferFileType maps a file name to an adapter. Compressed tabular
// files keep their inner extension (access.csv.gz).
func inferFileType(fileName string) string {
	name := strings.ToLower(fileName)
	name = strings.TrimSuffix(name, ".gz")
	switch path.Ext(name) {
	case ".csv":
		return "csv"
	case ".pcap", ".cap":
		return "pcap"
	default:
		return ""
	}
}
