package navlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelnav/internal/session"
	"voxelnav/internal/world"
)

// Record is one trace line.
type Record struct {
	At          time.Time   `json:"at"`
	Kind        string      `json:"kind"`
	Generation  uint64      `json:"generation"`
	Origin      world.Coord `json:"origin"`
	Destination world.Coord `json:"destination"`
	Outcome     string      `json:"outcome,omitempty"`
	PathLength  int         `json:"path_length,omitempty"`
	Cached      bool        `json:"cached,omitempty"`
	Expanded    int         `json:"expanded,omitempty"`
	Cost        float64     `json:"cost,omitempty"`
	ElapsedMS   float64     `json:"elapsed_ms,omitempty"`
}

// Tracer records session events. Write failures are logged and do not reach the session.
type Tracer struct {
	w      *Writer
	logger *log.Logger
}

func NewTracer(dir string, logger *log.Logger) *Tracer {
	if logger == nil {
		logger = log.New(log.Writer(), "navlog ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Tracer{w: NewWriter(dir, "navigation"), logger: logger}
}

func (t *Tracer) Observe(e session.Event) {
	rec := Record{
		At:          e.At,
		Kind:        e.Kind.String(),
		Generation:  e.Generation,
		Origin:      e.Origin,
		Destination: e.Destination,
		PathLength:  e.PathLength,
		Cached:      e.Cached,
	}
	switch e.Kind {
	case session.EventPathStarted, session.EventSearchFailed, session.EventDiscarded:
		if !e.Cached {
			rec.Outcome = e.Outcome.String()
			rec.Expanded = e.Expanded
			rec.Cost = e.Cost
			rec.ElapsedMS = float64(e.Elapsed) / float64(time.Millisecond)
		}
	}
	if err := t.w.Write(rec); err != nil {
		t.logger.Printf("trace %s: %v", rec.Kind, err)
	}
}

func (t *Tracer) Flush() error {
	return t.w.Flush()
}

func (t *Tracer) Close() error {
	return t.w.Close()
}

// ReadFile decodes every record in a trace file.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer dec.Close()

	var records []Record
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return records, fmt.Errorf("decode %s line %d: %w", path, len(records)+1, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}
