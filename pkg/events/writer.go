package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/provisionworks/orchard/pkg/jobstore"
)

// JSONLWriter writes transition records as newline-delimited JSON to an
// io.Writer. It implements jobstore.Sink so it can be attached directly
// to the registry.
//
// JSONLWriter is safe for concurrent use. Writes are serialized with a
// mutex to ensure atomic line writes (no interleaved output).
type JSONLWriter struct {
	w      io.Writer
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	closed bool
}

// NewJSONLWriter creates a writer emitting to w. Sink delivery errors
// are logged, never propagated to the registry.
func NewJSONLWriter(w io.Writer, logger *zap.Logger) *JSONLWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONLWriter{
		w:      w,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// JobTransition implements jobstore.Sink.
func (jw *JSONLWriter) JobTransition(job jobstore.Job) {
	rec := TransitionRecord{
		Kind:     string(job.Kind),
		Status:   string(job.Status),
		Progress: job.Progress,
		Message:  job.Message,
	}
	if job.Status.Terminal() {
		rec.ReturnCode = job.ReturnCode
	}
	if err := jw.writeRecord(TypeTransition, job.ID, &rec); err != nil {
		jw.logger.Warn("job transition record dropped",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}

// Close marks the writer as closed.
//
// If the underlying writer implements io.Closer, it is NOT closed.
// The caller is responsible for closing the underlying writer.
func (jw *JSONLWriter) Close() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	jw.closed = true
	return nil
}

// writeRecord marshals data and writes a complete record line while
// holding the mutex, so each line lands atomically.
func (jw *JSONLWriter) writeRecord(recordType, jobID string, data any) error {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return &WriteError{Op: "marshal_data", Err: err}
	}

	jw.mu.Lock()
	defer jw.mu.Unlock()

	if jw.closed {
		return ErrWriterClosed
	}

	record := Record{
		Type:  recordType,
		TS:    jw.now(),
		JobID: jobID,
		Data:  dataBytes,
	}

	recordBytes, err := json.Marshal(record)
	if err != nil {
		return &WriteError{Op: "marshal_record", Err: err}
	}

	// io.Writer is allowed to return n < len(p) with nil error; a
	// short write would truncate a JSONL line and corrupt the stream.
	recordBytes = append(recordBytes, '\n')
	if err := writeAll(jw.w, recordBytes); err != nil {
		return &WriteError{Op: "write", Err: err}
	}
	return nil
}

// writeAll writes all bytes to w, handling short writes.
func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// Compile-time check that JSONLWriter implements jobstore.Sink.
var _ jobstore.Sink = (*JSONLWriter)(nil)
