package warehouse

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/pipeline"
	"github.com/c360/etlstreams/pkg/timestamp"
)

const (
	defaultBufferSize = 100
	defaultFilePrefix = "records"
)

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithBufferSize sets how many records accumulate before an automatic
// flush. Values below 1 are ignored.
func WithBufferSize(n int) FileStoreOption {
	return func(s *FileStore) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// WithFilePrefix sets the file name prefix, producing
// <prefix>-2006-01-02.jsonl files.
func WithFilePrefix(prefix string) FileStoreOption {
	return func(s *FileStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// FileStore appends processed records to a JSONL file per UTC day.
// Writes are buffered; the buffer drains when full, on Flush, and on
// Close. Rotation to a new day's file happens at flush time.
type FileStore struct {
	dir        string
	prefix     string
	bufferSize int
	logger     *slog.Logger

	recordsLoaded int64
	loadErrors    int64
	bytesWritten  int64

	mu           sync.Mutex
	buffer       [][]byte
	file         *os.File
	day          string
	lastKey      string
	lastLoadTime int64
}

// NewFileStore creates the output directory if needed and returns a
// store writing under it.
func NewFileStore(dir string, logger *slog.Logger, opts ...FileStoreOption) (*FileStore, error) {
	if dir == "" {
		return nil, errors.WrapInvalid(nil, "warehouse", "NewFileStore", "directory cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WrapTransient(err, "warehouse", "NewFileStore", "create output directory")
	}

	s := &FileStore{
		dir:        dir,
		prefix:     defaultFilePrefix,
		bufferSize: defaultBufferSize,
		logger:     logger.With("component", "warehouse-file", "dir", dir),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.buffer = make([][]byte, 0, s.bufferSize)

	return s, nil
}

// LoadRecord buffers the record as one JSON line. When the buffer
// reaches capacity the triggering call performs the flush and returns
// any flush error.
func (s *FileStore) LoadRecord(_ context.Context, record pipeline.Record) error {
	if len(record) == 0 {
		atomic.AddInt64(&s.loadErrors, 1)
		return errors.WrapInvalid(errors.ErrEmptyRecord, "warehouse", "LoadRecord", "record cannot be empty")
	}

	data, err := json.Marshal(record)
	if err != nil {
		atomic.AddInt64(&s.loadErrors, 1)
		return errors.WrapInvalid(err, "warehouse", "LoadRecord", "marshal record")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buffer = append(s.buffer, data)
	atomic.AddInt64(&s.recordsLoaded, 1)
	s.lastKey = record.ID()
	s.lastLoadTime = timestamp.Now()

	if len(s.buffer) >= s.bufferSize {
		if err := s.flushLocked(); err != nil {
			return errors.WrapTransient(err, "warehouse", "LoadRecord", "flush full buffer")
		}
	}
	return nil
}

// LoadBatch buffers records in order, continuing past per-record failures.
func (s *FileStore) LoadBatch(ctx context.Context, records []pipeline.Record) (int, error) {
	var errs []error
	loaded := 0
	for _, record := range records {
		if err := s.LoadRecord(ctx, record); err != nil {
			errs = append(errs, err)
			continue
		}
		loaded++
	}
	return loaded, stderrors.Join(errs...)
}

// Flush writes all buffered records to the current day's file.
func (s *FileStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.flushLocked(); err != nil {
		return errors.WrapTransient(err, "warehouse", "Flush", "write buffered records")
	}
	return nil
}

// flushLocked drains the buffer into the file for the current UTC day,
// rotating the handle when the day has changed. Caller holds s.mu. On
// an open failure the buffer is kept for the next attempt; write
// failures drop the affected lines.
func (s *FileStore) flushLocked() error {
	if len(s.buffer) == 0 {
		return nil
	}

	day := time.Now().UTC().Format("2006-01-02")
	if err := s.openForDayLocked(day); err != nil {
		return err
	}

	pending := s.buffer
	s.buffer = make([][]byte, 0, s.bufferSize)

	var errs []error
	for _, line := range pending {
		n, err := s.file.Write(append(line, '\n'))
		if err != nil {
			atomic.AddInt64(&s.loadErrors, 1)
			errs = append(errs, err)
			continue
		}
		atomic.AddInt64(&s.bytesWritten, int64(n))
	}
	if len(errs) > 0 {
		s.logger.Error("dropped records on flush", "count", len(errs), "error", errs[0])
	}
	return stderrors.Join(errs...)
}

// openForDayLocked ensures the file handle points at the given day's
// file. Caller holds s.mu.
func (s *FileStore) openForDayLocked(day string) error {
	if s.file != nil && s.day == day {
		return nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			s.logger.Warn("close rotated file", "day", s.day, "error", err)
		}
		s.file = nil
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s-%s.jsonl", s.prefix, day))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	s.file = file
	s.day = day
	s.logger.Info("opened warehouse file", "path", path)
	return nil
}

// Stats returns a snapshot of load counters.
func (s *FileStore) Stats() StoreStats {
	s.mu.Lock()
	lastKey := s.lastKey
	lastLoad := s.lastLoadTime
	s.mu.Unlock()

	return StoreStats{
		RecordsLoaded: atomic.LoadInt64(&s.recordsLoaded),
		LoadErrors:    atomic.LoadInt64(&s.loadErrors),
		LastKey:       lastKey,
		LastLoadTime:  lastLoad,
	}
}

// BytesWritten reports the total bytes flushed to disk.
func (s *FileStore) BytesWritten() int64 {
	return atomic.LoadInt64(&s.bytesWritten)
}

// Close flushes remaining records and closes the file handle.
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flushErr := s.flushLocked()
	var closeErr error
	if s.file != nil {
		closeErr = s.file.Close()
		s.file = nil
	}
	if err := stderrors.Join(flushErr, closeErr); err != nil {
		return errors.WrapTransient(err, "warehouse", "Close", "flush and close file")
	}
	return nil
}
