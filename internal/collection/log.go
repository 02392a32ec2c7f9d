package collection

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/TheDrone7/fhedb-sub001/internal/document"
)

// Operation is the kind of a persisted log record.
type Operation string

const (
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// LogEntry is one record of the collection's operation log.
type LogEntry struct {
	Timestamp string
	Operation Operation
	Document  bson.M
}

// logWriter appends framed log records to the collection's log file.
// Each record is a u32 little-endian length followed by the BSON
// encoding of {timestamp, operation, document}. The handle stays open
// in append mode for the collection's lifetime; every append is
// synced to disk before returning.
type logWriter struct {
	mu   sync.Mutex
	file *os.File
	path string

	faultAfter int
	fault      error
}

func openLog(path string) (*logWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	return &logWriter{file: file, path: path}, nil
}

func encodeFrame(op Operation, doc bson.M) ([]byte, error) {
	entry := bson.M{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"operation": string(op),
		"document":  doc,
	}
	body, err := bson.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode log entry: %w", err)
	}
	frame := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[4:], body)
	return frame, nil
}

func (w *logWriter) failAfter(n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.faultAfter = n
	w.fault = err
}

func (w *logWriter) Append(op Operation, doc bson.M) error {
	frame, err := encodeFrame(op, doc)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fault != nil {
		if w.faultAfter == 0 {
			err := w.fault
			w.fault = nil
			return err
		}
		w.faultAfter--
	}
	if _, err := w.file.Write(frame); err != nil {
		return fmt.Errorf("append to log %s: %w", w.path, err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync log %s: %w", w.path, err)
	}
	return nil
}

func (w *logWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// reopen swaps the underlying handle to a freshly rewritten file.
func (w *logWriter) reopen() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close log %s: %w", w.path, err)
	}
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("reopen log %s: %w", w.path, err)
	}
	w.file = file
	return nil
}

// logRecord pairs a decoded entry with its byte offset in the file,
// for replay error reporting.
type logRecord struct {
	LogEntry
	offset int64
}

// readLog reads every complete record from a log file in order. A
// truncated final record (a crash mid-append) silently ends the read;
// a complete record that fails to decode is reported as corruption at
// its offset.
func readLog(path string) ([]logRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	defer file.Close()

	var (
		entries []logRecord
		offset  int64
		header  [4]byte
	)
	for {
		if _, err := io.ReadFull(file, header[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return entries, nil
			}
			return nil, fmt.Errorf("read log %s: %w", path, err)
		}
		length := binary.LittleEndian.Uint32(header[:])

		body := make([]byte, length)
		if _, err := io.ReadFull(file, body); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return entries, nil
			}
			return nil, fmt.Errorf("read log %s: %w", path, err)
		}

		entry, err := decodeLogEntry(body)
		if err != nil {
			return nil, corruptLog(offset, "%v", err)
		}
		entries = append(entries, logRecord{LogEntry: entry, offset: offset})
		offset += int64(4 + length)
	}
}

func decodeLogEntry(body []byte) (LogEntry, error) {
	var raw bson.M
	if err := bson.Unmarshal(body, &raw); err != nil {
		return LogEntry{}, fmt.Errorf("decode record: %w", err)
	}
	raw = document.NormalizeMap(raw)

	ts, ok := raw["timestamp"].(string)
	if !ok {
		return LogEntry{}, errors.New("record has no timestamp")
	}
	opStr, ok := raw["operation"].(string)
	if !ok {
		return LogEntry{}, errors.New("record has no operation")
	}
	op := Operation(opStr)
	switch op {
	case OpInsert, OpUpdate, OpDelete:
	default:
		return LogEntry{}, fmt.Errorf("unknown operation %q", opStr)
	}
	doc, ok := raw["document"].(bson.M)
	if !ok {
		return LogEntry{}, errors.New("record has no document")
	}
	return LogEntry{Timestamp: ts, Operation: op, Document: doc}, nil
}
