// Package persistence is a minimal write-ahead log for the example command's
// apply loop. The real Raft log and snapshotting live outside this module;
// this exists so cmd/raftsessiond has somewhere durable to record the
// entries it applies.
package persistence

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	// LogFilePrefix names each per-entry file on disk.
	LogFilePrefix = "log"
)

// Entry is one committed log entry as the example apply loop sees it: an
// index, the consistency level it was applied under, and an opaque
// gob-encoded command payload. Entry is encoded with encoding/gob, the
// same codec pkg/transport/grpcconn registers for the wire, rather than a
// protobuf message requiring generated code this module doesn't carry.
type Entry struct {
	Index       uint64
	Consistency int
	Payload     []byte
}

// LogManager is a Write-Ahead Log (WAL) for the example state machine. It is
// modeled as one file per entry, stored in the directory provided, following
// the naming convention "{log_directory}/log_{index}".
type LogManager struct {
	// mu protects LastIndex; hold it before reading or writing any field.
	mu        sync.Mutex
	logPath   string
	LastIndex uint64
}

// NewLogManager opens logPath (which must already exist as a directory) as
// the WAL's storage root.
func NewLogManager(logPath string) (*LogManager, error) {
	logPath = strings.TrimSuffix(logPath, "/")

	fileInfo, err := os.Stat(logPath)
	if err != nil {
		return nil, err
	}
	if !fileInfo.IsDir() {
		return nil, fmt.Errorf("file path does not point to a directory")
	}
	return &LogManager{logPath: logPath}, nil
}

// Append gob-encodes entry and writes it to a new file on disk, rejecting
// any entry at or behind the last one written.
func (l *LogManager) Append(entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Index <= l.LastIndex {
		return fmt.Errorf("persistence: entry %d has already been appended", entry.Index)
	}

	fileName := fmt.Sprintf("%s/%s_%d", l.logPath, LogFilePrefix, entry.Index)
	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("persistence: creating log file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("persistence: encoding entry: %w", err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("persistence: writing entry: %w", err)
	}

	l.LastIndex = entry.Index
	return nil
}

// Read decodes the entry previously written for index, if any.
func (l *LogManager) Read(index uint64) (*Entry, error) {
	fileName := fmt.Sprintf("%s/%s_%d", l.logPath, LogFilePrefix, index)
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("persistence: reading entry %d: %w", index, err)
	}

	var entry Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, fmt.Errorf("persistence: decoding entry %d: %w", index, err)
	}
	return &entry, nil
}
