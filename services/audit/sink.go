// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// ErrSinkClosed is returned by Append after Close.
var ErrSinkClosed = errors.New("audit: sink is closed")

// Sink is a destination for audit entries.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Sink interface {
	// Append durably records one entry.
	Append(ctx context.Context, entry Entry) error

	// Close releases sink resources. Append must not be called after Close.
	Close() error
}

// =============================================================================
// JSONL Sink
// =============================================================================

// JSONLSink appends entries to a newline-delimited JSON file.
//
// Description:
//
//	One JSON object per line, append-only. Retrieval reads the whole file;
//	acceptable for the audit volumes this service sees (every SENSITIVE
//	query, not every request). Rotation is left to external tooling.
//
// Thread Safety: Safe for concurrent use via sync.Mutex.
type JSONLSink struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// NewJSONLSink opens (creating if needed) an append-only JSONL audit log at
// path.
func NewJSONLSink(path string) (*JSONLSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log %s: %w", path, err)
	}
	return &JSONLSink{path: path, file: file}, nil
}

// Append implements Sink.
func (s *JSONLSink) Append(_ context.Context, entry Entry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return ErrSinkClosed
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

// Close implements Sink.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Recent returns up to limit entries, newest first.
func (s *JSONLSink) Recent(limit int) ([]Entry, error) {
	return s.load(limit, func(Entry) bool { return true })
}

// ForUser returns up to limit entries for one user email, newest first.
// Matching is case-insensitive.
func (s *JSONLSink) ForUser(userEmail string, limit int) ([]Entry, error) {
	want := strings.ToLower(userEmail)
	return s.load(limit, func(e Entry) bool {
		return strings.ToLower(e.UserEmail) == want
	})
}

func (s *JSONLSink) load(limit int, keep func(Entry) bool) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log for read: %w", err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			// A torn or corrupt line must not hide the rest of the log.
			continue
		}
		if keep(entry) {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning audit log: %w", err)
	}

	// File order is oldest-first; callers want newest-first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// =============================================================================
// Memory Sink
// =============================================================================

// MemorySink keeps entries in memory. Used in tests and when no audit file
// is configured.
//
// Thread Safety: Safe for concurrent use via sync.Mutex.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
	closed  bool
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append implements Sink.
func (s *MemorySink) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkClosed
	}
	s.entries = append(s.entries, entry)
	return nil
}

// Close implements Sink.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Entries returns a copy of all recorded entries, oldest first.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
