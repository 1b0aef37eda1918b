// Package journal provides an append-only file log for saga events, used to
// recover the event trail after a restart.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// FileJournal appends serialized entries to a file, one per line, fsyncing
// each append.
type FileJournal struct {
	mu   sync.Mutex
	f    *os.File
	path string
}

// Open constructs a FileJournal targeting the given path, creating the file
// if needed.
func Open(path string) (*FileJournal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileJournal{f: f, path: path}, nil
}

// Append writes the entry followed by a newline and syncs.
func (j *FileJournal) Append(data []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	n, err := j.f.Write(append(data, '\n'))
	if err != nil {
		return err
	}
	if n != len(data)+1 {
		return fmt.Errorf("partial write: wrote %d of %d bytes", n, len(data)+1)
	}

	return j.f.Sync()
}

// Replay invokes fn for every entry in the journal, in append order. It reads
// a fresh handle so replay can run while the journal stays open for appends.
func (j *FileJournal) Replay(fn func(data []byte) error) error {
	j.mu.Lock()
	path := j.path
	j.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		entry := make([]byte, len(line))
		copy(entry, line)
		if err := fn(entry); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// Close releases the underlying file handle.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.f.Close()
}
