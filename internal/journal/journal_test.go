package journal

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestFileJournal_AppendAndReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	entries := []string{
		`{"event":"reservation.flight.completed"}`,
		`{"event":"package.completed"}`,
	}
	for _, e := range entries {
		if err := j.Append([]byte(e)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	var got []string
	err = j.Replay(func(data []byte) error {
		got = append(got, string(data))
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Fatalf("entry %d: expected %q, got %q", i, entries[i], got[i])
		}
	}
}

func TestFileJournal_ReplayStopsOnCallbackError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	for i := 0; i < 3; i++ {
		if err := j.Append([]byte(`{"event":"x"}`)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	stop := errors.New("stop")
	seen := 0
	err = j.Replay(func([]byte) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if seen != 2 {
		t.Fatalf("expected replay to stop at 2, saw %d", seen)
	}
}

func TestFileJournal_ReplaySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")

	j, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := j.Append([]byte(`{"event":"package.failed"}`)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	count := 0
	if err := reopened.Replay(func([]byte) error { count++; return nil }); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 entry after reopen, got %d", count)
	}
}
