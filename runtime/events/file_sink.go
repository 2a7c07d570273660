package events

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/AltairaLabs/WizardKit/runtime/logger"
)

const (
	dirPermissions  = 0o750
	filePermissions = 0o600
	scannerBufSize  = 1024 * 1024
	sessionFileExt  = ".jsonl"
)

var safeName = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// RecordedEvent is an event read back from a FileSink. The payload is kept
// as raw JSON because its concrete type is not recorded.
type RecordedEvent struct {
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	WizardID  string          `json:"wizard_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// FileSink appends events as JSON Lines, one file per session.
// Write errors are logged and otherwise ignored.
type FileSink struct {
	dir   string
	mu    sync.Mutex
	files map[string]*os.File
}

// NewFileSink creates the directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("create event directory: %w", err)
	}
	return &FileSink{dir: dir, files: make(map[string]*os.File)}, nil
}

// Track appends the event to its session file.
func (s *FileSink) Track(event *Event) {
	if err := s.Append(event); err != nil {
		logger.Warn("failed to record analytics event", "event", string(event.Type), "error", err)
	}
}

// Append writes one event and reports any error.
func (s *FileSink) Append(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.fileFor(event.SessionID)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Read returns every event recorded for a session, in order.
func (s *FileSink) Read(sessionID string) ([]RecordedEvent, error) {
	return ReadSessionFile(s.path(sessionID))
}

// Close closes all open session files.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for id, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.files, id)
	}
	return errors.Join(errs...)
}

func (s *FileSink) path(sessionID string) string {
	name := sessionID
	if name == "" {
		name = "default"
	}
	return filepath.Join(s.dir, safeName.ReplaceAllString(name, "_")+sessionFileExt)
}

// fileFor must be called with s.mu held.
func (s *FileSink) fileFor(sessionID string) (*os.File, error) {
	if f, ok := s.files[sessionID]; ok {
		return f, nil
	}
	f, err := os.OpenFile(s.path(sessionID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, filePermissions)
	if err != nil {
		return nil, fmt.Errorf("open session file: %w", err)
	}
	s.files[sessionID] = f
	return f, nil
}

// ReadSessionFile parses a JSON Lines session file. Malformed lines are
// skipped; a missing file yields no events.
func ReadSessionFile(path string) ([]RecordedEvent, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the sink's own directory
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	var out []RecordedEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, scannerBufSize), scannerBufSize)
	for scanner.Scan() {
		var ev RecordedEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, scanner.Err()
}
