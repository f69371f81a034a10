package history

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileBackend persists one JSONL file per session under Dir. Appends go
// through O_APPEND with a per-session mutex, so concurrent writers to the
// same session cannot interleave bytes or lose records; different sessions
// share no lock. Files survive process restarts and never expire.
type FileBackend struct {
	dir   string
	locks *sessionLocks
}

func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir, locks: newSessionLocks()}
}

func (b *FileBackend) path(s Session) string {
	return filepath.Join(b.dir, "chat_history_"+s.Key()+".jsonl")
}

func (b *FileBackend) Append(ctx context.Context, session Session, msg Message) error {
	if err := session.Validate(); err != nil {
		return err
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l := b.locks.get(session)
	l.Lock()
	defer l.Unlock()

	// Stamped inside the critical section, so stored order and timestamp
	// order agree for this session.
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	line := append(data, '\n')

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", ErrStorage, err)
	}
	f, err := os.OpenFile(b.path(session), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open: %v", ErrStorage, err)
	}
	// Single write call of the whole line keeps the append all-or-nothing
	// for O_APPEND-sized records.
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("%w: write: %v", ErrStorage, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrStorage, err)
	}
	return nil
}

// List returns every record for the session in insertion order, or an
// empty slice when the session has never been written. A corrupted line
// fails the whole read: surfacing the fault beats silently dropping part
// of a conversation log.
func (b *FileBackend) List(ctx context.Context, session Session) ([]Message, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(b.path(session))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("%w: open: %v", ErrStorage, err)
	}
	defer f.Close()

	msgs := []Message{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		m, err := DecodeMessage(line)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read: %v", ErrStorage, err)
	}
	return msgs, nil
}

func (b *FileBackend) Clear(ctx context.Context, session Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	l := b.locks.get(session)
	l.Lock()
	defer l.Unlock()

	if err := os.Remove(b.path(session)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove: %v", ErrStorage, err)
	}
	return nil
}
