package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/natefinch/atomic"

	"github.com/ascendhq/ascend/internal/domain"
)

// maxTranscriptTailBytes bounds how much of a transcript file is read back
// when restoring a session. Old turns beyond the window are never loaded.
const maxTranscriptTailBytes = 256 * 1024

type SessionMeta struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     int       `json:"turns"`
}

func (s *FileStore) transcriptPath(sessionID string) string {
	return filepath.Join(s.paths.SessionsDir, sessionID+".jsonl")
}

func (s *FileStore) indexPath() string {
	return filepath.Join(s.paths.SessionsDir, "index.json")
}

// AppendMessages appends transcript lines and bumps the session index.
func (s *FileStore) AppendMessages(sessionID string, msgs ...domain.ChatMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.transcriptPath(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, msg := range msgs {
		line, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return err
	}

	return s.bumpSessionIndex(sessionID, len(msgs))
}

// ReadTranscriptTail returns up to limit most recent messages in order.
func (s *FileStore) ReadTranscriptTail(sessionID string, limit int) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.transcriptPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	partial := false
	if info.Size() > maxTranscriptTailBytes {
		if _, err := f.Seek(info.Size()-maxTranscriptTailBytes, io.SeekStart); err != nil {
			return nil, err
		}
		partial = true
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	lines := bytes.Split(data, []byte("\n"))
	if partial && len(lines) > 0 {
		lines = lines[1:] // drop the line cut by the seek
	}

	var msgs []domain.ChatMessage
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var msg domain.ChatMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			slog.Warn("Skipping corrupt transcript line", "session", sessionID, "error", err)
			continue
		}
		msgs = append(msgs, msg)
	}

	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

// Sessions lists known sessions, most recently used first.
func (s *FileStore) Sessions() ([]SessionMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.loadSessionIndex()
	if err != nil {
		return nil, err
	}
	out := make([]SessionMeta, 0, len(index))
	for _, meta := range index {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *FileStore) loadSessionIndex() (map[string]SessionMeta, error) {
	index := map[string]SessionMeta{}
	if err := readJSON(s.indexPath(), &index); err != nil {
		return nil, fmt.Errorf("load session index: %w", err)
	}
	return index, nil
}

func (s *FileStore) bumpSessionIndex(sessionID string, turns int) error {
	index, err := s.loadSessionIndex()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	meta, ok := index[sessionID]
	if !ok {
		meta = SessionMeta{ID: sessionID, CreatedAt: now}
	}
	meta.UpdatedAt = now
	meta.Turns += turns
	index[sessionID] = meta

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(s.indexPath(), bytes.NewReader(data))
}
