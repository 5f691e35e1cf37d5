// Package filepos tracks each tailed file's read offset as an in-memory
// cursor, checkpointed to a single JSON file only on clean shutdown. It is
// a resume hint, not a durable queue of records — losing the checkpoint
// file costs at most a re-read from the last rotation, never data loss of
// already-dispatched records.
package filepos

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Cursor is one tracked file's last-known read position.
type Cursor struct {
	Path     string    `json:"path"`
	Offset   int64     `json:"offset"`
	Inode    uint64    `json:"inode"`
	Tag      string    `json:"tag"`
	UpdateAt time.Time `json:"updated_at"`
}

// Store holds the in-memory cursor set for one pipeline's inputs.
type Store struct {
	checkpointPath string
	logger         *logrus.Logger

	mu      sync.RWMutex
	cursors map[string]*Cursor
}

// Open loads a checkpoint file if one exists at checkpointPath, or starts
// with an empty cursor set if it doesn't.
func Open(checkpointPath string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Store{checkpointPath: checkpointPath, logger: logger, cursors: make(map[string]*Cursor)}

	data, err := os.ReadFile(checkpointPath)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	var cursors []*Cursor
	if err := json.Unmarshal(data, &cursors); err != nil {
		s.logger.WithError(err).Warn("filepos: discarding unreadable checkpoint")
		return s, nil
	}
	for _, c := range cursors {
		s.cursors[c.Path] = c
	}
	return s, nil
}

// Get returns the last checkpointed offset for path, and whether one was
// found.
func (s *Store) Get(path string) (Cursor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cursors[path]
	if !ok {
		return Cursor{}, false
	}
	return *c, true
}

// Update records the current offset for path. It does not touch disk —
// call Flush to checkpoint.
func (s *Store) Update(path, tag string, inode uint64, offset int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursors[path] = &Cursor{Path: path, Offset: offset, Inode: inode, Tag: tag, UpdateAt: time.Now()}
}

// Flush writes every tracked cursor to the checkpoint file. Intended to be
// called once, on clean shutdown.
func (s *Store) Flush() error {
	s.mu.RLock()
	cursors := make([]*Cursor, 0, len(s.cursors))
	for _, c := range s.cursors {
		cursors = append(cursors, c)
	}
	s.mu.RUnlock()

	data, err := json.Marshal(cursors)
	if err != nil {
		return err
	}
	return os.WriteFile(s.checkpointPath, data, 0o644)
}
