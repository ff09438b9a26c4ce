/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package storage persists each entity as a single JSON document with an
// atomicity contract: a reader never observes a partially written file.
// Writes go to a temp file in the same directory and are renamed into
// place; a per-store mutex serializes writers so concurrent mutations
// cannot interleave.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	corruptReadRetries = 3
	corruptReadBackoff = 50 * time.Millisecond
)

// Store persists one entity of type T at a fixed path.
type Store[T any] struct {
	path     string
	defaults func() T
	logger   zerolog.Logger

	mu sync.Mutex
}

// NewStore creates a store for path. defaults synthesizes the first-run
// value used when the file is missing or unrecoverable.
func NewStore[T any](path string, defaults func() T, logger zerolog.Logger) *Store[T] {
	return &Store[T]{
		path:     path,
		defaults: defaults,
		logger:   logger.With().Str("component", "storage").Str("file", filepath.Base(path)).Logger(),
	}
}

// Load reads the entity. A missing file is first run, not an error: the
// default is synthesized, persisted and returned. A corrupt file is
// re-read a bounded number of times (a concurrent writer may be mid-
// rename), then set aside and replaced with defaults.
func (s *Store[T]) Load() (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt < corruptReadRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(corruptReadBackoff)
		}

		raw, err := os.ReadFile(s.path)
		if errors.Is(err, fs.ErrNotExist) {
			value := s.defaults()
			if err := s.saveLocked(value); err != nil {
				return value, fmt.Errorf("persist first-run defaults: %w", err)
			}
			s.logger.Info().Msg("first run, defaults persisted")
			return value, nil
		}
		if err != nil {
			lastErr = err
			continue
		}

		var value T
		if err := json.Unmarshal(raw, &value); err != nil {
			lastErr = err
			continue
		}
		return value, nil
	}

	// Unrecoverable: keep the corrupt bytes for postmortem, degrade to
	// defaults so the device keeps working.
	s.logger.Error().Err(lastErr).Msg("unreadable after retries, resetting to defaults")
	_ = os.Rename(s.path, s.path+".corrupt")
	value := s.defaults()
	if err := s.saveLocked(value); err != nil {
		return value, fmt.Errorf("persist recovery defaults: %w", err)
	}
	return value, nil
}

// Save durably writes the entity. Later writes win.
func (s *Store[T]) Save(value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(value)
}

// Update loads, applies fn, and saves under one lock so read-modify-write
// sequences from concurrent requests cannot interleave.
func (s *Store[T]) Update(fn func(*T) error) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value T
	raw, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		value = s.defaults()
	case err != nil:
		return value, fmt.Errorf("read %s: %w", s.path, err)
	default:
		if err := json.Unmarshal(raw, &value); err != nil {
			s.logger.Warn().Err(err).Msg("corrupt file during update, starting from defaults")
			value = s.defaults()
		}
	}

	if err := fn(&value); err != nil {
		return value, err
	}
	if err := s.saveLocked(value); err != nil {
		return value, err
	}
	return value, nil
}

func (s *Store[T]) saveLocked(value T) error {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
