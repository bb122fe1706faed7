// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Halcyon Vision

// Package journal keeps a local record of flash operations. A destructive
// write that bricks a device is much easier to analyze when the host still
// knows what was attempted, against which port, and how far it got.
package journal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Session states
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Operation kinds
const (
	OpUpdate = "update"
	OpBackup = "backup"
	OpDFU    = "dfu"
)

// Session is one flash operation (update or backup) against one device.
type Session struct {
	ID         string `gorm:"primaryKey;size:36"`
	Operation  string `gorm:"size:16"`
	Mode       string `gorm:"size:16"`
	Connection string
	ImageBytes int
	Status     string `gorm:"size:16"`
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Store wraps the journal database.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Session{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Begin records the start of an operation and returns the session.
func (s *Store) Begin(operation, mode, connection string, imageBytes int) (*Session, error) {
	sess := &Session{
		ID:         uuid.NewString(),
		Operation:  operation,
		Mode:       mode,
		Connection: connection,
		ImageBytes: imageBytes,
		Status:     StatusRunning,
		StartedAt:  time.Now(),
	}
	if err := s.db.Create(sess).Error; err != nil {
		return nil, err
	}
	return sess, nil
}

// Finish closes a session with the operation's outcome.
func (s *Store) Finish(sess *Session, opErr error) error {
	now := time.Now()
	sess.FinishedAt = &now
	if opErr != nil {
		sess.Status = StatusFailed
		sess.Error = opErr.Error()
	} else {
		sess.Status = StatusComplete
	}
	return s.db.Save(sess).Error
}

// Recent returns the n most recent sessions, newest first.
func (s *Store) Recent(n int) ([]Session, error) {
	var out []Session
	err := s.db.Order("started_at desc").Limit(n).Find(&out).Error
	return out, err
}
