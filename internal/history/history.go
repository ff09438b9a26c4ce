/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package history keeps an append-only log of device telemetry and
// rotation switches in a local sqlite database. It is observational
// only: the Director never reads from it.
package history

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BatteryReading is one device-reported battery sample.
type BatteryReading struct {
	ID         uint `gorm:"primaryKey"`
	Level      int
	RecordedAt time.Time `gorm:"index"`
}

// RotationEvent records one item switch.
type RotationEvent struct {
	ID         uint `gorm:"primaryKey"`
	PlaylistID string
	ItemID     string
	CycleIndex int
	Forced     bool
	SwitchedAt time.Time `gorm:"index"`
}

// Service wraps the history database.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open connects to the sqlite history database at path and migrates the
// schema. Use ":memory:" in tests.
func Open(path string, log zerolog.Logger) (*Service, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.AutoMigrate(&BatteryReading{}, &RotationEvent{}); err != nil {
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Service{db: db, logger: log.With().Str("component", "history").Logger()}, nil
}

// Close releases the underlying database handle.
func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordBattery appends one battery sample. Failures are logged, not
// propagated: history must never break a device request.
func (s *Service) RecordBattery(level int, at time.Time) {
	if err := s.db.Create(&BatteryReading{Level: level, RecordedAt: at}).Error; err != nil {
		s.logger.Warn().Err(err).Msg("record battery failed")
	}
}

// RecordRotation appends one switch event.
func (s *Service) RecordRotation(playlistID, itemID string, cycleIndex int, forced bool, at time.Time) {
	event := &RotationEvent{
		PlaylistID: playlistID,
		ItemID:     itemID,
		CycleIndex: cycleIndex,
		Forced:     forced,
		SwitchedAt: at,
	}
	if err := s.db.Create(event).Error; err != nil {
		s.logger.Warn().Err(err).Msg("record rotation failed")
	}
}

// BatterySince returns battery readings recorded at or after since,
// oldest first.
func (s *Service) BatterySince(since time.Time) ([]BatteryReading, error) {
	var readings []BatteryReading
	err := s.db.Where("recorded_at >= ?", since).Order("recorded_at ASC").Find(&readings).Error
	return readings, err
}

// RotationsSince returns switch events recorded at or after since,
// oldest first.
func (s *Service) RotationsSince(since time.Time) ([]RotationEvent, error) {
	var events []RotationEvent
	err := s.db.Where("switched_at >= ?", since).Order("switched_at ASC").Find(&events).Error
	return events, err
}

// Prune deletes history older than before.
func (s *Service) Prune(before time.Time) error {
	if err := s.db.Where("recorded_at < ?", before).Delete(&BatteryReading{}).Error; err != nil {
		return err
	}
	return s.db.Where("switched_at < ?", before).Delete(&RotationEvent{}).Error
}
