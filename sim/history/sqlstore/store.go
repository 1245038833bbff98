// Package sqlstore persists recorded histories in a sqlite database through gorm, one run per
// simulation, so that chart renderers can read them after the simulation ended.
package sqlstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/institute-of-production-systems/shopsim/sim/history"
)

// RunModel represents the runs table.
type RunModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Plant     string    `gorm:"column:plant;not null"`
	Seed      int64     `gorm:"column:seed"`
	StartedAt time.Time `gorm:"column:started_at;not null"`
}

func (RunModel) TableName() string {
	return "runs"
}

// StatusSampleModel represents the status_samples table.
type StatusSampleModel struct {
	ID         int    `gorm:"column:id;primaryKey;autoIncrement"`
	RunID      string `gorm:"column:run_id;not null;index:idx_status_run_resource"`
	Resource   string `gorm:"column:resource;not null;index:idx_status_run_resource"`
	ResourceID string `gorm:"column:resource_id;not null;index:idx_status_run_resource"`
	Time       int64  `gorm:"column:time;not null"`
	Flags      string `gorm:"column:flags;not null"`
}

func (StatusSampleModel) TableName() string {
	return "status_samples"
}

// FillSampleModel represents the fill_samples table.
type FillSampleModel struct {
	ID       int     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID    string  `gorm:"column:run_id;not null;index:idx_fill_run_location"`
	Location string  `gorm:"column:location;not null;index:idx_fill_run_location"`
	Time     int64   `gorm:"column:time;not null"`
	Level    float64 `gorm:"column:level;not null"`
}

func (FillSampleModel) TableName() string {
	return "fill_samples"
}

const flushThreshold = 500

// Store is a history.Sink that writes into sqlite. Samples are buffered in memory and written in
// batches; the first write error is kept and returned by Flush.
type Store struct {
	db      *gorm.DB
	runID   string
	status  []StatusSampleModel
	fills   []FillSampleModel
	lastErr error
}

// Open opens (or creates) the database at path and migrates the schema. Use ":memory:" for tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// sqlite allows one writer; a single connection also keeps ":memory:" databases alive.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&RunModel{}, &StatusSampleModel{}, &FillSampleModel{}); err != nil {
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	return &Store{db: db}, nil
}

// BeginRun registers a new run and directs subsequent samples to it.
func (s *Store) BeginRun(plantName string, seed int64) (string, error) {
	if err := s.Flush(); err != nil {
		return "", err
	}
	run := RunModel{ID: uuid.NewString(), Plant: plantName, Seed: seed, StartedAt: time.Now().UTC()}
	if err := s.db.Create(&run).Error; err != nil {
		return "", fmt.Errorf("creating run: %w", err)
	}
	s.runID = run.ID
	return run.ID, nil
}

// RunID returns the current run.
func (s *Store) RunID() string { return s.runID }

// RecordStatus implements history.Sink.
func (s *Store) RecordStatus(kind history.Resource, id string, at int64, flags []string) {
	s.status = append(s.status, StatusSampleModel{
		RunID: s.runID, Resource: string(kind), ResourceID: id, Time: at, Flags: strings.Join(flags, "|"),
	})
	s.maybeFlush()
}

// RecordFill implements history.Sink.
func (s *Store) RecordFill(location string, at int64, level float64) {
	s.fills = append(s.fills, FillSampleModel{RunID: s.runID, Location: location, Time: at, Level: level})
	s.maybeFlush()
}

func (s *Store) maybeFlush() {
	if len(s.status)+len(s.fills) >= flushThreshold {
		if err := s.Flush(); err != nil && s.lastErr == nil {
			s.lastErr = err
		}
	}
}

// Flush writes buffered samples.
func (s *Store) Flush() error {
	if s.lastErr != nil {
		return s.lastErr
	}
	if len(s.status) > 0 {
		if err := s.db.CreateInBatches(s.status, 100).Error; err != nil {
			return fmt.Errorf("writing status samples: %w", err)
		}
		s.status = s.status[:0]
	}
	if len(s.fills) > 0 {
		if err := s.db.CreateInBatches(s.fills, 100).Error; err != nil {
			return fmt.Errorf("writing fill samples: %w", err)
		}
		s.fills = s.fills[:0]
	}
	return nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	flushErr := s.Flush()
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("closing history database: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("closing history database: %w", err)
	}
	return flushErr
}

// Runs lists every recorded run, oldest first.
func (s *Store) Runs() ([]RunModel, error) {
	var runs []RunModel
	if err := s.db.Order("started_at, id").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// StatusHistory loads the status samples of one resource of a run in time order.
func (s *Store) StatusHistory(runID string, kind history.Resource, id string) ([]history.StatusSample, error) {
	var rows []StatusSampleModel
	err := s.db.Where("run_id = ? AND resource = ? AND resource_id = ?", runID, string(kind), id).
		Order("time, id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading status history of %s %q: %w", kind, id, err)
	}
	out := make([]history.StatusSample, len(rows))
	for i, r := range rows {
		var flags []string
		if r.Flags != "" {
			flags = strings.Split(r.Flags, "|")
		}
		out[i] = history.StatusSample{Time: r.Time, Flags: flags}
	}
	return out, nil
}

// FillHistory loads the fill samples of one location of a run in time order.
func (s *Store) FillHistory(runID, location string) ([]history.FillSample, error) {
	var rows []FillSampleModel
	err := s.db.Where("run_id = ? AND location = ?", runID, location).Order("time, id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("loading fill history of %q: %w", location, err)
	}
	out := make([]history.FillSample, len(rows))
	for i, r := range rows {
		out[i] = history.FillSample{Time: r.Time, Level: r.Level}
	}
	return out, nil
}
