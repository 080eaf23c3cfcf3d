// Package snapshot persists weekly ranking and hours read models.
package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal/core/common/calendar"
	snapshotDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/snapshot"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultBatchSize = 10

type Store struct {
	db        *gorm.DB
	batchSize int
	logger    *slog.Logger
}

func NewStore(db *gorm.DB, batchSize int, logger *slog.Logger) *Store {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Store{
		db:        db,
		batchSize: batchSize,
		logger:    logger,
	}
}

// SaveWeek replaces every ranking row of weekStart with rows. The delete runs
// first; inserts then run in batches of batchSize rows, each row of a batch
// written concurrently. Recomputing a week is idempotent.
func (s *Store) SaveWeek(ctx context.Context, weekStart time.Time, rows []*snapshotDatamodel.WeeklyRanking) error {
	week := calendar.Date(weekStart)

	deleted := s.db.WithContext(ctx).
		Where("week_start = ?", week).
		Delete(&snapshotDatamodel.WeeklyRanking{})
	if deleted.Error != nil {
		return fmt.Errorf("delete ranking week %s: %w", calendar.Format(week), deleted.Error)
	}

	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, row := range rows[start:end] {
			row := row
			row.ID = 0
			row.WeekStart = week
			g.Go(func() error {
				return s.db.WithContext(gctx).Create(row).Error
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("insert ranking week %s: %w", calendar.Format(week), err)
		}
	}

	s.logger.Info("ranking snapshot saved",
		"week_start", calendar.Format(week),
		"replaced", deleted.RowsAffected,
		"rows", len(rows))
	return nil
}

// GetWeek returns a week's ranking rows ordered by rank.
func (s *Store) GetWeek(ctx context.Context, weekStart time.Time) ([]*snapshotDatamodel.WeeklyRanking, error) {
	var rows []*snapshotDatamodel.WeeklyRanking
	err := s.db.WithContext(ctx).
		Where("week_start = ?", calendar.Date(weekStart)).
		Order("rank ASC, canonical_user_id ASC").
		Find(&rows).Error
	return rows, err
}

// Prune deletes ranking rows of weeks starting before the given date.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("week_start < ?", calendar.Date(before)).
		Delete(&snapshotDatamodel.WeeklyRanking{})
	return res.RowsAffected, res.Error
}

// History returns one identity's ranking rows since the given week, oldest first.
func (s *Store) History(ctx context.Context, canonicalUserID string, since time.Time) ([]*snapshotDatamodel.WeeklyRanking, error) {
	var rows []*snapshotDatamodel.WeeklyRanking
	err := s.db.WithContext(ctx).
		Where("canonical_user_id = ? AND week_start >= ?", canonicalUserID, calendar.Date(since)).
		Order("week_start ASC").
		Find(&rows).Error
	return rows, err
}

var hoursConflict = clause.OnConflict{
	Columns: []clause.Column{
		{Name: "canonical_user_id"},
		{Name: "week_start"},
		{Name: "day_bucket"},
	},
	DoUpdates: clause.AssignmentColumns([]string{"config_id", "total_hours", "updated_at"}),
}

// UpsertHours writes hours rows keyed by identity, week and bucket,
// overwriting existing totals.
func (s *Store) UpsertHours(ctx context.Context, rows []*snapshotDatamodel.WeeklyHours) error {
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		row.WeekStart = calendar.Date(row.WeekStart)
	}
	return s.db.WithContext(ctx).Clauses(hoursConflict).CreateInBatches(rows, 100).Error
}

// ReplaceHoursWeek atomically swaps every hours row of weekStart for rows.
func (s *Store) ReplaceHoursWeek(ctx context.Context, weekStart time.Time, rows []*snapshotDatamodel.WeeklyHours) error {
	week := calendar.Date(weekStart)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("week_start = ?", week).Delete(&snapshotDatamodel.WeeklyHours{}).Error; err != nil {
			return fmt.Errorf("delete hours week %s: %w", calendar.Format(week), err)
		}
		if len(rows) == 0 {
			return nil
		}
		for _, row := range rows {
			row.ID = 0
			row.WeekStart = week
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("insert hours week %s: %w", calendar.Format(week), err)
		}
		return nil
	})
}

// PurgeHours deletes hours rows of weeks starting before the given date.
func (s *Store) PurgeHours(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("week_start < ?", calendar.Date(before)).
		Delete(&snapshotDatamodel.WeeklyHours{})
	return res.RowsAffected, res.Error
}

func (s *Store) ClearHoursWeek(ctx context.Context, weekStart time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("week_start = ?", calendar.Date(weekStart)).
		Delete(&snapshotDatamodel.WeeklyHours{})
	return res.RowsAffected, res.Error
}

func (s *Store) GetHoursWeek(ctx context.Context, weekStart time.Time) ([]*snapshotDatamodel.WeeklyHours, error) {
	var rows []*snapshotDatamodel.WeeklyHours
	err := s.db.WithContext(ctx).
		Where("week_start = ?", calendar.Date(weekStart)).
		Order("canonical_user_id ASC, day_bucket ASC").
		Find(&rows).Error
	return rows, err
}

// WeekLabels returns the Sunday each rolling label pointed at when last saved.
func (s *Store) WeekLabels(ctx context.Context) (map[string]time.Time, error) {
	var rows []*snapshotDatamodel.HoursWeekLabel
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	labels := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		labels[row.Label] = calendar.Date(row.WeekStart)
	}
	return labels, nil
}

func (s *Store) SaveWeekLabels(ctx context.Context, labels map[string]time.Time) error {
	if len(labels) == 0 {
		return nil
	}
	rows := make([]*snapshotDatamodel.HoursWeekLabel, 0, len(labels))
	for label, week := range labels {
		rows = append(rows, &snapshotDatamodel.HoursWeekLabel{Label: label, WeekStart: calendar.Date(week)})
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "label"}},
		DoUpdates: clause.AssignmentColumns([]string{"week_start", "updated_at"}),
	}).Create(&rows).Error
}
