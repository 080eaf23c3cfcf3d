package snapshot

import "time"

type WeeklyRanking struct {
	ID                 int64     `gorm:"column:id;primaryKey"`
	WeekStart          time.Time `gorm:"column:week_start;type:date;not null;uniqueIndex:idx_ranking_week_user,priority:1"`
	CanonicalUserID    string    `gorm:"column:canonical_user_id;not null;uniqueIndex:idx_ranking_week_user,priority:2"`
	ConfigID           int64     `gorm:"column:config_id;not null"`
	Name               string    `gorm:"column:name;not null"`
	DivisionName       string    `gorm:"column:division_name;not null"`
	HeadCount          int       `gorm:"column:head_count;not null"`
	GrossMarginDollars float64   `gorm:"column:gross_margin_dollars;not null"`
	GrossProfitPct     float64   `gorm:"column:gross_profit_pct;not null"`
	Revenue            float64   `gorm:"column:revenue;not null"`
	Rank               int       `gorm:"column:rank;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (WeeklyRanking) TableName() string {
	return "weekly_ranking_snapshots"
}

// WeeklyHours holds worked hours for one identity, one week and one day bucket.
type WeeklyHours struct {
	ID              int64     `gorm:"column:id;primaryKey"`
	CanonicalUserID string    `gorm:"column:canonical_user_id;not null;uniqueIndex:idx_hours_user_week_bucket,priority:1"`
	WeekStart       time.Time `gorm:"column:week_start;type:date;not null;uniqueIndex:idx_hours_user_week_bucket,priority:2"`
	DayBucket       int       `gorm:"column:day_bucket;not null;uniqueIndex:idx_hours_user_week_bucket,priority:3"`
	ConfigID        int64     `gorm:"column:config_id;not null"`
	TotalHours      float64   `gorm:"column:total_hours;not null"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (WeeklyHours) TableName() string {
	return "weekly_hours_snapshots"
}

// HoursWeekLabel remembers which Sunday each rolling label pointed at on the
// previous hours run.
type HoursWeekLabel struct {
	Label     string    `gorm:"column:label;primaryKey"`
	WeekStart time.Time `gorm:"column:week_start;type:date;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (HoursWeekLabel) TableName() string {
	return "hours_week_labels"
}
