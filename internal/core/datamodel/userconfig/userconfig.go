package userconfig

import "time"

// UserConfig is one row per canonical recruiter identity. Bool columns carry
// no gorm default so that an explicit false is written on create.
type UserConfig struct {
	ConfigID        int64     `gorm:"column:config_id;primaryKey"`
	CanonicalUserID string    `gorm:"column:canonical_user_id;not null;index"`
	Name            string    `gorm:"column:name;not null"`
	DivisionID      int64     `gorm:"column:division_id;not null;index"`
	Role            string    `gorm:"column:role;not null"`
	Title           *string   `gorm:"column:title"`
	ATSSource       string    `gorm:"column:ats_source;not null"`
	SymplrID        *string   `gorm:"column:symplr_id;index"`
	BullhornID      *string   `gorm:"column:bullhorn_id;index"`
	WeeklyGoal      float64   `gorm:"column:weekly_goal;not null"`
	OnHoursReport   bool      `gorm:"column:on_hours_report;not null"`
	OnStackRanking  bool      `gorm:"column:on_stack_ranking;not null"`
	IsActive        bool      `gorm:"column:is_active;not null"`
	DisplayOrder    int       `gorm:"column:display_order;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserConfig) TableName() string {
	return "user_configs"
}
