package division

import "time"

type Division struct {
	ID           int64     `gorm:"column:id;primaryKey"`
	Name         string    `gorm:"column:name;uniqueIndex;not null"`
	DisplayOrder int       `gorm:"column:display_order;not null"`
	IsActive     bool      `gorm:"column:is_active;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Division) TableName() string {
	return "divisions"
}

// ATSMapping declares which ATS is authoritative for a division's
// placements. A division has at most one authoritative ATS.
type ATSMapping struct {
	DivisionID int64     `gorm:"column:division_id;primaryKey;autoIncrement:false"`
	ATSSystem  string    `gorm:"column:ats_system;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ATSMapping) TableName() string {
	return "division_ats_mappings"
}
