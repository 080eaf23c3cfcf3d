package division

import (
	"time"

	divisionDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/division"
)

type Division struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	ATSSystem    string    `json:"ats_system,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func ToDataModel(d *Division) *divisionDatamodel.Division {
	return &divisionDatamodel.Division{
		ID:           d.ID,
		Name:         d.Name,
		DisplayOrder: d.DisplayOrder,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func FromDataModel(d *divisionDatamodel.Division) *Division {
	return &Division{
		ID:           d.ID,
		Name:         d.Name,
		DisplayOrder: d.DisplayOrder,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
