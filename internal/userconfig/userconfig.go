package userconfig

import (
	"strings"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal/ats"
	userconfigDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/userconfig"
)

type Role string

const (
	RoleRecruiter      Role = "recruiter"
	RoleAccountManager Role = "account_manager"
	RoleUnknown        Role = "unknown"
)

var Roles = []string{string(RoleRecruiter), string(RoleAccountManager), string(RoleUnknown)}

var (
	recruiterKeywords      = []string{"recruiter", "staffing specialist", "talent acquisition", "sourcer"}
	accountManagerKeywords = []string{"account manager", "account executive", "sales", "business development", "client manager"}
)

// ClassifyRole maps a free-text job title to a role. Recruiter keywords are
// checked first; no match yields RoleUnknown.
func ClassifyRole(title string) Role {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return RoleUnknown
	}
	for _, kw := range recruiterKeywords {
		if strings.Contains(t, kw) {
			return RoleRecruiter
		}
	}
	for _, kw := range accountManagerKeywords {
		if strings.Contains(t, kw) {
			return RoleAccountManager
		}
	}
	return RoleUnknown
}

// UserConfig is the canonical identity of one recruiter across ATS systems.
type UserConfig struct {
	ConfigID        int64     `json:"config_id"`
	CanonicalUserID string    `json:"canonical_user_id"`
	Name            string    `json:"name"`
	DivisionID      int64     `json:"division_id"`
	Role            Role      `json:"role"`
	Title           *string   `json:"title,omitempty"`
	ATSSource       string    `json:"ats_source"`
	SymplrID        *string   `json:"symplr_id,omitempty"`
	BullhornID      *string   `json:"bullhorn_id,omitempty"`
	WeeklyGoal      float64   `json:"weekly_goal"`
	OnHoursReport   bool      `json:"on_hours_report"`
	OnStackRanking  bool      `json:"on_stack_ranking"`
	IsActive        bool      `json:"is_active"`
	DisplayOrder    int       `json:"display_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ATSID returns the identity's id in sys, or "" when it has none.
func (u *UserConfig) ATSID(sys ats.System) string {
	var id *string
	switch sys {
	case ats.Symplr:
		id = u.SymplrID
	case ats.Bullhorn:
		id = u.BullhornID
	}
	if id == nil {
		return ""
	}
	return *id
}

// SetATSID assigns or clears (empty id) the identity's id in sys.
func (u *UserConfig) SetATSID(sys ats.System, id string) {
	var v *string
	if id = strings.TrimSpace(id); id != "" {
		v = &id
	}
	switch sys {
	case ats.Symplr:
		u.SymplrID = v
	case ats.Bullhorn:
		u.BullhornID = v
	}
}

// RecomputeCanonical sets canonical_user_id to the first present ATS id,
// Symplr before Bullhorn. With neither present the previous value stays.
func (u *UserConfig) RecomputeCanonical() {
	for _, sys := range ats.Systems {
		if id := u.ATSID(sys); id != "" {
			u.CanonicalUserID = id
			return
		}
	}
}

func (u *UserConfig) HasATSID() bool {
	return u.SymplrID != nil || u.BullhornID != nil
}

func (u *UserConfig) Deactivate() {
	u.IsActive = false
	u.UpdatedAt = time.Now()
}

// NewDiscovered builds the identity created on first sight of an unknown ATS id.
func NewDiscovered(sys ats.System, localID, name string, divisionID int64, title string) *UserConfig {
	now := time.Now()
	u := &UserConfig{
		Name:           strings.TrimSpace(name),
		DivisionID:     divisionID,
		Role:           ClassifyRole(title),
		ATSSource:      sys.Label(),
		OnStackRanking: true,
		OnHoursReport:  false,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if t := strings.TrimSpace(title); t != "" {
		u.Title = &t
	}
	if u.Name == "" {
		u.Name = localID
	}
	u.SetATSID(sys, localID)
	u.RecomputeCanonical()
	return u
}

func ToDataModel(u *UserConfig) *userconfigDatamodel.UserConfig {
	return &userconfigDatamodel.UserConfig{
		ConfigID:        u.ConfigID,
		CanonicalUserID: u.CanonicalUserID,
		Name:            u.Name,
		DivisionID:      u.DivisionID,
		Role:            string(u.Role),
		Title:           u.Title,
		ATSSource:       u.ATSSource,
		SymplrID:        u.SymplrID,
		BullhornID:      u.BullhornID,
		WeeklyGoal:      u.WeeklyGoal,
		OnHoursReport:   u.OnHoursReport,
		OnStackRanking:  u.OnStackRanking,
		IsActive:        u.IsActive,
		DisplayOrder:    u.DisplayOrder,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func FromDataModel(u *userconfigDatamodel.UserConfig) *UserConfig {
	return &UserConfig{
		ConfigID:        u.ConfigID,
		CanonicalUserID: u.CanonicalUserID,
		Name:            u.Name,
		DivisionID:      u.DivisionID,
		Role:            Role(u.Role),
		Title:           u.Title,
		ATSSource:       u.ATSSource,
		SymplrID:        u.SymplrID,
		BullhornID:      u.BullhornID,
		WeeklyGoal:      u.WeeklyGoal,
		OnHoursReport:   u.OnHoursReport,
		OnStackRanking:  u.OnStackRanking,
		IsActive:        u.IsActive,
		DisplayOrder:    u.DisplayOrder,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
