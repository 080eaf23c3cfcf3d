package userconfig

type CreateRequest struct {
	Name           string  `json:"name"`
	DivisionID     int64   `json:"division_id"`
	Role           string  `json:"role,omitempty"`
	Title          *string `json:"title,omitempty"`
	SymplrID       *string `json:"symplr_id,omitempty"`
	BullhornID     *string `json:"bullhorn_id,omitempty"`
	WeeklyGoal     float64 `json:"weekly_goal"`
	OnHoursReport  bool    `json:"on_hours_report"`
	OnStackRanking *bool   `json:"on_stack_ranking,omitempty"`
	DisplayOrder   int     `json:"display_order"`
}

// UpdateRequest is a partial update; nil fields are left unchanged. An empty
// ATS id clears that id.
type UpdateRequest struct {
	Name           *string  `json:"name,omitempty"`
	DivisionID     *int64   `json:"division_id,omitempty"`
	Role           *string  `json:"role,omitempty"`
	Title          *string  `json:"title,omitempty"`
	SymplrID       *string  `json:"symplr_id,omitempty"`
	BullhornID     *string  `json:"bullhorn_id,omitempty"`
	WeeklyGoal     *float64 `json:"weekly_goal,omitempty"`
	OnHoursReport  *bool    `json:"on_hours_report,omitempty"`
	OnStackRanking *bool    `json:"on_stack_ranking,omitempty"`
	IsActive       *bool    `json:"is_active,omitempty"`
	DisplayOrder   *int     `json:"display_order,omitempty"`
}

type UserConfigsResponse struct {
	UserConfigs []*UserConfig `json:"user_configs"`
}
