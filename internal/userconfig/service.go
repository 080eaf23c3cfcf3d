package userconfig

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/ats"
	"github.com/frahmantamala/recruiter-reports/internal/core/common/validation"
	userconfigDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/userconfig"
)

type RepositoryAPI interface {
	ListActive(ctx context.Context) ([]*userconfigDatamodel.UserConfig, error)
	List(ctx context.Context, includeInactive bool) ([]*userconfigDatamodel.UserConfig, error)
	GetByID(ctx context.Context, configID int64) (*userconfigDatamodel.UserConfig, error)
	// FindByATSID prefers an active row over inactive ones.
	FindByATSID(ctx context.Context, sys ats.System, localID string) (*userconfigDatamodel.UserConfig, error)
	FindActiveByATSID(ctx context.Context, sys ats.System, localID string, excludeConfigID int64) (*userconfigDatamodel.UserConfig, error)
	Create(ctx context.Context, uc *userconfigDatamodel.UserConfig) error
	Update(ctx context.Context, uc *userconfigDatamodel.UserConfig) error
}

// Service backs the admin surface for user configs.
type Service struct {
	repo      RepositoryAPI
	divisions DivisionFinder
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, divisions DivisionFinder, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		divisions: divisions,
		logger:    logger,
	}
}

func (s *Service) List(ctx context.Context, includeInactive bool) ([]*UserConfig, error) {
	rows, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		s.logger.Error("failed to list user configs", "error", err)
		return nil, err
	}
	out := make([]*UserConfig, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromDataModel(row))
	}
	return out, nil
}

// ListActive returns every active identity; used by the hours report.
func (s *Service) ListActive(ctx context.Context) ([]*UserConfig, error) {
	return s.List(ctx, false)
}

func (s *Service) Get(ctx context.Context, configID int64) (*UserConfig, error) {
	row, err := s.repo.GetByID(ctx, configID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, internal.ErrUserConfigNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*UserConfig, error) {
	role := req.Role
	if role == "" {
		role = string(RoleUnknown)
	}

	v := validation.NewValidator()
	v.Field("name", req.Name).Required().MaxLength(200)
	v.Field("division_id", req.DivisionID).Required().MinInt(1, internal.ErrCodeValidationFailed)
	v.Field("role", role).OneOf(Roles, internal.ErrCodeInvalidRole)
	v.Field("weekly_goal", req.WeeklyGoal).MinFloat(0, internal.ErrCodeInvalidGoal)
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	now := time.Now()
	u := &UserConfig{
		Name:           strings.TrimSpace(req.Name),
		DivisionID:     req.DivisionID,
		Role:           Role(role),
		Title:          req.Title,
		WeeklyGoal:     req.WeeklyGoal,
		OnHoursReport:  req.OnHoursReport,
		OnStackRanking: true,
		IsActive:       true,
		DisplayOrder:   req.DisplayOrder,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.OnStackRanking != nil {
		u.OnStackRanking = *req.OnStackRanking
	}
	if req.SymplrID != nil {
		u.SetATSID(ats.Symplr, *req.SymplrID)
	}
	if req.BullhornID != nil {
		u.SetATSID(ats.Bullhorn, *req.BullhornID)
	}
	if !u.HasATSID() {
		return nil, internal.NewValidationFieldError("symplr_id", "at least one of symplr_id or bullhorn_id is required", internal.ErrCodeValidationFailed)
	}
	u.RecomputeCanonical()
	for _, sys := range ats.Systems {
		if u.ATSID(sys) != "" {
			u.ATSSource = sys.Label()
			break
		}
	}

	if err := s.checkDivision(ctx, u.DivisionID); err != nil {
		return nil, err
	}
	if err := s.checkUniqueATSIDs(ctx, u); err != nil {
		return nil, err
	}

	row := ToDataModel(u)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create user config", "error", err)
		return nil, internal.NewInternalError("failed to create user config", err)
	}

	s.logger.Info("user config created", "config_id", row.ConfigID, "canonical_user_id", row.CanonicalUserID)
	return FromDataModel(row), nil
}

// Update applies a partial update. Reassigning an ATS id recomputes the
// canonical id and is rejected when another active identity holds the id.
func (s *Service) Update(ctx context.Context, configID int64, req UpdateRequest) (*UserConfig, error) {
	u, err := s.Get(ctx, configID)
	if err != nil {
		return nil, err
	}

	v := validation.NewValidator()
	if req.Name != nil {
		v.Field("name", *req.Name).Required().MaxLength(200)
	}
	if req.Role != nil {
		v.Field("role", *req.Role).Required().OneOf(Roles, internal.ErrCodeInvalidRole)
	}
	if req.WeeklyGoal != nil {
		v.Field("weekly_goal", *req.WeeklyGoal).MinFloat(0, internal.ErrCodeInvalidGoal)
	}
	if req.DivisionID != nil {
		v.Field("division_id", *req.DivisionID).MinInt(1, internal.ErrCodeValidationFailed)
	}
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		u.Role = Role(*req.Role)
	}
	if req.Title != nil {
		u.Title = req.Title
	}
	if req.WeeklyGoal != nil {
		u.WeeklyGoal = *req.WeeklyGoal
	}
	if req.OnHoursReport != nil {
		u.OnHoursReport = *req.OnHoursReport
	}
	if req.OnStackRanking != nil {
		u.OnStackRanking = *req.OnStackRanking
	}
	if req.DisplayOrder != nil {
		u.DisplayOrder = *req.DisplayOrder
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}
	if req.DivisionID != nil && *req.DivisionID != u.DivisionID {
		if err := s.checkDivision(ctx, *req.DivisionID); err != nil {
			return nil, err
		}
		u.DivisionID = *req.DivisionID
	}

	idsChanged := false
	if req.SymplrID != nil {
		u.SetATSID(ats.Symplr, *req.SymplrID)
		idsChanged = true
	}
	if req.BullhornID != nil {
		u.SetATSID(ats.Bullhorn, *req.BullhornID)
		idsChanged = true
	}
	if idsChanged {
		u.RecomputeCanonical()
	}
	if idsChanged || (req.IsActive != nil && *req.IsActive) {
		if err := s.checkUniqueATSIDs(ctx, u); err != nil {
			return nil, err
		}
	}

	u.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, ToDataModel(u)); err != nil {
		s.logger.Error("failed to update user config", "config_id", configID, "error", err)
		return nil, internal.NewInternalError("failed to update user config", err)
	}

	s.logger.Info("user config updated", "config_id", configID)
	return u, nil
}

// Deactivate soft-deletes an identity; rows are never hard-deleted.
func (s *Service) Deactivate(ctx context.Context, configID int64) (*UserConfig, error) {
	u, err := s.Get(ctx, configID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return u, nil
	}

	u.Deactivate()
	if err := s.repo.Update(ctx, ToDataModel(u)); err != nil {
		s.logger.Error("failed to deactivate user config", "config_id", configID, "error", err)
		return nil, internal.NewInternalError("failed to deactivate user config", err)
	}

	s.logger.Info("user config deactivated", "config_id", configID)
	return u, nil
}

func (s *Service) checkDivision(ctx context.Context, divisionID int64) error {
	if s.divisions == nil {
		return nil
	}
	ok, err := s.divisions.DivisionExists(ctx, divisionID)
	if err != nil {
		return internal.NewInternalError("failed to check division", err)
	}
	if !ok {
		return internal.ErrDivisionNotFound
	}
	return nil
}

func (s *Service) checkUniqueATSIDs(ctx context.Context, u *UserConfig) error {
	if !u.IsActive {
		return nil
	}
	for _, sys := range ats.Systems {
		id := u.ATSID(sys)
		if id == "" {
			continue
		}
		other, err := s.repo.FindActiveByATSID(ctx, sys, id, u.ConfigID)
		if err != nil {
			return internal.NewInternalError("failed to check ats id", err)
		}
		if other != nil {
			return internal.ErrDuplicateATSID.WithDetails(map[string]interface{}{
				"ats_system": string(sys),
				"ats_id":     id,
				"config_id":  other.ConfigID,
			})
		}
	}
	return nil
}
