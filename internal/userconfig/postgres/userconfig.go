package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/recruiter-reports/internal/ats"
	userconfigDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/userconfig"
	"github.com/frahmantamala/recruiter-reports/internal/userconfig"
	"gorm.io/gorm"
)

type UserConfigRepository struct {
	db *gorm.DB
}

func NewUserConfigRepository(db *gorm.DB) userconfig.RepositoryAPI {
	return &UserConfigRepository{db: db}
}

func atsColumn(sys ats.System) (string, error) {
	switch sys {
	case ats.Symplr:
		return "symplr_id", nil
	case ats.Bullhorn:
		return "bullhorn_id", nil
	}
	return "", fmt.Errorf("unknown ats system %q", sys)
}

func (r *UserConfigRepository) ListActive(ctx context.Context) ([]*userconfigDatamodel.UserConfig, error) {
	return r.List(ctx, false)
}

func (r *UserConfigRepository) List(ctx context.Context, includeInactive bool) ([]*userconfigDatamodel.UserConfig, error) {
	var configs []*userconfigDatamodel.UserConfig
	q := r.db.WithContext(ctx)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("display_order ASC, name ASC, config_id ASC").Find(&configs).Error
	return configs, err
}

func (r *UserConfigRepository) GetByID(ctx context.Context, configID int64) (*userconfigDatamodel.UserConfig, error) {
	var uc userconfigDatamodel.UserConfig
	err := r.db.WithContext(ctx).Where("config_id = ?", configID).First(&uc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &uc, nil
}

func (r *UserConfigRepository) FindByATSID(ctx context.Context, sys ats.System, localID string) (*userconfigDatamodel.UserConfig, error) {
	column, err := atsColumn(sys)
	if err != nil {
		return nil, err
	}
	var uc userconfigDatamodel.UserConfig
	err = r.db.WithContext(ctx).
		Where(column+" = ?", localID).
		Order("is_active DESC, config_id ASC").
		First(&uc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &uc, nil
}

func (r *UserConfigRepository) FindActiveByATSID(ctx context.Context, sys ats.System, localID string, excludeConfigID int64) (*userconfigDatamodel.UserConfig, error) {
	column, err := atsColumn(sys)
	if err != nil {
		return nil, err
	}
	var uc userconfigDatamodel.UserConfig
	err = r.db.WithContext(ctx).
		Where(column+" = ? AND is_active = ? AND config_id <> ?", localID, true, excludeConfigID).
		Order("config_id ASC").
		First(&uc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &uc, nil
}

func (r *UserConfigRepository) Create(ctx context.Context, uc *userconfigDatamodel.UserConfig) error {
	return r.db.WithContext(ctx).Create(uc).Error
}

func (r *UserConfigRepository) Update(ctx context.Context, uc *userconfigDatamodel.UserConfig) error {
	return r.db.WithContext(ctx).Save(uc).Error
}
