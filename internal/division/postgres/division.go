package postgres

import (
	"context"
	"errors"

	divisionDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/division"
	"github.com/frahmantamala/recruiter-reports/internal/division"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DivisionRepository struct {
	db *gorm.DB
}

func NewDivisionRepository(db *gorm.DB) division.RepositoryAPI {
	return &DivisionRepository{db: db}
}

func (r *DivisionRepository) ListActive(ctx context.Context) ([]*divisionDatamodel.Division, error) {
	var divisions []*divisionDatamodel.Division
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order ASC, id ASC").
		Find(&divisions).Error
	return divisions, err
}

func (r *DivisionRepository) GetByID(ctx context.Context, id int64) (*divisionDatamodel.Division, error) {
	var d divisionDatamodel.Division
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DivisionRepository) FindActiveByName(ctx context.Context, name string) (*divisionDatamodel.Division, error) {
	var d divisionDatamodel.Division
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?) AND is_active = ?", name, true).
		Order("id ASC").
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DivisionRepository) ListMappings(ctx context.Context) ([]*divisionDatamodel.ATSMapping, error) {
	var mappings []*divisionDatamodel.ATSMapping
	err := r.db.WithContext(ctx).Order("division_id ASC").Find(&mappings).Error
	return mappings, err
}

func (r *DivisionRepository) Upsert(ctx context.Context, d *divisionDatamodel.Division) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "display_order", "is_active", "updated_at"}),
	}).Create(d).Error
}

func (r *DivisionRepository) SaveMapping(ctx context.Context, m *divisionDatamodel.ATSMapping) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "division_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"ats_system"}),
	}).Create(m).Error
}
