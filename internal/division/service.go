package division

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/frahmantamala/recruiter-reports/internal/ats"
	divisionDatamodel "github.com/frahmantamala/recruiter-reports/internal/core/datamodel/division"
)

type RepositoryAPI interface {
	ListActive(ctx context.Context) ([]*divisionDatamodel.Division, error)
	GetByID(ctx context.Context, id int64) (*divisionDatamodel.Division, error)
	FindActiveByName(ctx context.Context, name string) (*divisionDatamodel.Division, error)
	ListMappings(ctx context.Context) ([]*divisionDatamodel.ATSMapping, error)
	Upsert(ctx context.Context, division *divisionDatamodel.Division) error
	SaveMapping(ctx context.Context, mapping *divisionDatamodel.ATSMapping) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ListDivisions returns active divisions in display order, each tagged with
// its authoritative ATS when one is mapped.
func (s *Service) ListDivisions(ctx context.Context) ([]*Division, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list divisions", "error", err)
		return nil, internal.NewUpstreamError("list divisions", err)
	}
	mappings, err := s.repo.ListMappings(ctx)
	if err != nil {
		s.logger.Error("failed to list division mappings", "error", err)
		return nil, internal.NewUpstreamError("list division mappings", err)
	}

	owner := make(map[int64]string, len(mappings))
	for _, m := range mappings {
		owner[m.DivisionID] = m.ATSSystem
	}

	divisions := make([]*Division, 0, len(rows))
	for _, row := range rows {
		d := FromDataModel(row)
		d.ATSSystem = owner[d.ID]
		divisions = append(divisions, d)
	}
	return divisions, nil
}

// Router builds the division router from the mappings of active divisions.
// No usable mapping is a configuration error.
func (s *Service) Router(ctx context.Context) (*Router, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, internal.NewUpstreamError("list divisions", err)
	}
	active := make(map[int64]struct{}, len(rows))
	for _, row := range rows {
		active[row.ID] = struct{}{}
	}

	stored, err := s.repo.ListMappings(ctx)
	if err != nil {
		return nil, internal.NewUpstreamError("list division mappings", err)
	}

	var mappings []Mapping
	for _, m := range stored {
		if _, ok := active[m.DivisionID]; !ok {
			continue
		}
		sys, err := ats.ParseSystem(m.ATSSystem)
		if err != nil {
			s.logger.Warn("ignoring division mapping", "division_id", m.DivisionID, "error", err)
			continue
		}
		mappings = append(mappings, Mapping{DivisionID: m.DivisionID, System: sys})
	}

	router, err := NewRouter(mappings)
	if err != nil {
		return nil, internal.ErrDivisionMappingMissing.WithCause(err)
	}
	if router.Empty() {
		return nil, internal.ErrDivisionMappingMissing
	}
	return router, nil
}

// Names maps every active division id to its name.
func (s *Service) Names(ctx context.Context) (map[int64]string, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, internal.NewUpstreamError("list divisions", err)
	}
	names := make(map[int64]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Division, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, internal.ErrDivisionNotFound
	}
	return FromDataModel(row), nil
}

// DivisionExists reports whether id names an active division.
func (s *Service) DivisionExists(ctx context.Context, id int64) (bool, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return row != nil && row.IsActive, nil
}

// FindActiveDivisionID matches a department name against active division
// names, ignoring case.
func (s *Service) FindActiveDivisionID(ctx context.Context, name string) (int64, bool, error) {
	row, err := s.repo.FindActiveByName(ctx, name)
	if err != nil || row == nil {
		return 0, false, err
	}
	return row.ID, true, nil
}

// SeedDivision is one entry of the seed file.
type SeedDivision struct {
	ID           int64  `json:"id" yaml:"id" mapstructure:"id"`
	Name         string `json:"name" yaml:"name" mapstructure:"name"`
	DisplayOrder int    `json:"display_order" yaml:"display_order" mapstructure:"display_order"`
	ATSSystem    string `json:"ats_system" yaml:"ats_system" mapstructure:"ats_system"`
}

// Seed upserts divisions and their ATS mappings.
func (s *Service) Seed(ctx context.Context, seeds []SeedDivision) error {
	for _, seed := range seeds {
		if seed.ID <= 0 || seed.Name == "" {
			return internal.NewValidationFieldError("divisions", fmt.Sprintf("division seed %+v needs an id and a name", seed), internal.ErrCodeValidationFailed)
		}
		if err := s.repo.Upsert(ctx, &divisionDatamodel.Division{
			ID:           seed.ID,
			Name:         seed.Name,
			DisplayOrder: seed.DisplayOrder,
			IsActive:     true,
		}); err != nil {
			return fmt.Errorf("seed division %d: %w", seed.ID, err)
		}

		if seed.ATSSystem == "" {
			continue
		}
		sys, err := ats.ParseSystem(seed.ATSSystem)
		if err != nil {
			return internal.NewValidationFieldError("ats_system", err.Error(), internal.ErrCodeValidationFailed)
		}
		if err := s.repo.SaveMapping(ctx, &divisionDatamodel.ATSMapping{
			DivisionID: seed.ID,
			ATSSystem:  string(sys),
		}); err != nil {
			return fmt.Errorf("seed mapping for division %d: %w", seed.ID, err)
		}
	}
	s.logger.Info("seeded divisions", "count", len(seeds))
	return nil
}
