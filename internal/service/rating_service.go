package service

import (
	"context"

	"github.com/soporte-bpo/incident-service/internal/domain"
	"github.com/soporte-bpo/incident-service/internal/repository"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// RatingService reads technician ratings. Writes happen only on the approve
// path.
type RatingService struct {
	ratings repository.RatingRepository
}

// NewRatingService constructs the service.
func NewRatingService(ratings repository.RatingRepository) *RatingService {
	return &RatingService{ratings: ratings}
}

// ForTechnician lists a technician's rated incidents. Technicians read
// their own history; admins read anyone's.
func (s *RatingService) ForTechnician(ctx context.Context, actor *domain.User, technicianID string) ([]domain.RatedIncident, error) {
	if err := s.authorize(actor, technicianID); err != nil {
		return nil, err
	}
	rated, err := s.ratings.ListByTechnician(ctx, technicianID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rated, nil
}

// AverageForTechnician returns the technician's mean score and sample size.
func (s *RatingService) AverageForTechnician(ctx context.Context, actor *domain.User, technicianID string) (*domain.RatingAverage, error) {
	if err := s.authorize(actor, technicianID); err != nil {
		return nil, err
	}
	average, err := s.ratings.AverageForTechnician(ctx, technicianID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return average, nil
}

func (s *RatingService) authorize(actor *domain.User, technicianID string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	if actor.Role == domain.RoleTechnician && actor.ID == technicianID {
		return nil
	}
	return apperrors.NewForbidden("insufficient permissions")
}
