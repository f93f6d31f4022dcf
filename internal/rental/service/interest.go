package service

import (
	"context"

	"talad/internal/rental/repository"
	"talad/pkg/config"
	apperrors "talad/pkg/errors"
	"talad/pkg/model"
)

// InterestService manages the "tell me when something frees up" list.
// Registrations are per zone; an empty zone means the whole market.
type InterestService interface {
	Register(ctx context.Context, userID string, zoneID string) error
	Remove(ctx context.Context, userID string, zoneID string) error
	ListForUser(ctx context.Context, userID string) ([]*model.InterestEntry, error)
}

type interestService struct {
	repo repository.InterestRepository
	cfg  *config.Config
}

func NewInterestService(repo repository.InterestRepository, cfg *config.Config) InterestService {
	return &interestService{repo: repo, cfg: cfg}
}

func (s *interestService) Register(ctx context.Context, userID string, zoneID string) error {
	if userID == "" {
		return apperrors.Unauthorized("User identity is required")
	}

	if err := s.repo.Register(ctx, userID, zoneID); err != nil {
		return apperrors.Internal("Failed to register interest", err)
	}

	s.cfg.Log.Info("Interest registered", "user_id", userID, "zone_id", zoneID)
	return nil
}

func (s *interestService) Remove(ctx context.Context, userID string, zoneID string) error {
	if userID == "" {
		return apperrors.Unauthorized("User identity is required")
	}

	if err := s.repo.Remove(ctx, userID, zoneID); err != nil {
		return apperrors.Internal("Failed to remove interest", err)
	}

	return nil
}

func (s *interestService) ListForUser(ctx context.Context, userID string) ([]*model.InterestEntry, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("User identity is required")
	}

	entries, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to list interest entries", err)
	}
	return entries, nil
}
