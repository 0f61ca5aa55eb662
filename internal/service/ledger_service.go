package service

import (
	"context"

	"github.com/soporte-bpo/incident-service/internal/authz"
	"github.com/soporte-bpo/incident-service/internal/domain"
	"github.com/soporte-bpo/incident-service/internal/repository"
	apperrors "github.com/soporte-bpo/incident-service/pkg/util/errorutil"
)

// LedgerService exposes the global activity ledger to administrators.
type LedgerService struct {
	history repository.HistoryRepository
}

// NewLedgerService constructs the service.
func NewLedgerService(history repository.HistoryRepository) *LedgerService {
	return &LedgerService{history: history}
}

// Global returns the newest-first paginated ledger with actor and
// workstation context joined in.
func (s *LedgerService) Global(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.LedgerEntry, error) {
	if err := requireAction(actor, authz.ActionViewLedger); err != nil {
		return nil, err
	}
	entries, err := s.history.ListGlobal(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// Stats returns aggregates derived from the ledger: totals, activity per
// actor and per action, and the rolling 7-day trend.
func (s *LedgerService) Stats(ctx context.Context, actor *domain.User) (*domain.LedgerStats, error) {
	if err := requireAction(actor, authz.ActionViewLedger); err != nil {
		return nil, err
	}
	stats, err := s.history.Stats(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}
