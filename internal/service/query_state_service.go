package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"docctl-server/internal/domain"
	"docctl-server/internal/repository"

	"go.uber.org/zap"
)

// QueryStateService keeps the last submitted filter of each list page so
// that paging through results does not resend the whole filter.
type QueryStateService struct {
	repo     repository.QueryStateRepository
	logger   *zap.Logger
	pageSize int
}

func NewQueryStateService(repo repository.QueryStateRepository, logger *zap.Logger, pageSize int) *QueryStateService {
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	return &QueryStateService{repo: repo, logger: logger, pageSize: pageSize}
}

// Load decodes the stored filter into dst. When nothing is stored, or the
// store is unavailable, dst is left as is.
func (s *QueryStateService) Load(ctx context.Context, userID, pageKey string, dst any) error {
	state, err := s.repo.Load(ctx, userID, pageKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.logger.Warn("query state unavailable", zap.String("page", pageKey), zap.Error(err))
		return nil
	}

	if err := json.Unmarshal(state.Filter, dst); err != nil {
		s.logger.Warn("discarding unreadable query state", zap.String("page", pageKey), zap.Error(err))
		return nil
	}
	return nil
}

// Save stores filter after fixing non-positive paging values.
func (s *QueryStateService) Save(ctx context.Context, userID, pageKey string, filter any, p *domain.Pagination) error {
	if p != nil {
		if p.PageNumber <= 0 {
			p.PageNumber = 1
		}
		if p.PageSize <= 0 {
			p.PageSize = s.pageSize
		}
	}

	raw, err := json.Marshal(filter)
	if err != nil {
		return fmt.Errorf("failed to encode query state: %w", err)
	}

	return s.repo.Save(ctx, &domain.QueryState{
		UserID:  userID,
		PageKey: pageKey,
		Filter:  raw,
	})
}

func (s *QueryStateService) Clear(ctx context.Context, userID, pageKey string) error {
	return s.repo.Clear(ctx, userID, pageKey)
}
