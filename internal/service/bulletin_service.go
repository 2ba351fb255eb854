package service

import (
	"context"
	"strings"
	"time"

	"docctl-server/internal/domain"
	"docctl-server/internal/repository"

	"go.uber.org/zap"
)

type BulletinService struct {
	repo   repository.BulletinRepository
	logger *zap.Logger
}

func NewBulletinService(repo repository.BulletinRepository, logger *zap.Logger) *BulletinService {
	return &BulletinService{repo: repo, logger: logger}
}

func (s *BulletinService) Get(ctx context.Context) (*domain.Settings, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Settings{
		TurnOffDate: all[domain.BulletinTurnOffDate],
		Message:     all[domain.BulletinMessage],
	}, nil
}

func (s *BulletinService) Update(ctx context.Context, actor domain.Actor, settings *domain.Settings) (*domain.Settings, error) {
	settings.TurnOffDate = strings.TrimSpace(settings.TurnOffDate)
	if settings.TurnOffDate != "" {
		if _, err := parseDate(settings.TurnOffDate); err != nil {
			return nil, &ValidationError{Messages: []string{"turn_off_date must be a date (YYYY-MM-DD)"}}
		}
	}

	err := s.repo.Set(ctx, map[string]string{
		domain.BulletinTurnOffDate: settings.TurnOffDate,
		domain.BulletinMessage:     settings.Message,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("bulletin updated",
		zap.String("turn_off_date", settings.TurnOffDate),
		zap.String("by", actor.UserID),
	)
	return settings, nil
}

// TurnOffDate is the earliest date a claim may carry, or nil when unset.
// An unparseable stored value is treated as unset.
func (s *BulletinService) TurnOffDate(ctx context.Context) (*time.Time, error) {
	raw, err := s.repo.Get(ctx, domain.BulletinTurnOffDate)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	t, err := parseDate(raw)
	if err != nil {
		s.logger.Warn("ignoring malformed turn-off date", zap.String("value", raw))
		return nil, nil
	}
	return &t, nil
}
