package service

import (
	"context"
	"fmt"

	"wisefido-health/internal/coordinator"
	"wisefido-health/internal/evaluator"
	"wisefido-health/internal/matcher"
	"wisefido-health/internal/models"

	"go.uber.org/zap"
)

// SyncHealthData 同步某人的健康数据
func (s *HealthService) SyncHealthData(ctx context.Context, personID string, opts coordinator.SyncOptions) ([]models.SyncResult, error) {
	return s.coordinator.Sync(ctx, personID, opts)
}

// GetHealthData 查询某人的健康汇总视图
func (s *HealthService) GetHealthData(ctx context.Context, personID string, opts coordinator.GetOptions) (*models.ConsolidatedHealthView, error) {
	return s.coordinator.GetHealthData(ctx, personID, opts)
}

// GenerateBedCriteria 生成某人的安置需求
func (s *HealthService) GenerateBedCriteria(ctx context.Context, personID string) (models.AccommodationCriteria, error) {
	profile, _, err := s.coordinator.Profile(ctx, personID)
	if err != nil {
		return models.DefaultCriteria(), err
	}
	return profile.Criteria, nil
}

// GetHealthAlerts 查询某人的报警
func (s *HealthService) GetHealthAlerts(personID string, filter models.AlertFilter) []models.HealthAlert {
	return s.coordinator.Alerts(personID, filter)
}

// AcknowledgeAlert 确认报警
func (s *HealthService) AcknowledgeAlert(ctx context.Context, personID, alertID, by string) (*models.HealthAlert, error) {
	return s.coordinator.AcknowledgeAlert(ctx, personID, alertID, by)
}

// ClearHealthData 清空某人的健康缓存
func (s *HealthService) ClearHealthData(ctx context.Context, personID string) error {
	return s.coordinator.ClearCache(ctx, personID)
}

// FindOptimalBeds 对调用方提供的床位排序
func (s *HealthService) FindOptimalBeds(units []models.ResourceUnit, profile *models.HealthProfile, maxResults int) []models.MatchResult {
	return s.matcher.FindOptimalBeds(units, profile, maxResults)
}

// FindOptimalBedsForPerson 从床位库中为某人选床
func (s *HealthService) FindOptimalBedsForPerson(ctx context.Context, personID string, maxResults int) ([]models.MatchResult, error) {
	units, err := s.units.ListUnits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list units: %w", err)
	}
	profile, _, err := s.coordinator.Profile(ctx, personID)
	if err != nil {
		return nil, err
	}

	results := s.matcher.FindOptimalBeds(units, profile, maxResults)
	s.logger.Debug("Beds matched",
		zap.String("person_id", personID),
		zap.Int("units", len(units)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// PriorityScore 候补优先级
func (s *HealthService) PriorityScore(criteria models.AccommodationCriteria, alerts []models.HealthAlert) int {
	return s.matcher.PriorityScore(criteria, alerts)
}

// RankWaitlist 按优先级对候补人员排序（重复的人员只保留第一次出现）
func (s *HealthService) RankWaitlist(ctx context.Context, personIDs []string) ([]models.WaitlistEntry, error) {
	seen := make(map[string]bool, len(personIDs))
	entries := make([]models.WaitlistEntry, 0, len(personIDs))

	for _, personID := range personIDs {
		if personID == "" || seen[personID] {
			continue
		}
		seen[personID] = true

		profile, alerts, err := s.coordinator.Profile(ctx, personID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, models.WaitlistEntry{
			PersonID:       personID,
			PriorityScore:  s.matcher.PriorityScore(profile.Criteria, alerts),
			RiskLevel:      profile.Score.RiskLevel,
			CriticalAlerts: evaluator.CountUnacknowledgedCritical(alerts),
			Criteria:       profile.Criteria,
		})
	}

	return matcher.RankWaitlist(entries), nil
}

// Metrics 同步指标快照
func (s *HealthService) Metrics() coordinator.MetricsSnapshot {
	return s.coordinator.Metrics().GetSnapshot()
}
