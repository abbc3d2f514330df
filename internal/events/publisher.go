// Package events 把健康报警和同步完成事件写入 Redis Streams，供通知服务消费
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"wisefido-health/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// 事件类型
const (
	EventAlertCreated  = "health.alert.created"
	EventSyncCompleted = "health.sync.completed"
)

// Publisher 事件发布接口
type Publisher interface {
	PublishAlerts(ctx context.Context, alerts []models.HealthAlert) error
	PublishSync(ctx context.Context, state models.SyncState, results []models.SyncResult) error
}

// SyncEvent 同步完成事件
type SyncEvent struct {
	State   models.SyncState    `json:"state"`
	Results []models.SyncResult `json:"results"`
}

// StreamPublisher 基于 Redis Streams 的事件发布器
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewStreamPublisher 创建 Redis Streams 事件发布器
func NewStreamPublisher(client *redis.Client, stream string, maxLen int64, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}
}

// PublishAlerts 发布新报警（只发布 warning / critical）
func (p *StreamPublisher) PublishAlerts(ctx context.Context, alerts []models.HealthAlert) error {
	for i := range alerts {
		a := &alerts[i]
		if a.Severity == models.SeverityInfo {
			continue
		}
		id, err := p.publish(ctx, EventAlertCreated, a.PersonID, a)
		if err != nil {
			return fmt.Errorf("failed to publish alert %s: %w", a.ID, err)
		}
		p.logger.Debug("Published alert event",
			zap.String("stream", p.stream),
			zap.String("message_id", id),
			zap.String("alert_id", a.ID),
			zap.String("severity", string(a.Severity)),
		)
	}
	return nil
}

// PublishSync 发布同步完成事件
func (p *StreamPublisher) PublishSync(ctx context.Context, state models.SyncState, results []models.SyncResult) error {
	if _, err := p.publish(ctx, EventSyncCompleted, state.PersonID, SyncEvent{State: state, Results: results}); err != nil {
		return fmt.Errorf("failed to publish sync event: %w", err)
	}
	return nil
}

func (p *StreamPublisher) publish(ctx context.Context, eventType, personID string, data interface{}) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_type": eventType,
			"person_id":  personID,
			"data":       string(payload),
			"timestamp":  strconv.FormatInt(time.Now().Unix(), 10),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	return p.client.XAdd(ctx, args).Result()
}

// NoopPublisher 不发布任何事件（事件功能关闭时使用）
type NoopPublisher struct{}

func (NoopPublisher) PublishAlerts(ctx context.Context, alerts []models.HealthAlert) error {
	return nil
}

func (NoopPublisher) PublishSync(ctx context.Context, state models.SyncState, results []models.SyncResult) error {
	return nil
}
