package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"wisefido-health/internal/models"
	mqttclient "wisefido-health/internal/mqtt"

	"go.uber.org/zap"
)

// Subscriber MQTT 订阅接口（由 mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttclient.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// WearablePayload 可穿戴设备推送的样本
// 主题格式: wearable/{person_id}/samples
type WearablePayload struct {
	Timestamp        int64    `json:"timestamp"` // Unix 秒
	HeartRate        *float64 `json:"heart_rate,omitempty"`
	Systolic         *float64 `json:"systolic,omitempty"`
	Diastolic        *float64 `json:"diastolic,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
	RespiratoryRate  *float64 `json:"respiratory_rate,omitempty"`
	Steps            *int     `json:"steps,omitempty"`
	SleepHours       *float64 `json:"sleep_hours,omitempty"`
	StressLevel      *float64 `json:"stress_level,omitempty"`
	Emergency        *bool    `json:"emergency,omitempty"`
}

// WearableBuffer 订阅可穿戴设备推送，按人缓存回看窗口内的样本
type WearableBuffer struct {
	subscriber Subscriber
	topic      string
	qos        byte
	priority   int
	lookback   time.Duration
	maxPerUser int
	logger     *zap.Logger

	mu      sync.RWMutex
	samples map[string][]models.HealthSample
	now     func() time.Time
}

// NewWearableBuffer 创建可穿戴设备推送缓冲
func NewWearableBuffer(subscriber Subscriber, topic string, qos byte, priority, lookbackDays, maxPerUser int, logger *zap.Logger) *WearableBuffer {
	if maxPerUser <= 0 {
		maxPerUser = 500
	}
	return &WearableBuffer{
		subscriber: subscriber,
		topic:      topic,
		qos:        qos,
		priority:   priority,
		lookback:   time.Duration(lookbackDays) * 24 * time.Hour,
		maxPerUser: maxPerUser,
		logger:     logger,
		samples:    make(map[string][]models.HealthSample),
		now:        time.Now,
	}
}

func (b *WearableBuffer) Kind() models.ProviderKind { return models.ProviderDevice }

func (b *WearableBuffer) Priority() int { return b.priority }

// Start 订阅主题
func (b *WearableBuffer) Start(ctx context.Context) error {
	if err := b.subscriber.Subscribe(b.topic, b.qos, b.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to wearable topic: %w", err)
	}
	b.logger.Info("Wearable buffer started", zap.String("topic", b.topic))
	return nil
}

// Stop 取消订阅
func (b *WearableBuffer) Stop(ctx context.Context) error {
	if err := b.subscriber.Unsubscribe(b.topic); err != nil {
		b.logger.Error("Failed to unsubscribe", zap.Error(err))
	}
	b.logger.Info("Wearable buffer stopped")
	return nil
}

// FetchSamples 返回缓冲中回看窗口内的样本（按时间倒序，返回副本）
func (b *WearableBuffer) FetchSamples(ctx context.Context, personID string) ([]models.HealthSample, error) {
	cutoff := b.now().Add(-b.lookback)

	b.mu.RLock()
	defer b.mu.RUnlock()

	buffered := b.samples[personID]
	out := make([]models.HealthSample, 0, len(buffered))
	for _, s := range buffered {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// handleMessage 处理MQTT消息
func (b *WearableBuffer) handleMessage(topic string, payload []byte) error {
	// 主题格式: wearable/{person_id}/samples
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "wearable" || parts[2] != "samples" || parts[1] == "" {
		return fmt.Errorf("invalid wearable topic: %s", topic)
	}
	personID := parts[1]

	var p WearablePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("failed to unmarshal wearable payload: %w", err)
	}
	if p.Timestamp <= 0 {
		return fmt.Errorf("wearable payload missing timestamp")
	}

	sample := models.HealthSample{
		PersonID:  personID,
		Timestamp: time.Unix(p.Timestamp, 0).UTC(),
		Source:    models.ProviderDevice,
		HealthFields: models.HealthFields{
			HeartRate:          p.HeartRate,
			Temperature:        p.Temperature,
			OxygenSaturation:   p.OxygenSaturation,
			RespiratoryRate:    p.RespiratoryRate,
			Steps:              p.Steps,
			SleepHours:         p.SleepHours,
			StressLevel:        p.StressLevel,
			EmergencyCondition: p.Emergency,
		},
	}
	if p.Systolic != nil && p.Diastolic != nil {
		sample.BloodPressure = &models.BloodPressure{Systolic: *p.Systolic, Diastolic: *p.Diastolic}
	}

	b.add(sample)

	b.logger.Debug("Buffered wearable sample",
		zap.String("person_id", personID),
		zap.Time("timestamp", sample.Timestamp),
	)
	return nil
}

// add 写入样本并裁剪：只保留回看窗口内、最多 maxPerUser 条
func (b *WearableBuffer) add(sample models.HealthSample) {
	cutoff := b.now().Add(-b.lookback)

	b.mu.Lock()
	defer b.mu.Unlock()

	list := append(b.samples[sample.PersonID], sample)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Timestamp.After(list[j].Timestamp)
	})

	kept := list[:0]
	for _, s := range list {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, s)
	}
	if len(kept) > b.maxPerUser {
		kept = kept[:b.maxPerUser]
	}
	b.samples[sample.PersonID] = kept
}
