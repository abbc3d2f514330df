package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"wisefido-health/internal/models"

	"go.uber.org/zap"
)

const snapshotSuffix = ":snapshot"

// SnapshotStore 人员健康缓存快照
// 键格式: {prefix}{person_id}:snapshot，如 health:person:p1:snapshot
type SnapshotStore struct {
	kv     KV
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewSnapshotStore 创建快照存储
func NewSnapshotStore(kv KV, prefix string, ttl time.Duration, logger *zap.Logger) *SnapshotStore {
	return &SnapshotStore{
		kv:     kv,
		prefix: prefix,
		ttl:    ttl,
		logger: logger,
	}
}

// Key 人员快照键
func (s *SnapshotStore) Key(personID string) string {
	return s.prefix + personID + snapshotSuffix
}

// Save 写入快照
func (s *SnapshotStore) Save(ctx context.Context, snap models.PersonSnapshot) error {
	if snap.State.PersonID == "" {
		return fmt.Errorf("snapshot missing person id")
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.kv.Set(ctx, s.Key(snap.State.PersonID), string(data), s.ttl); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load 读取快照（不存在返回 ErrMiss）
func (s *SnapshotStore) Load(ctx context.Context, personID string) (*models.PersonSnapshot, error) {
	raw, err := s.kv.Get(ctx, s.Key(personID))
	if err != nil {
		return nil, err
	}

	var snap models.PersonSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete 删除快照
func (s *SnapshotStore) Delete(ctx context.Context, personID string) error {
	if err := s.kv.Delete(ctx, s.Key(personID)); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// LoadAll 读取全部快照（按人员 ID 排序）
// 单个快照损坏或已过期时跳过，不影响其他快照
func (s *SnapshotStore) LoadAll(ctx context.Context) ([]models.PersonSnapshot, error) {
	keys, err := s.kv.ScanKeys(ctx, s.prefix+"*"+snapshotSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan snapshot keys: %w", err)
	}
	sort.Strings(keys)

	snapshots := make([]models.PersonSnapshot, 0, len(keys))
	for _, key := range keys {
		personID := strings.TrimSuffix(strings.TrimPrefix(key, s.prefix), snapshotSuffix)
		snap, err := s.Load(ctx, personID)
		if err != nil {
			if !errors.Is(err, ErrMiss) {
				s.logger.Warn("Skipping unreadable snapshot",
					zap.String("key", key),
					zap.Error(err),
				)
			}
			continue
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, nil
}
