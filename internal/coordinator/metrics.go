package coordinator

import (
	"sync"
	"time"

	"wisefido-health/internal/models"
)

// Metrics 同步监控指标
type Metrics struct {
	mu sync.RWMutex

	// 同步统计
	syncsStarted   int64 // 开始的同步数（不含缓存命中）
	syncsSucceeded int64 // 所有数据源成功
	syncsPartial   int64 // 部分数据源失败
	syncsFailed    int64 // 所有数据源失败
	syncsConflict  int64 // 同步进行中被拒绝
	syncsCached    int64 // 数据新鲜直接返回

	// 数据源失败统计
	providerFailures map[models.ProviderKind]int64

	// 性能指标
	totalSyncTime time.Duration
	lastSyncTime  time.Time

	startTime time.Time
}

// MetricsSnapshot 指标快照
type MetricsSnapshot struct {
	SyncsStarted     int64                         `json:"syncs_started"`
	SyncsSucceeded   int64                         `json:"syncs_succeeded"`
	SyncsPartial     int64                         `json:"syncs_partial"`
	SyncsFailed      int64                         `json:"syncs_failed"`
	SyncsConflict    int64                         `json:"syncs_conflict"`
	SyncsCached      int64                         `json:"syncs_cached"`
	ProviderFailures map[models.ProviderKind]int64 `json:"provider_failures"`
	TotalSyncTime    time.Duration                 `json:"-"`
	LastSyncTime     time.Time                     `json:"last_sync_time"`
	StartTime        time.Time                     `json:"start_time"`
}

// AvgSyncTime 平均同步耗时（只统计至少一个数据源成功的同步）
func (s MetricsSnapshot) AvgSyncTime() time.Duration {
	completed := s.SyncsSucceeded + s.SyncsPartial
	if completed == 0 {
		return 0
	}
	return s.TotalSyncTime / time.Duration(completed)
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		providerFailures: make(map[models.ProviderKind]int64),
		startTime:        time.Now(),
	}
}

// GetSnapshot 获取指标快照（线程安全）
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	failures := make(map[models.ProviderKind]int64, len(m.providerFailures))
	for k, v := range m.providerFailures {
		failures[k] = v
	}
	return MetricsSnapshot{
		SyncsStarted:     m.syncsStarted,
		SyncsSucceeded:   m.syncsSucceeded,
		SyncsPartial:     m.syncsPartial,
		SyncsFailed:      m.syncsFailed,
		SyncsConflict:    m.syncsConflict,
		SyncsCached:      m.syncsCached,
		ProviderFailures: failures,
		TotalSyncTime:    m.totalSyncTime,
		LastSyncTime:     m.lastSyncTime,
		StartTime:        m.startTime,
	}
}

// IncrementStarted 增加开始计数
func (m *Metrics) IncrementStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncsStarted++
}

// IncrementConflict 增加冲突计数
func (m *Metrics) IncrementConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncsConflict++
}

// IncrementCached 增加缓存命中计数
func (m *Metrics) IncrementCached() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.syncsCached++
}

// RecordCompletion 记录一次同步的结果
func (m *Metrics) RecordCompletion(results []models.SyncResult, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			m.providerFailures[r.Source]++
		}
	}

	switch {
	case failed == len(results):
		m.syncsFailed++
		return
	case failed > 0:
		m.syncsPartial++
	default:
		m.syncsSucceeded++
	}
	m.totalSyncTime += duration
	m.lastSyncTime = time.Now()
}
