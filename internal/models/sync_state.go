package models

import (
	"time"
)

// SyncStatus 同步状态
// never_synced -> syncing -> {synced | error}，synced/error 可再次进入 syncing
type SyncStatus string

const (
	SyncNever   SyncStatus = "never_synced"
	SyncSyncing SyncStatus = "syncing"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

// SyncState 每人一条同步状态
type SyncState struct {
	PersonID    string     `json:"person_id"`
	LastSync    *time.Time `json:"last_sync,omitempty"`
	Status      SyncStatus `json:"status"`
	RecordCount int        `json:"record_count"`
	Pending     bool       `json:"pending"`
	LastError   string     `json:"last_error,omitempty"`
}

// SyncResult 单个数据源的同步结果
type SyncResult struct {
	Source      ProviderKind `json:"source"`
	Success     bool         `json:"success"`
	RecordCount int          `json:"record_count"`
	Error       string       `json:"error,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// ConsolidatedHealthView getHealthData 返回的汇总视图
type ConsolidatedHealthView struct {
	PersonID   string                `json:"person_id"`
	Records    []ConsolidatedRecord  `json:"records"`
	Alerts     []HealthAlert         `json:"alerts,omitempty"`
	Score      int                   `json:"score"`
	RiskLevel  RiskLevel             `json:"risk_level"`
	Criteria   AccommodationCriteria `json:"criteria"`
	SyncStatus SyncState             `json:"sync_status"`
	Sources    []ProviderKind        `json:"sources"`
}

// WaitlistEntry 候补名单条目
type WaitlistEntry struct {
	PersonID       string                `json:"person_id"`
	PriorityScore  int                   `json:"priority_score"`
	RiskLevel      RiskLevel             `json:"risk_level"`
	CriticalAlerts int                   `json:"critical_alerts"`
	Criteria       AccommodationCriteria `json:"criteria"`
}

// PersonSnapshot 一个人的缓存快照（持久化到 Redis，启动时恢复）
type PersonSnapshot struct {
	State   SyncState            `json:"state"`
	Records []ConsolidatedRecord `json:"records"`
	Alerts  []HealthAlert        `json:"alerts"`
	SavedAt time.Time            `json:"saved_at"`
}
