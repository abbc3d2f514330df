package models

import (
	"time"
)

// AlertSeverity 报警严重程度
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Valid 是否为已知严重程度
func (s AlertSeverity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// AlertCategory 报警类别
type AlertCategory string

const (
	CategoryVitalSigns AlertCategory = "vital_signs"
	CategoryMedication AlertCategory = "medication"
	CategoryEmergency  AlertCategory = "emergency"
)

// HealthAlert 健康报警
// 同一人 (category, title) 相同的报警只保留一条，直到被确认或清空记录
type HealthAlert struct {
	ID              string        `json:"id"`
	PersonID        string        `json:"person_id"`
	Severity        AlertSeverity `json:"severity"`
	Category        AlertCategory `json:"category"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Recommendations []string      `json:"recommendations"`
	CreatedAt       time.Time     `json:"created_at"`
	Acknowledged    bool          `json:"acknowledged"`
	AcknowledgedBy  string        `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *time.Time    `json:"acknowledged_at,omitempty"`
}

// DedupKey 报警去重键
func (a *HealthAlert) DedupKey() string {
	return a.PersonID + "|" + string(a.Category) + "|" + a.Title
}

// IsUnacknowledgedCritical 未确认的严重报警
func (a *HealthAlert) IsUnacknowledgedCritical() bool {
	return a.Severity == SeverityCritical && !a.Acknowledged
}

// AlertFilter 报警查询过滤条件（nil 表示不过滤）
type AlertFilter struct {
	Severity     *AlertSeverity `json:"severity,omitempty"`
	Acknowledged *bool          `json:"acknowledged,omitempty"`
}

// Match 判断报警是否满足过滤条件
func (f AlertFilter) Match(a *HealthAlert) bool {
	if f.Severity != nil && a.Severity != *f.Severity {
		return false
	}
	if f.Acknowledged != nil && a.Acknowledged != *f.Acknowledged {
		return false
	}
	return true
}
