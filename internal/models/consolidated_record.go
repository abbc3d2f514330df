package models

import (
	"time"
)

// ConsolidatedRecord 合并后的每人每日健康记录
type ConsolidatedRecord struct {
	PersonID  string         `json:"person_id"`
	Date      string         `json:"date"`      // UTC 日期 YYYY-MM-DD
	Timestamp time.Time      `json:"timestamp"` // 参与合并样本中的最新时间
	Sources   []ProviderKind `json:"sources"`   // 数据来源（去重、有序）
	HealthFields
}

// HasSource 记录是否包含指定来源
func (r *ConsolidatedRecord) HasSource(kind ProviderKind) bool {
	for _, s := range r.Sources {
		if s == kind {
			return true
		}
	}
	return false
}

// DateRange 日期范围过滤（闭区间，零值表示不限）
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains 判断时间是否在范围内
func (d *DateRange) Contains(t time.Time) bool {
	if d == nil {
		return true
	}
	if !d.From.IsZero() && t.Before(d.From) {
		return false
	}
	if !d.To.IsZero() && t.After(d.To) {
		return false
	}
	return true
}
