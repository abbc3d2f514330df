package models

import (
	"time"
)

// ProviderKind 健康数据来源类型（固定集合）
type ProviderKind string

const (
	ProviderDevice   ProviderKind = "device"   // 可穿戴设备
	ProviderClinical ProviderKind = "clinical" // 临床记录系统
	ProviderManual   ProviderKind = "manual"   // 人工录入（自报）
)

// AllProviderKinds 所有合法的数据来源
var AllProviderKinds = []ProviderKind{ProviderDevice, ProviderClinical, ProviderManual}

// Valid 判断是否为已知来源
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderDevice, ProviderClinical, ProviderManual:
		return true
	}
	return false
}

// SleepQuality 睡眠质量
type SleepQuality string

const (
	SleepPoor      SleepQuality = "poor"
	SleepFair      SleepQuality = "fair"
	SleepGood      SleepQuality = "good"
	SleepExcellent SleepQuality = "excellent"
)

// BloodPressure 血压（收缩压/舒张压，mmHg）
type BloodPressure struct {
	Systolic  float64 `json:"systolic"`
	Diastolic float64 `json:"diastolic"`
}

// HealthFields 健康数据字段（稀疏，全部可选）
// HealthSample 和 ConsolidatedRecord 共用
type HealthFields struct {
	// 生命体征
	HeartRate        *float64       `json:"heart_rate,omitempty"`        // 次/分
	BloodPressure    *BloodPressure `json:"blood_pressure,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`       // 摄氏度
	OxygenSaturation *float64       `json:"oxygen_saturation,omitempty"` // %
	RespiratoryRate  *float64       `json:"respiratory_rate,omitempty"`  // 次/分

	// 体征
	Weight *float64 `json:"weight,omitempty"` // kg
	Height *float64 `json:"height,omitempty"` // cm

	// 活动与睡眠
	Steps        *int          `json:"steps,omitempty"`
	SleepHours   *float64      `json:"sleep_hours,omitempty"`
	SleepQuality *SleepQuality `json:"sleep_quality,omitempty"`

	// 心理状态（0-10）
	StressLevel  *float64 `json:"stress_level,omitempty"`
	MoodScore    *float64 `json:"mood_score,omitempty"`
	AnxietyLevel *float64 `json:"anxiety_level,omitempty"`

	// 列表字段（合并时总是取并集去重）
	Medications []string `json:"medications,omitempty"`
	Conditions  []string `json:"conditions,omitempty"`
	Allergies   []string `json:"allergies,omitempty"`

	EmergencyCondition *bool `json:"emergency_condition,omitempty"`
}

// HasEmergency 是否标记了紧急状况
func (f *HealthFields) HasEmergency() bool {
	return f.EmergencyCondition != nil && *f.EmergencyCondition
}

// HealthSample 单条健康观测（由数据源产生，产生后不可变）
type HealthSample struct {
	PersonID  string       `json:"person_id"`
	Timestamp time.Time    `json:"timestamp"`
	Source    ProviderKind `json:"source"`
	HealthFields
}

// Day 样本所属的 UTC 日期（YYYY-MM-DD）
func (s *HealthSample) Day() string {
	return s.Timestamp.UTC().Format(DayLayout)
}

// DayLayout 日期格式
const DayLayout = "2006-01-02"
